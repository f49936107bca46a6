// Package store implements the Rule Store (Bridge): the multi-tenant,
// layer+family-indexed in-memory tables of installed rules, with the
// companion anchors index and the reverse index used for bulk per-agent
// removal.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
)

// tableKey addresses one primary-index table.
type tableKey struct {
	tenantID string
	layer    vocab.Layer
	familyID rule.Family
}

// entry is one installed rule inside a table: the enforcement Handle plus
// a monotonically increasing sequence number that breaks priority ties
// FIFO.
type entry struct {
	handle rule.Handle
	family rule.Family
	seq    uint64
}

// table holds one (tenant, layer, family) rule list under its own
// read-preferring lock. A single enforcement call takes read access to the
// tables of at most one layer and holds it only long enough to snapshot.
type table struct {
	mu      sync.RWMutex
	entries []entry // sorted: priority desc, seq asc
}

// Stats summarizes the store's current contents.
type Stats struct {
	Tables      int `json:"total_tables"`
	TotalRules  int `json:"total_rules"`
	TenantRules int `json:"tenant_rules"`
	AgentRules  int `json:"agent_rules"`
}

// Store is the in-memory Rule Store. All three indices are kept consistent
// under a single structural mutex. Readers share it; Install and
// RemoveAgentRules hold it exclusively, so a lookup waits for any
// in-progress write, whichever tables that write touches.
type Store struct {
	// mu guards the index maps themselves (table creation/removal, the
	// anchors and reverse indices, and the seq counter). Table contents
	// are guarded by each table's own lock.
	mu      sync.RWMutex
	tables  map[tableKey]*table
	anchors map[string]*rule.Anchors         // rule_id -> anchors
	byAgent map[agentKey]map[string]tableKey // (tenant, agent) -> rule_id -> table
	seq     uint64
}

type agentKey struct {
	tenantID string
	agentID  string // empty for tenant-scoped rules
}

// New creates an empty Rule Store.
func New() *Store {
	return &Store{
		tables:  make(map[tableKey]*table),
		anchors: make(map[string]*rule.Anchors),
		byAgent: make(map[agentKey]map[string]tableKey),
	}
}

// Install atomically inserts a rule and its pre-encoded anchors into all
// three indices. It rejects duplicate rule ids; replacing a rule requires
// explicit removal first so the transition stays observable to concurrent
// readers.
func (s *Store) Install(r *rule.Rule, anchors *rule.Anchors) error {
	if anchors == nil {
		return guarderr.New(guarderr.KindInternalInconsistency, "nil anchors for rule "+r.RuleID)
	}
	for i, n := range anchors.Count {
		if n < 1 {
			return guarderr.New(guarderr.KindInternalInconsistency,
				fmt.Sprintf("rule %s has empty anchor slot %d", r.RuleID, i))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.anchors[r.RuleID]; exists {
		return guarderr.New(guarderr.KindDuplicateRuleId, "rule already installed: "+r.RuleID)
	}

	key := tableKey{tenantID: r.TenantID, layer: r.Layer, familyID: r.FamilyID}
	t, ok := s.tables[key]
	if !ok {
		t = &table{}
		s.tables[key] = t
	}

	s.seq++
	e := entry{handle: rule.HandleFrom(r), family: r.FamilyID, seq: s.seq}

	t.mu.Lock()
	t.entries = insertOrdered(t.entries, e)
	t.mu.Unlock()

	s.anchors[r.RuleID] = anchors

	ak := agentKey{tenantID: r.TenantID, agentID: r.AgentID}
	ids, ok := s.byAgent[ak]
	if !ok {
		ids = make(map[string]tableKey)
		s.byAgent[ak] = ids
	}
	ids[r.RuleID] = key
	return nil
}

// insertOrdered places e at its sorted position: descending priority,
// ascending seq among equal priorities.
func insertOrdered(entries []entry, e entry) []entry {
	i := sort.Search(len(entries), func(i int) bool {
		if entries[i].handle.Priority != e.handle.Priority {
			return entries[i].handle.Priority < e.handle.Priority
		}
		return entries[i].seq > e.seq
	})
	entries = append(entries, entry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	return entries
}

// RemoveAgentRules removes every rule installed for (tenantID, agentID)
// across all layers and families, returning the number removed. The pair
// addresses agent-scoped rules only; tenant-scoped rules use an empty
// agentID.
func (s *Store) RemoveAgentRules(tenantID, agentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ak := agentKey{tenantID: tenantID, agentID: agentID}
	ids, ok := s.byAgent[ak]
	if !ok {
		return 0
	}

	removed := 0
	for ruleID, key := range ids {
		t, ok := s.tables[key]
		if !ok {
			continue
		}
		t.mu.Lock()
		for i := range t.entries {
			if t.entries[i].handle.RuleID == ruleID {
				t.entries = append(t.entries[:i], t.entries[i+1:]...)
				break
			}
		}
		empty := len(t.entries) == 0
		t.mu.Unlock()
		if empty {
			delete(s.tables, key)
		}
		delete(s.anchors, ruleID)
		removed++
	}
	delete(s.byAgent, ak)
	return removed
}

// GetRules returns a priority-ordered snapshot of all enabled rules whose
// scope matches the request: agent-scoped rules for agentID plus
// tenant-scoped rules (empty agent id), across every family in the layer.
// The merge is stable and priority-correct; ties preserve installation
// order. The snapshot is stable for the caller's lifetime even
// if writers mutate the store concurrently.
func (s *Store) GetRules(tenantID, agentID string, layer vocab.Layer) []rule.Handle {
	s.mu.RLock()
	var snap []entry
	for key, t := range s.tables {
		if key.tenantID != tenantID || key.layer != layer {
			continue
		}
		t.mu.RLock()
		for _, e := range t.entries {
			if !e.handle.Enabled {
				continue
			}
			if e.handle.AgentID != "" && e.handle.AgentID != agentID {
				continue
			}
			snap = append(snap, e)
		}
		t.mu.RUnlock()
	}
	s.mu.RUnlock()

	sort.SliceStable(snap, func(i, j int) bool {
		if snap[i].handle.Priority != snap[j].handle.Priority {
			return snap[i].handle.Priority > snap[j].handle.Priority
		}
		return snap[i].seq < snap[j].seq
	})

	out := make([]rule.Handle, len(snap))
	for i, e := range snap {
		out[i] = e.handle
	}
	return out
}

// GetAnchors returns the pre-encoded anchors for ruleID, or a RuleNotFound
// error if the rule isn't installed.
func (s *Store) GetAnchors(ruleID string) (*rule.Anchors, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.anchors[ruleID]
	if !ok {
		return nil, guarderr.New(guarderr.KindRuleNotFound, "no anchors for rule: "+ruleID)
	}
	return a, nil
}

// Stats reports table and rule counts, split by scope class.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Tables: len(s.tables)}
	for ak, ids := range s.byAgent {
		st.TotalRules += len(ids)
		if ak.agentID == "" {
			st.TenantRules += len(ids)
		} else {
			st.AgentRules += len(ids)
		}
	}
	return st
}
