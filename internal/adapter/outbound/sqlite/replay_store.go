// Package sqlite implements the optional Persistent Rule Metadata
// collaborator: a pure-Go SQLite-backed log of installed rules
// and their pre-encoded anchors that replays install_rules on process
// start to rehydrate the in-memory Rule Store. The core defines no schema
// beyond the replay contract; this adapter's schema is its own.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// ReplayStore persists rules alongside their anchors and replays them at
// startup.
type ReplayStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS rules (
    rule_id   TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    agent_id  TEXT NOT NULL DEFAULT '',
    rule_json BLOB NOT NULL,
    anchors   BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rules_scope ON rules (tenant_id, agent_id);
`

// Open opens (creating if needed) the replay database at path.
func Open(path string) (*ReplayStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening replay store: %w", err)
	}
	// modernc.org/sqlite serializes writes itself; a single connection
	// avoids SQLITE_BUSY churn under concurrent installs.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing replay store schema: %w", err)
	}
	return &ReplayStore{db: db}, nil
}

// Close closes the underlying database.
func (s *ReplayStore) Close() error {
	return s.db.Close()
}

// SaveRule records an installed rule and its anchors. Called after the
// in-memory install succeeds; INSERT OR REPLACE keeps the log idempotent
// across the remove-then-reinstall cycle.
func (s *ReplayStore) SaveRule(ctx context.Context, r *rule.Rule, anchors *rule.Anchors) error {
	ruleJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("serializing rule %s: %w", r.RuleID, err)
	}
	blob := MarshalAnchors(anchors)
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO rules (rule_id, tenant_id, agent_id, rule_json, anchors) VALUES (?, ?, ?, ?, ?)`,
		r.RuleID, r.TenantID, r.AgentID, ruleJSON, blob)
	if err != nil {
		return fmt.Errorf("persisting rule %s: %w", r.RuleID, err)
	}
	return nil
}

// DeleteAgentRules removes the persisted rules for (tenantID, agentID),
// mirroring the in-memory bulk removal.
func (s *ReplayStore) DeleteAgentRules(ctx context.Context, tenantID, agentID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rules WHERE tenant_id = ? AND agent_id = ?`, tenantID, agentID)
	if err != nil {
		return 0, fmt.Errorf("deleting rules for %s/%s: %w", tenantID, agentID, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Replay streams every persisted rule through install. Install failures
// stop the replay; a partially rehydrated store is worse than a loud
// startup failure.
func (s *ReplayStore) Replay(ctx context.Context, install func(*rule.Rule, *rule.Anchors) error) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT rule_id, rule_json, anchors FROM rules ORDER BY rule_id`)
	if err != nil {
		return 0, fmt.Errorf("querying replay store: %w", err)
	}
	defer rows.Close()

	replayed := 0
	for rows.Next() {
		var ruleID string
		var ruleJSON, blob []byte
		if err := rows.Scan(&ruleID, &ruleJSON, &blob); err != nil {
			return replayed, fmt.Errorf("scanning replay row: %w", err)
		}
		var r rule.Rule
		if err := json.Unmarshal(ruleJSON, &r); err != nil {
			return replayed, fmt.Errorf("decoding persisted rule %s: %w", ruleID, err)
		}
		anchors, err := UnmarshalAnchors(blob)
		if err != nil {
			return replayed, fmt.Errorf("decoding anchors for rule %s: %w", ruleID, err)
		}
		if err := install(&r, anchors); err != nil {
			return replayed, fmt.Errorf("replaying rule %s: %w", ruleID, err)
		}
		replayed++
	}
	return replayed, rows.Err()
}

// anchorsBlobSize is the wire size of one serialized RuleAnchors: per
// slot, a [16,32] float32 matrix followed by a uint32 count, slots in the
// fixed order.
const anchorsBlobSize = vector.NumSlots * (vector.MaxAnchorsPerSlot*vector.SlotDim*4 + 4)

// MarshalAnchors serializes anchors into the wire-level layout: 32-bit
// little-endian floats, padding rows zero.
func MarshalAnchors(a *rule.Anchors) []byte {
	buf := make([]byte, 0, anchorsBlobSize)
	for _, s := range vector.Slots {
		for i := 0; i < vector.MaxAnchorsPerSlot; i++ {
			for j := 0; j < vector.SlotDim; j++ {
				buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(a.Vectors[s][i][j]))
			}
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(a.Count[s]))
	}
	return buf
}

// UnmarshalAnchors decodes the wire-level layout back into RuleAnchors.
func UnmarshalAnchors(buf []byte) (*rule.Anchors, error) {
	if len(buf) != anchorsBlobSize {
		return nil, fmt.Errorf("anchors blob is %d bytes, want %d", len(buf), anchorsBlobSize)
	}
	a := &rule.Anchors{}
	off := 0
	for _, s := range vector.Slots {
		for i := 0; i < vector.MaxAnchorsPerSlot; i++ {
			for j := 0; j < vector.SlotDim; j++ {
				a.Vectors[s][i][j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
				off += 4
			}
		}
		count := binary.LittleEndian.Uint32(buf[off:])
		off += 4
		if count < 1 || count > vector.MaxAnchorsPerSlot {
			return nil, fmt.Errorf("anchor count %d for slot %s outside [1,%d]", count, s, vector.MaxAnchorsPerSlot)
		}
		a.Count[s] = int(count)
	}
	return a, nil
}
