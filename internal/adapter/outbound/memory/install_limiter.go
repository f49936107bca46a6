package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fencio-dev/guard-sub000/internal/domain/ratelimit"
)

// pruneThreshold is the tracked-tenant count past which Reserve sweeps
// out fully repaid entries. Repaid entries carry no state worth keeping;
// the sweep only exists to bound the map on long-lived processes serving
// many tenants.
const pruneThreshold = 4096

// InstallLimiter meters rule installations per tenant in memory.
//
// Each tenant's spent budget is tracked as a single repayment deadline:
// installing n rules pushes the deadline forward by n emission intervals
// (Window/Rules), and a batch is accepted while the outstanding debt plus
// the batch's cost still fits inside the Burst allowance. One timestamp
// per tenant is the entire state, so there is no background cleanup
// goroutine; a repaid deadline is simply in the past.
//
// Thread-safe for concurrent use.
type InstallLimiter struct {
	budget ratelimit.Budget
	now    func() time.Time

	mu    sync.Mutex
	debts map[string]time.Time // tenant -> instant all spent budget is repaid
}

// NewInstallLimiter creates an in-memory install limiter for the given
// budget.
func NewInstallLimiter(budget ratelimit.Budget) *InstallLimiter {
	return NewInstallLimiterWithClock(budget, time.Now)
}

// NewInstallLimiterWithClock creates a limiter with an injectable clock,
// so tests can move time instead of sleeping.
func NewInstallLimiterWithClock(budget ratelimit.Budget, clock func() time.Time) *InstallLimiter {
	return &InstallLimiter{
		budget: budget,
		now:    clock,
		debts:  make(map[string]time.Time),
	}
}

// Reserve charges tenantID's budget for a batch of rules. The whole batch
// is accepted or rejected; on rejection nothing is charged.
func (l *InstallLimiter) Reserve(ctx context.Context, tenantID string, rules int) (ratelimit.Decision, error) {
	if err := ctx.Err(); err != nil {
		return ratelimit.Decision{}, err
	}
	if l.budget.Unlimited() || rules <= 0 {
		return ratelimit.Decision{Allowed: true, Remaining: l.burst()}, nil
	}

	emission := l.budget.Window / time.Duration(l.budget.Rules)
	capacity := time.Duration(l.burst()) * emission
	cost := time.Duration(rules) * emission

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	outstanding := time.Duration(0)
	if deadline, ok := l.debts[tenantID]; ok {
		if deadline.After(now) {
			outstanding = deadline.Sub(now)
		} else {
			delete(l.debts, tenantID)
		}
	}

	if cost > capacity {
		// The batch can never fit the Burst allowance, no matter how
		// long the tenant waits. Callers split the bundle instead.
		return ratelimit.Decision{
			Allowed:   false,
			Remaining: int((capacity - outstanding) / emission),
		}, nil
	}

	if outstanding+cost > capacity {
		return ratelimit.Decision{
			Allowed:    false,
			Remaining:  int((capacity - outstanding) / emission),
			RetryAfter: outstanding + cost - capacity,
		}, nil
	}

	l.debts[tenantID] = now.Add(outstanding + cost)
	if len(l.debts) > pruneThreshold {
		l.prune(now)
	}
	return ratelimit.Decision{
		Allowed:   true,
		Remaining: int((capacity - outstanding - cost) / emission),
	}, nil
}

// burst returns the effective burst allowance.
func (l *InstallLimiter) burst() int {
	if l.budget.Burst > 0 {
		return l.budget.Burst
	}
	return l.budget.Rules
}

// prune drops tenants whose debt is fully repaid. Caller holds l.mu.
func (l *InstallLimiter) prune(now time.Time) {
	for tenant, deadline := range l.debts {
		if !deadline.After(now) {
			delete(l.debts, tenant)
		}
	}
}

// TrackedTenants reports how many tenants currently carry outstanding
// debt, for tests and the rate-limit-keys gauge.
func (l *InstallLimiter) TrackedTenants() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.debts)
}

var _ ratelimit.InstallLimiter = (*InstallLimiter)(nil)
