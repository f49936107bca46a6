package ratelimit

import "context"

// InstallLimiter meters rule installations per tenant.
//
// Reserve atomically charges the tenant's budget for a whole batch: the
// batch is accepted in full or rejected in full, so a tenant can never
// land a partial batch by racing the meter. A batch larger than the
// configured Burst is rejected outright; callers split oversized bundles.
//
// The interface is storage-agnostic; the in-memory implementation lives
// in the memory adapter package.
type InstallLimiter interface {
	Reserve(ctx context.Context, tenantID string, rules int) (Decision, error)
}
