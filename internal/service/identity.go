package service

import (
	"context"

	"github.com/fencio-dev/guard-sub000/internal/ctxkey"
)

// TenantIdentity produces the authoritative tenant id for a request.
// Implementations typically read a
// value an authentication layer placed on the context.
type TenantIdentity interface {
	// TenantID returns the authoritative tenant id for ctx. A false
	// return means the caller's payload value stands (e.g. trusted
	// in-process callers like the CLI).
	TenantID(ctx context.Context) (string, bool)
}

// ContextTenantIdentity reads the tenant id the authentication middleware
// stored on the context.
type ContextTenantIdentity struct{}

// TenantID implements TenantIdentity.
func (ContextTenantIdentity) TenantID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxkey.TenantIDKey{}).(string)
	return v, ok && v != ""
}

// StaticTenantIdentity always resolves to a fixed tenant, for single-tenant
// deployments and the CLI.
type StaticTenantIdentity string

// TenantID implements TenantIdentity.
func (s StaticTenantIdentity) TenantID(ctx context.Context) (string, bool) {
	return string(s), s != ""
}

// PayloadTenantIdentity trusts the intent payload's tenant id, i.e. it
// never overrides. Only suitable for in-process callers that already
// authenticated out of band.
type PayloadTenantIdentity struct{}

// TenantID implements TenantIdentity.
func (PayloadTenantIdentity) TenantID(ctx context.Context) (string, bool) {
	return "", false
}

// WithTenantID returns a context carrying the authoritative tenant id.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxkey.TenantIDKey{}, tenantID)
}
