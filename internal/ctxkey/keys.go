// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Used by HTTP middleware to store and retrieve the logger with request_id/path fields.
type LoggerKey struct{}

// TenantIDKey is the context key type for the authoritative tenant id
// resolved by the authentication layer. Enforcement never trusts the
// tenant id carried in an intent payload.
type TenantIDKey struct{}
