package rule

// Family-specific params payloads, one struct per family. These are
// decoded only by the Anchor Builder when it serializes a rule's params into
// its LLM prompt; the Comparison Kernel never inspects them.

// ToolWhitelistParams backs FamilyToolWhitelist.
type ToolWhitelistParams struct {
	AllowedToolIDs []string `json:"allowed_tool_ids"`
}

// ToolParamConstraintParams backs FamilyToolParamConstraint.
type ToolParamConstraintParams struct {
	ParamName string `json:"param_name"`
	MaxLen    int    `json:"max_len"`
	Pattern   string `json:"pattern,omitempty"`
}

// ToolBlacklistParams backs FamilyToolBlacklist.
type ToolBlacklistParams struct {
	BlockedToolIDs []string `json:"blocked_tool_ids"`
}

// NetEgressParams backs FamilyNetEgress.
type NetEgressParams struct {
	AllowedHosts []string `json:"allowed_hosts"`
	AllowedPorts []int    `json:"allowed_ports"`
}

// NetIngressParams backs FamilyNetIngress.
type NetIngressParams struct {
	AllowedSources []string `json:"allowed_sources"`
}

// DataSensitivityFloorParams backs FamilyDataSensitivityFloor.
type DataSensitivityFloorParams struct {
	MinSensitivity string `json:"min_sensitivity"`
}

// DataVolumeCapParams backs FamilyDataVolumeCap.
type DataVolumeCapParams struct {
	MaxVolume string `json:"max_volume"`
}

// PIIExportBlockParams backs FamilyPIIExportBlock (no fields: presence of
// the rule is itself the constraint).
type PIIExportBlockParams struct{}

// ResourceLocationPinParams backs FamilyResourceLocationPin.
type ResourceLocationPinParams struct {
	AllowedLocations []string `json:"allowed_locations"`
}

// ActorTypeRestrictionParams backs FamilyActorTypeRestriction.
type ActorTypeRestrictionParams struct {
	AllowedActorTypes []string `json:"allowed_actor_types"`
}

// ActionRestrictionParams backs FamilyActionRestriction.
type ActionRestrictionParams struct {
	AllowedActions []string `json:"allowed_actions"`
}

// AuthnRequirementParams backs FamilyAuthnRequirement.
type AuthnRequirementParams struct {
	RequireAuthn bool `json:"require_authn"`
}

// RateLimitContextParams backs FamilyRateLimitContext.
type RateLimitContextParams struct {
	MaxCallsPerWindow int `json:"max_calls_per_window"`
	WindowSeconds     int `json:"window_seconds"`
}

// BulkOperationGuardParams backs FamilyBulkOperationGuard.
type BulkOperationGuardParams struct {
	MaxBulkItems int `json:"max_bulk_items"`
}
