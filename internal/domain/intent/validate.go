package intent

import (
	"regexp"

	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
)

// maxIdentifierLength bounds tenant_id/agent_id length to prevent memory
// exhaustion via oversized fields.
const maxIdentifierLength = 255

// identifierPattern restricts tenant_id/agent_id to a conservative character
// set: it must start with an alphanumeric and contain only alphanumerics,
// underscore, hyphen, and dot. This prevents identifiers that could be
// mistaken for path components or injected into downstream storage keys.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Validate checks structural invariants and returns a *guarderr.Error with Kind MalformedIntent or
// VocabularyViolation on the first violation found.
func Validate(in *Intent, contract *vocab.Contract) error {
	if in.TenantID == "" {
		return guarderr.New(guarderr.KindMalformedIntent, "tenant_id is required")
	}
	if err := validateIdentifier("tenant_id", in.TenantID); err != nil {
		return err
	}
	if in.AgentID != "" {
		if err := validateIdentifier("agent_id", in.AgentID); err != nil {
			return err
		}
	}
	if in.Layer == "" {
		return guarderr.New(guarderr.KindMalformedIntent, "layer is required")
	}
	if !contract.IsValidLayer(in.Layer) {
		return guarderr.New(guarderr.KindVocabularyViolation, "layer not in vocabulary: "+string(in.Layer))
	}

	if in.Actor.Type == "" {
		return guarderr.New(guarderr.KindMalformedIntent, "actor.type is required")
	}
	if !contract.IsValidActorType(in.Actor.Type) {
		return guarderr.New(guarderr.KindVocabularyViolation, "actor.type not in vocabulary: "+in.Actor.Type)
	}

	if in.Action == "" {
		return guarderr.New(guarderr.KindMalformedIntent, "action is required")
	}
	if !contract.IsValidAction(in.Action) {
		return guarderr.New(guarderr.KindVocabularyViolation, "action not in vocabulary: "+in.Action)
	}

	if in.Resource.Type == "" {
		return guarderr.New(guarderr.KindMalformedIntent, "resource.type is required")
	}
	if !contract.IsValidResourceType(in.Resource.Type) {
		return guarderr.New(guarderr.KindVocabularyViolation, "resource.type not in vocabulary: "+in.Resource.Type)
	}
	if in.Resource.Location != "" && !contract.IsValidLocation(in.Resource.Location) {
		return guarderr.New(guarderr.KindVocabularyViolation, "resource.location not in vocabulary: "+in.Resource.Location)
	}

	for _, sens := range in.Data.Sensitivity {
		if !contract.IsValidSensitivity(sens) {
			return guarderr.New(guarderr.KindVocabularyViolation, "data.sensitivity not in vocabulary: "+sens)
		}
	}
	if in.Data.Volume != "" && !contract.IsValidVolume(in.Data.Volume) {
		return guarderr.New(guarderr.KindVocabularyViolation, "data.volume not in vocabulary: "+in.Data.Volume)
	}

	if in.Risk.Authn == "" {
		return guarderr.New(guarderr.KindMalformedIntent, "risk.authn is required")
	}
	if !contract.IsValidAuthn(in.Risk.Authn) {
		return guarderr.New(guarderr.KindVocabularyViolation, "risk.authn not in vocabulary: "+in.Risk.Authn)
	}

	return nil
}

func validateIdentifier(field, value string) error {
	if len(value) > maxIdentifierLength {
		return guarderr.New(guarderr.KindMalformedIntent, field+" exceeds maximum length")
	}
	if !identifierPattern.MatchString(value) {
		return guarderr.New(guarderr.KindMalformedIntent, field+" contains invalid characters")
	}
	return nil
}
