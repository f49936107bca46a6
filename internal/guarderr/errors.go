// Package guarderr defines the closed error taxonomy exposed across the
// engine's transport-agnostic boundary. Every error that can
// escape install/enforce carries one of the Kind constants below so callers
// can branch on it without string matching.
package guarderr

import (
	"errors"
	"fmt"
)

// Kind is a stable, external error name.
type Kind string

const (
	// KindVocabularyViolation: an enumerated field value is outside the
	// vocabulary contract.
	KindVocabularyViolation Kind = "VocabularyViolation"
	// KindMalformedIntent: the intent is missing a required field
	// (tenant_id, agent_id, layer) or is otherwise structurally invalid.
	KindMalformedIntent Kind = "MalformedIntent"
	// KindEmbedderFailure: the external Embedder was unavailable, timed
	// out, or returned a dimension mismatch.
	KindEmbedderFailure Kind = "EmbedderFailure"
	// KindAnchorGenerationFailure: the LLM Anchor Provider failed, timed
	// out, or returned a response that didn't validate against the anchor
	// schema.
	KindAnchorGenerationFailure Kind = "AnchorGenerationFailure"
	// KindDuplicateRuleId: install was attempted for a rule_id that is
	// already installed.
	KindDuplicateRuleId Kind = "DuplicateRuleId"
	// KindRuleNotFound: a lookup referenced a rule_id that isn't installed.
	KindRuleNotFound Kind = "RuleNotFound"
	// KindInternalInconsistency: a bug-indicating internal invariant was
	// violated (missing anchors for a listed rule, unavailable projection
	// matrix, unreachable slot id).
	KindInternalInconsistency Kind = "InternalInconsistency"
	// KindDeadlineExceeded: the call's deadline elapsed before a decision
	// could be produced. This is a BLOCK policy decision, not solely a
	// request error; see enforcement.Result.Reason.
	KindDeadlineExceeded Kind = "DeadlineExceeded"
	// KindNoRulesConfigured: the requested (tenant, agent, layer) scope has
	// no installed rules. This is a BLOCK policy decision (fail-closed).
	KindNoRulesConfigured Kind = "NoRulesConfigured"
)

// Error is the concrete error type carrying a stable Kind plus a
// human-readable message and optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an *Error with the given message (used as is) wrapping
// cause, so errors.Is and errors.As reach the cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err (or anything it wraps) is a guarderr.Error of the
// given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err if it is (or wraps) a guarderr.Error,
// returning ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
