package usecase

import (
	"fmt"
	"strings"
)

// PhaseViolationError is returned when a request is not allowed in the trip's current phase
type PhaseViolationError struct {
	Result GateResult
}

func (e *PhaseViolationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Result.Code, e.Result.Message)
}

// ProviderAttempt is one failed call inside a fallback chain
type ProviderAttempt struct {
	Provider string
	Err      error
}

// AllProvidersFailedError is returned when every available provider in a chain failed
type AllProvidersFailedError struct {
	Kind      string
	Operation string
	Attempts  []ProviderAttempt
	Skipped   []string
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("no %s providers available for %s (unconfigured: %s)", e.Kind, e.Operation, strings.Join(e.Skipped, ", "))
	}
	msgs := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		msgs = append(msgs, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("all %s providers failed for %s: %s", e.Kind, e.Operation, strings.Join(msgs, "; "))
}

// BackgroundPipelineFailure wraps an error raised inside a background Phase 2 build
type BackgroundPipelineFailure struct {
	TripID string
	Err    error
}

func (e *BackgroundPipelineFailure) Error() string {
	return fmt.Sprintf("background build for trip %s failed: %v", e.TripID, e.Err)
}

func (e *BackgroundPipelineFailure) Unwrap() error {
	return e.Err
}
