package usecase

import (
	"fmt"
	"strings"

	"tripcast-service/internal/domain/entity"
)

// GateCode identifies why a phase check failed
type GateCode string

const (
	GateAlreadyConfirmed         GateCode = "ALREADY_CONFIRMED"
	GateNoResearchDestinations   GateCode = "NO_RESEARCH_DESTINATIONS"
	GateDestinationsNotConfirmed GateCode = "DESTINATIONS_NOT_CONFIRMED"
	GateInvalidDestinations      GateCode = "INVALID_DESTINATIONS"
	GateNoTripOptions            GateCode = "NO_TRIP_OPTIONS"
	GateInvalidOptionIndex       GateCode = "INVALID_OPTION_INDEX"
	GateOptionNotSelected        GateCode = "OPTION_NOT_SELECTED"
	GateAlreadyHandedOff         GateCode = "ALREADY_HANDED_OFF"
	GateWrongPhase               GateCode = "WRONG_PHASE"
)

// GateResult is the outcome of a phase check
type GateResult struct {
	Allowed              bool
	Code                 GateCode
	Message              string
	RequiresConfirmation bool
}

// Err returns nil when allowed, otherwise a *PhaseViolationError
func (r GateResult) Err() error {
	if r.Allowed {
		return nil
	}
	return &PhaseViolationError{Result: r}
}

func allowed() GateResult {
	return GateResult{Allowed: true}
}

func denied(code GateCode, msg string) GateResult {
	return GateResult{Code: code, Message: msg}
}

// PhaseGate enforces the trip workflow:
//
//	RESEARCHING -> AWAITING_CONFIRMATION (<-> refinement) -> BUILDING -> OPTIONS_READY -> OPTION_SELECTED -> HANDED_OFF
//
// with BUILDING failures returning to AWAITING_CONFIRMATION. All checks are pure.
type PhaseGate struct{}

// NewPhaseGate creates a new phase gate
func NewPhaseGate() *PhaseGate {
	return &PhaseGate{}
}

// CheckResearchEligibility allows research and refinement until destinations are confirmed
func (g *PhaseGate) CheckResearchEligibility(trip *entity.Trip) GateResult {
	if trip.DestinationsConfirmed {
		return denied(GateAlreadyConfirmed, "destinations are already confirmed")
	}
	if trip.Phase != entity.PhaseResearching && trip.Phase != entity.PhaseAwaitingConfirmation {
		return denied(GateWrongPhase, fmt.Sprintf("research is not possible in phase %s", trip.Phase))
	}
	return allowed()
}

// CheckConfirmationEligibility allows confirmation only once, after research produced destinations
func (g *PhaseGate) CheckConfirmationEligibility(trip *entity.Trip) GateResult {
	if trip.DestinationsConfirmed {
		return denied(GateAlreadyConfirmed, "destinations are already confirmed")
	}
	if len(trip.ResearchDestinations) == 0 {
		return denied(GateNoResearchDestinations, "there are no researched destinations to confirm yet")
	}
	if trip.Phase != entity.PhaseAwaitingConfirmation {
		return denied(GateWrongPhase, fmt.Sprintf("destinations cannot be confirmed in phase %s", trip.Phase))
	}
	return allowed()
}

// CheckPhase2Access allows Phase 2 work only when confirmed destinations exist,
// whatever the other fields say
func (g *PhaseGate) CheckPhase2Access(trip *entity.Trip) GateResult {
	if !trip.HasConfirmedDestinations() {
		return GateResult{
			Code:                 GateDestinationsNotConfirmed,
			Message:              "destinations must be confirmed before building the trip",
			RequiresConfirmation: true,
		}
	}
	return allowed()
}

// CheckOptionSelectionEligibility allows (re)selecting an option until the trip is handed off
func (g *PhaseGate) CheckOptionSelectionEligibility(trip *entity.Trip, index int) GateResult {
	if trip.Phase == entity.PhaseHandedOff {
		return denied(GateAlreadyHandedOff, "the trip has already been handed off")
	}
	if len(trip.Options) == 0 {
		return denied(GateNoTripOptions, "there are no trip options yet")
	}
	if index < 0 || index >= len(trip.Options) {
		return denied(GateInvalidOptionIndex, fmt.Sprintf("option index %d is out of range [0, %d)", index, len(trip.Options)))
	}
	return allowed()
}

// CheckItineraryAccess allows itinerary generation for an existing option
func (g *PhaseGate) CheckItineraryAccess(trip *entity.Trip, index int) GateResult {
	if r := g.CheckPhase2Access(trip); !r.Allowed {
		return r
	}
	if len(trip.Options) == 0 {
		return denied(GateNoTripOptions, "there are no trip options yet")
	}
	if index < 0 || index >= len(trip.Options) {
		return denied(GateInvalidOptionIndex, fmt.Sprintf("option index %d is out of range [0, %d)", index, len(trip.Options)))
	}
	return allowed()
}

// CheckHandoffEligibility allows hand-off once an option is selected
func (g *PhaseGate) CheckHandoffEligibility(trip *entity.Trip) GateResult {
	if trip.Phase == entity.PhaseHandedOff {
		return denied(GateAlreadyHandedOff, "the trip has already been handed off")
	}
	if trip.Phase != entity.PhaseOptionSelected || trip.SelectedOptionIndex == nil {
		return denied(GateOptionNotSelected, "select a trip option before handing off")
	}
	return allowed()
}

// SelectConfirmed resolves the names a user confirmed against the researched
// destinations. An empty list confirms every researched destination. Any name
// that was not researched fails with INVALID_DESTINATIONS.
func (g *PhaseGate) SelectConfirmed(trip *entity.Trip, names []string) ([]entity.Destination, GateResult) {
	if len(names) == 0 {
		return append([]entity.Destination(nil), trip.ResearchDestinations...), allowed()
	}

	var (
		selected []entity.Destination
		unknown  []string
		seen     = make(map[string]bool)
	)
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		match := false
		for _, d := range trip.ResearchDestinations {
			if d.SameName(name) {
				selected = append(selected, d)
				match = true
				break
			}
		}
		if !match {
			unknown = append(unknown, name)
		}
	}

	if len(unknown) > 0 {
		return nil, denied(GateInvalidDestinations, fmt.Sprintf("not among researched destinations: %s", strings.Join(unknown, ", ")))
	}
	if len(selected) == 0 {
		return nil, denied(GateInvalidDestinations, "no destinations selected")
	}
	return selected, allowed()
}
