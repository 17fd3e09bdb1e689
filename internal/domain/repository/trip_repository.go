package repository

import (
	"context"
	"errors"

	"tripcast-service/internal/domain/entity"
)

// ErrTripNotFound is returned when a trip id does not exist
var ErrTripNotFound = errors.New("trip not found")

// TripRepository is the durable storage contract for trips.
//
// Writes are read-modify-write per trip. Callers must guarantee a single
// writer per trip at a time; the store does not detect conflicting writers.
// UpdateCosts is the only operation that is atomic with respect to
// concurrent writers.
type TripRepository interface {
	GetTrip(ctx context.Context, id string) (*entity.Trip, error)
	CreateTrip(ctx context.Context, trip *entity.Trip) error
	UpdateCosts(ctx context.Context, id string, aiDelta, apiDelta float64) error
	UpdateResearchDestinations(ctx context.Context, id string, destinations []entity.Destination, summary string) error
	ConfirmDestinations(ctx context.Context, id string, destinations []entity.Destination, prefs entity.Preferences) error
	ResetConfirmation(ctx context.Context, id string, errorMessage string) error
	UpdateTripOptions(ctx context.Context, id string, options []entity.TripOption) error
	UpdateOptionItinerary(ctx context.Context, id string, optionIndex int, days []entity.ItineraryDay) error
	SelectTripOption(ctx context.Context, id string, optionIndex int) error
	MarkHandedOff(ctx context.Context, id string) error
	UpdatePhase(ctx context.Context, id string, phase entity.Phase, errorMessage string) error
	UpdateProgress(ctx context.Context, id string, percent int, message string) error
	AppendTelemetryLog(ctx context.Context, id string, events ...entity.TelemetryEvent) error
	AppendMessage(ctx context.Context, id string, msg entity.ChatMessage) error
}
