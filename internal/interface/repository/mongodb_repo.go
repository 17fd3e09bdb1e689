package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTripRepository implements the TripRepository interface
type MongoTripRepository struct {
	collection *mongo.Collection
}

// NewMongoTripRepository creates a new MongoDB trip repository
func NewMongoTripRepository(db *mongo.Database) repository.TripRepository {
	collection := db.Collection("trips")

	ctx := context.Background()

	// Index on phase for operational queries
	phaseIndex := mongo.IndexModel{
		Keys: bson.M{"phase": 1},
	}

	updatedAtIndex := mongo.IndexModel{
		Keys: bson.M{"updatedAt": -1},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		phaseIndex,
		updatedAtIndex,
	})

	return &MongoTripRepository{
		collection: collection,
	}
}

// GetTrip finds a trip by ID
func (r *MongoTripRepository) GetTrip(ctx context.Context, id string) (*entity.Trip, error) {
	var trip entity.Trip
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&trip)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrTripNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// CreateTrip inserts a new trip. Array fields are initialized so $push works on them.
func (r *MongoTripRepository) CreateTrip(ctx context.Context, trip *entity.Trip) error {
	now := time.Now()
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = now
	}
	trip.UpdatedAt = now

	if trip.Messages == nil {
		trip.Messages = []entity.ChatMessage{}
	}
	if trip.TelemetryLog == nil {
		trip.TelemetryLog = []entity.TelemetryEvent{}
	}
	if trip.ResearchDestinations == nil {
		trip.ResearchDestinations = []entity.Destination{}
	}
	if trip.ConfirmedDestinations == nil {
		trip.ConfirmedDestinations = []entity.Destination{}
	}
	if trip.Options == nil {
		trip.Options = []entity.TripOption{}
	}

	_, err := r.collection.InsertOne(ctx, trip)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}
	return nil
}

// UpdateCosts atomically increments the running cost counters
func (r *MongoTripRepository) UpdateCosts(ctx context.Context, id string, aiDelta, apiDelta float64) error {
	update := bson.M{
		"$inc": bson.M{
			"costAiUsd":  aiDelta,
			"costApiUsd": apiDelta,
		},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	return r.updateOne(ctx, id, update, "update costs")
}

// UpdateResearchDestinations stores the latest research candidates
func (r *MongoTripRepository) UpdateResearchDestinations(ctx context.Context, id string, destinations []entity.Destination, summary string) error {
	if destinations == nil {
		destinations = []entity.Destination{}
	}
	return r.set(ctx, id, bson.M{
		"researchDestinations": destinations,
		"researchSummary":      summary,
	}, "update research destinations")
}

// ConfirmDestinations persists the confirmed subset and moves the trip to BUILDING
func (r *MongoTripRepository) ConfirmDestinations(ctx context.Context, id string, destinations []entity.Destination, prefs entity.Preferences) error {
	return r.set(ctx, id, bson.M{
		"destinationsConfirmed": true,
		"confirmedDestinations": destinations,
		"preferences":           prefs,
		"phase":                 entity.PhaseBuilding,
		"errorMessage":          "",
	}, "confirm destinations")
}

// ResetConfirmation returns the trip to AWAITING_CONFIRMATION so confirm can be retried
func (r *MongoTripRepository) ResetConfirmation(ctx context.Context, id string, errorMessage string) error {
	return r.set(ctx, id, bson.M{
		"destinationsConfirmed": false,
		"confirmedDestinations": []entity.Destination{},
		"options":               []entity.TripOption{},
		"phase":                 entity.PhaseAwaitingConfirmation,
		"errorMessage":          errorMessage,
	}, "reset confirmation")
}

// UpdateTripOptions replaces the built options and clears any selection
func (r *MongoTripRepository) UpdateTripOptions(ctx context.Context, id string, opts []entity.TripOption) error {
	if opts == nil {
		opts = []entity.TripOption{}
	}
	update := bson.M{
		"$set": bson.M{
			"options":   opts,
			"updatedAt": time.Now(),
		},
		"$unset": bson.M{"selectedOptionIndex": ""},
	}
	return r.updateOne(ctx, id, update, "update trip options")
}

// UpdateOptionItinerary caches the generated itinerary on one option
func (r *MongoTripRepository) UpdateOptionItinerary(ctx context.Context, id string, optionIndex int, days []entity.ItineraryDay) error {
	if optionIndex < 0 {
		return fmt.Errorf("option %d out of range", optionIndex)
	}
	field := fmt.Sprintf("options.%d", optionIndex)
	filter := bson.M{
		"_id": id,
		field: bson.M{"$exists": true},
	}
	update := bson.M{
		"$set": bson.M{
			field + ".itinerary": days,
			"updatedAt":          time.Now(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update option itinerary: %w", err)
	}
	if result.MatchedCount == 0 {
		if _, getErr := r.GetTrip(ctx, id); getErr != nil {
			return getErr
		}
		return fmt.Errorf("option %d out of range", optionIndex)
	}
	return nil
}

// SelectTripOption records the user's chosen option
func (r *MongoTripRepository) SelectTripOption(ctx context.Context, id string, optionIndex int) error {
	return r.set(ctx, id, bson.M{
		"selectedOptionIndex": optionIndex,
		"phase":               entity.PhaseOptionSelected,
	}, "select trip option")
}

// MarkHandedOff marks the trip as handed to the booking flow
func (r *MongoTripRepository) MarkHandedOff(ctx context.Context, id string) error {
	return r.set(ctx, id, bson.M{"phase": entity.PhaseHandedOff}, "mark handed off")
}

// UpdatePhase sets the phase and error message
func (r *MongoTripRepository) UpdatePhase(ctx context.Context, id string, phase entity.Phase, errorMessage string) error {
	return r.set(ctx, id, bson.M{
		"phase":        phase,
		"errorMessage": errorMessage,
	}, "update phase")
}

// UpdateProgress sets the build progress
func (r *MongoTripRepository) UpdateProgress(ctx context.Context, id string, percent int, message string) error {
	return r.set(ctx, id, bson.M{
		"progress":        percent,
		"progressMessage": message,
	}, "update progress")
}

// AppendTelemetryLog pushes events onto the append-only telemetry log
func (r *MongoTripRepository) AppendTelemetryLog(ctx context.Context, id string, events ...entity.TelemetryEvent) error {
	if len(events) == 0 {
		return nil
	}
	update := bson.M{
		"$push": bson.M{"telemetryLog": bson.M{"$each": events}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	return r.updateOne(ctx, id, update, "append telemetry")
}

// AppendMessage pushes one chat message
func (r *MongoTripRepository) AppendMessage(ctx context.Context, id string, msg entity.ChatMessage) error {
	update := bson.M{
		"$push": bson.M{"messages": msg},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	return r.updateOne(ctx, id, update, "append message")
}

// FindByPhase lists trips in a phase, most recently updated first
func (r *MongoTripRepository) FindByPhase(ctx context.Context, phase entity.Phase, limit int) ([]*entity.Trip, error) {
	limit64 := int64(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"phase": phase}, &options.FindOptions{
		Limit: &limit64,
		Sort:  bson.D{{Key: "updatedAt", Value: -1}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var trips []*entity.Trip
	if err := cursor.All(ctx, &trips); err != nil {
		return nil, err
	}

	return trips, nil
}

func (r *MongoTripRepository) set(ctx context.Context, id string, fields bson.M, op string) error {
	fields["updatedAt"] = time.Now()
	return r.updateOne(ctx, id, bson.M{"$set": fields}, op)
}

func (r *MongoTripRepository) updateOne(ctx context.Context, id string, update bson.M, op string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if result.MatchedCount == 0 {
		return repository.ErrTripNotFound
	}

	return nil
}
