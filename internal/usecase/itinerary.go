package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/pkg/utils"

	"github.com/samber/lo"
)

// GetItinerary returns the day-by-day plan for one option, generating and
// storing it on first request. The second value reports whether the plan came
// from storage. Concurrent requests for the same option share one generation.
func (o *TripBuildOrchestrator) GetItinerary(ctx context.Context, tripID string, optionIndex int) ([]entity.ItineraryDay, bool, error) {
	trip, err := o.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, false, err
	}
	if err := o.gate.CheckItineraryAccess(trip, optionIndex).Err(); err != nil {
		return nil, false, err
	}

	option := trip.Options[optionIndex]
	if len(option.Itinerary) > 0 {
		return option.Itinerary, true, nil
	}

	key := fmt.Sprintf("%s:%d", tripID, optionIndex)
	v, err, _ := o.itineraries.Do(key, func() (interface{}, error) {
		return o.generateItinerary(ctx, trip, optionIndex)
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]entity.ItineraryDay), false, nil
}

func (o *TripBuildOrchestrator) generateItinerary(ctx context.Context, trip *entity.Trip, optionIndex int) ([]entity.ItineraryDay, error) {
	option := trip.Options[optionIndex]
	ledger := NewCostLedger(trip.ID, o.trips, o.metrics, o.logger)
	schedule := o.planSchedule(trip)

	days := lo.SumBy(option.Hotels, func(h entity.HotelStay) int { return h.Nights }) + 1
	if trip.Preferences.DurationDays > 0 {
		days = trip.Preferences.DurationDays
	}

	prompt, err := renderPrompt(itineraryTemplate, map[string]interface{}{
		"StartDate":   schedule.Depart.Format(dateLayout),
		"Days":        days,
		"Option":      compactJSON(option),
		"Preferences": trip.Preferences,
	})
	if err != nil {
		return nil, fmt.Errorf("render itinerary prompt: %w", err)
	}

	resp, err := o.generator.Generate(ctx, ledger, GenerationRequest{
		Operation:    opItinerary,
		SystemPrompt: plannerSystemPrompt,
		Prompt:       prompt,
		Model:        trip.Model,
		MaxTokens:    3000,
		Temperature:  0.5,
		JSONMode:     true,
	})
	if err != nil {
		o.itineraryFailed(ctx, ledger, optionIndex, err)
		return nil, err
	}

	var plan []entity.ItineraryDay
	if err := utils.ExtractInto(resp.Text, utils.ExtractOptions{Shape: utils.ShapeArray, RequiredKeys: []string{"day"}}, &plan); err != nil {
		o.itineraryFailed(ctx, ledger, optionIndex, err)
		return nil, err
	}
	plan = normalizeItinerary(plan)

	if err := o.trips.UpdateOptionItinerary(ctx, trip.ID, optionIndex, plan); err != nil {
		return nil, fmt.Errorf("save itinerary: %w", err)
	}

	o.logger.Info("Itinerary generated", "tripID", trip.ID, "option", optionIndex, "days", len(plan))
	return plan, nil
}

func (o *TripBuildOrchestrator) itineraryFailed(ctx context.Context, ledger *CostLedger, optionIndex int, err error) {
	o.metrics.IncError(opItinerary)
	ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventItineraryFailed, map[string]interface{}{
		"option": optionIndex,
		"error":  err.Error(),
	}))
}

// normalizeItinerary orders days and renumbers them 1..n
func normalizeItinerary(plan []entity.ItineraryDay) []entity.ItineraryDay {
	plan = lo.Filter(plan, func(d entity.ItineraryDay, _ int) bool {
		return strings.TrimSpace(d.Title) != "" || len(d.Activities) > 0
	})
	sort.SliceStable(plan, func(i, j int) bool { return plan[i].Day < plan[j].Day })
	for i := range plan {
		plan[i].Day = i + 1
	}
	return plan
}
