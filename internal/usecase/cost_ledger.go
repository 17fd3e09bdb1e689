package usecase

import (
	"context"
	"sync"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/metrics"
)

// AICall describes one generative attempt to be charged
type AICall struct {
	Provider  string
	Model     string
	Operation string
	TokensIn  int
	TokensOut int
	Pricing   entity.ModelPricing
	Duration  time.Duration
	Err       error
}

// APICall describes a successful flat-priced external call
type APICall struct {
	Provider    string
	Operation   string
	Calls       int
	UnitCostUSD float64
	Duration    time.Duration
}

// CostLedger accumulates the cost of one orchestration run and mirrors every
// line item to the trip record (cost totals and telemetry log). It is safe for
// concurrent use by the fan-out stages of a run.
type CostLedger struct {
	tripID  string
	trips   repository.TripRepository
	metrics *metrics.Metrics
	logger  logger.Logger

	mu      sync.Mutex
	entries []entity.CostEntry
}

// NewCostLedger creates a ledger for one run over tripID
func NewCostLedger(tripID string, trips repository.TripRepository, m *metrics.Metrics, log logger.Logger) *CostLedger {
	return &CostLedger{
		tripID:  tripID,
		trips:   trips,
		metrics: m,
		logger:  log.With("tripID", tripID),
	}
}

// TripID returns the trip this ledger writes to
func (l *CostLedger) TripID() string {
	return l.tripID
}

// TrackAI records a generative call. Failed attempts are recorded with zero
// tokens and zero cost.
func (l *CostLedger) TrackAI(ctx context.Context, call AICall) entity.CostEntry {
	entry := entity.CostEntry{
		Provider:  call.Provider,
		Model:     call.Model,
		Operation: call.Operation,
		Category:  entity.CostCategoryAI,
		Quantity:  1,
		Success:   call.Err == nil,
		Duration:  call.Duration,
		Timestamp: time.Now(),
	}
	if call.Err != nil {
		entry.Error = call.Err.Error()
	} else {
		entry.TokensIn = call.TokensIn
		entry.TokensOut = call.TokensOut
		entry.CostUSD = call.Pricing.Cost(call.TokensIn, call.TokensOut)
	}

	l.record(ctx, entry, entity.EventAICall)
	return entry
}

// TrackAPI records a flat-priced external call
func (l *CostLedger) TrackAPI(ctx context.Context, call APICall) entity.CostEntry {
	calls := call.Calls
	if calls < 1 {
		calls = 1
	}
	entry := entity.CostEntry{
		Provider:  call.Provider,
		Operation: call.Operation,
		Category:  entity.CostCategoryAPI,
		Quantity:  calls,
		CostUSD:   float64(calls) * call.UnitCostUSD,
		Success:   true,
		Duration:  call.Duration,
		Timestamp: time.Now(),
	}

	l.record(ctx, entry, entity.EventAPICall)
	return entry
}

// LogEvent appends an event to the trip telemetry log. Storage errors are logged, not returned.
func (l *CostLedger) LogEvent(ctx context.Context, event entity.TelemetryEvent) {
	if err := l.trips.AppendTelemetryLog(ctx, l.tripID, event); err != nil {
		l.logger.Warn("Failed to append telemetry", "event", event.Event, "error", err)
	}
}

// LogProviderFailure records a failed uncharged provider call in the telemetry log
func (l *CostLedger) LogProviderFailure(ctx context.Context, provider, operation string, err error) {
	event := entity.NewTelemetryEvent(entity.EventProviderFailed, map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
	})
	event.Provider = provider
	l.LogEvent(ctx, event)
}

func (l *CostLedger) record(ctx context.Context, entry entity.CostEntry, eventName string) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	if entry.CostUSD > 0 {
		aiDelta, apiDelta := 0.0, 0.0
		if entry.Category == entity.CostCategoryAI {
			aiDelta = entry.CostUSD
		} else {
			apiDelta = entry.CostUSD
		}
		if err := l.trips.UpdateCosts(ctx, l.tripID, aiDelta, apiDelta); err != nil {
			l.logger.Warn("Failed to persist cost delta", "provider", entry.Provider, "error", err)
		}
		l.metrics.AddCost(entry.Category, entry.CostUSD)
	}

	details := map[string]interface{}{
		"operation": entry.Operation,
		"success":   entry.Success,
	}
	if entry.Category == entity.CostCategoryAI {
		details["tokens_in"] = entry.TokensIn
		details["tokens_out"] = entry.TokensOut
	} else {
		details["calls"] = entry.Quantity
	}
	if entry.Error != "" {
		details["error"] = entry.Error
	}

	event := entity.NewTelemetryEvent(eventName, details)
	event.Provider = entry.Provider
	event.Model = entry.Model
	event.Tokens = entry.TokensIn + entry.TokensOut
	event.CostUSD = entry.CostUSD
	event.DurationMs = entry.Duration.Milliseconds()
	l.LogEvent(ctx, event)
}

// Entries returns a copy of the recorded line items
func (l *CostLedger) Entries() []entity.CostEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]entity.CostEntry(nil), l.entries...)
}

// Totals returns the AI and API spend of this run
func (l *CostLedger) Totals() (ai, api float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Category == entity.CostCategoryAI {
			ai += e.CostUSD
		} else {
			api += e.CostUSD
		}
	}
	return ai, api
}

// TotalUSD returns the total spend of this run
func (l *CostLedger) TotalUSD() float64 {
	ai, api := l.Totals()
	return ai + api
}

// ExceedsTarget reports whether the run spent more than threshold. Advisory only.
func (l *CostLedger) ExceedsTarget(threshold float64) bool {
	return threshold > 0 && l.TotalUSD() > threshold
}

// WarnIfOverTarget logs and records a telemetry event when the run went over budget
func (l *CostLedger) WarnIfOverTarget(ctx context.Context, threshold float64) {
	if !l.ExceedsTarget(threshold) {
		return
	}
	total := l.TotalUSD()
	l.logger.Warn("Run exceeded cost target", "totalUSD", total, "targetUSD", threshold)
	l.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventCostTargetExceeded, map[string]interface{}{
		"total_usd":  total,
		"target_usd": threshold,
	}))
}
