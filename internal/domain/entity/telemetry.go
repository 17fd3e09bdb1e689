package entity

import "time"

// Telemetry event names
const (
	EventAICall                 = "ai_call"
	EventAPICall                = "api_call"
	EventProviderFailed         = "provider_failed"
	EventInterpretationFallback = "interpretation_fallback"
	EventEnrichmentDegraded     = "enrichment_degraded"
	EventResearchFailed         = "research_failed"
	EventResearchCompleted      = "research_completed"
	EventDestinationsConfirmed  = "destinations_confirmed"
	EventBookingSearchFailed    = "booking_search_failed"
	EventOptionItemDropped      = "option_item_dropped"
	EventBuildStarted           = "build_started"
	EventBuildCompleted         = "build_completed"
	EventBuildFailed            = "build_failed"
	EventItineraryFailed        = "itinerary_failed"
	EventOptionSelected         = "option_selected"
	EventHandedOff              = "handed_off"
	EventCostTargetExceeded     = "cost_target_exceeded"
)

// TelemetryEvent is an append-only entry in a trip's telemetry log
type TelemetryEvent struct {
	Timestamp  time.Time              `bson:"timestamp" json:"timestamp"`
	Event      string                 `bson:"event" json:"event"`
	Provider   string                 `bson:"provider,omitempty" json:"provider,omitempty"`
	Model      string                 `bson:"model,omitempty" json:"model,omitempty"`
	Tokens     int                    `bson:"tokens,omitempty" json:"tokens,omitempty"`
	CostUSD    float64                `bson:"costUsd,omitempty" json:"cost_usd,omitempty"`
	DurationMs int64                  `bson:"durationMs,omitempty" json:"duration_ms,omitempty"`
	Details    map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
}

// NewTelemetryEvent stamps an event with the current time
func NewTelemetryEvent(event string, details map[string]interface{}) TelemetryEvent {
	return TelemetryEvent{
		Timestamp: time.Now(),
		Event:     event,
		Details:   details,
	}
}
