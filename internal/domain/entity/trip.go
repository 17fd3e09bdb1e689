package entity

import (
	"time"
)

// Phase is the workflow state of a trip
type Phase string

// Trip phases
const (
	PhaseResearching          Phase = "RESEARCHING"
	PhaseAwaitingConfirmation Phase = "AWAITING_CONFIRMATION"
	PhaseBuilding             Phase = "BUILDING"
	PhaseOptionsReady         Phase = "OPTIONS_READY"
	PhaseOptionSelected       Phase = "OPTION_SELECTED"
	PhaseHandedOff            Phase = "HANDED_OFF"
)

// Trip is the long-lived planning record shared by both phases
type Trip struct {
	ID                    string           `bson:"_id" json:"id"`
	Phase                 Phase            `bson:"phase" json:"phase"`
	UserRequest           string           `bson:"userRequest" json:"user_request"`
	Model                 string           `bson:"model,omitempty" json:"model,omitempty"`
	Messages              []ChatMessage    `bson:"messages" json:"messages"`
	ResearchDestinations  []Destination    `bson:"researchDestinations" json:"research_destinations"`
	ResearchSummary       string           `bson:"researchSummary" json:"research_summary"`
	DestinationsConfirmed bool             `bson:"destinationsConfirmed" json:"destinations_confirmed"`
	ConfirmedDestinations []Destination    `bson:"confirmedDestinations" json:"confirmed_destinations"`
	Preferences           Preferences      `bson:"preferences" json:"preferences"`
	Options               []TripOption     `bson:"options" json:"options"`
	SelectedOptionIndex   *int             `bson:"selectedOptionIndex,omitempty" json:"selected_option_index,omitempty"`
	CostAIUSD             float64          `bson:"costAiUsd" json:"cost_ai_usd"`
	CostAPIUSD            float64          `bson:"costApiUsd" json:"cost_api_usd"`
	TelemetryLog          []TelemetryEvent `bson:"telemetryLog" json:"-"`
	Progress              int              `bson:"progress" json:"progress"`
	ProgressMessage       string           `bson:"progressMessage" json:"progress_message"`
	ErrorMessage          string           `bson:"errorMessage,omitempty" json:"error_message,omitempty"`
	CreatedAt             time.Time        `bson:"createdAt" json:"created_at"`
	UpdatedAt             time.Time        `bson:"updatedAt" json:"updated_at"`
}

// TotalCostUSD returns the accumulated spend across AI and API calls
func (t *Trip) TotalCostUSD() float64 {
	return t.CostAIUSD + t.CostAPIUSD
}

// HasConfirmedDestinations reports whether Phase 2 may run for this trip
func (t *Trip) HasConfirmedDestinations() bool {
	return t.DestinationsConfirmed && len(t.ConfirmedDestinations) > 0
}

// Preferences are user travel preferences captured at confirmation time
type Preferences struct {
	DurationDays     int     `bson:"durationDays" json:"duration_days"`
	Adults           int     `bson:"adults" json:"adults"`
	Children         int     `bson:"children" json:"children"`
	LuxuryLevel      string  `bson:"luxuryLevel" json:"luxury_level"`
	ActivityLevel    string  `bson:"activityLevel" json:"activity_level"`
	DepartureAirport string  `bson:"departureAirport" json:"departure_airport"`
	StartDate        string  `bson:"startDate" json:"start_date"`
	BudgetUSD        float64 `bson:"budgetUsd" json:"budget_usd"`
}

// Travelers returns the party size, never less than one
func (p Preferences) Travelers() int {
	if n := p.Adults + p.Children; n > 0 {
		return n
	}
	return 1
}

// Chat roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of the planning conversation
type ChatMessage struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}
