package usecase

import (
	"tripcast-service/internal/domain/entity"
)

// RefinementIntent is what a traveller's message means while destinations
// await confirmation. The set of implementations is closed.
type RefinementIntent interface {
	intentName() string
}

// ConfirmIntent accepts every researched destination
type ConfirmIntent struct{}

// RefineByIndexIntent keeps the destinations at the given 1-based positions
type RefineByIndexIntent struct {
	Indices []int
}

// RefineByFilterIntent asks for a re-synthesis guided by free text
type RefineByFilterIntent struct {
	Filter string
}

// QuestionIntent is anything else; it is answered without changing the trip
type QuestionIntent struct {
	Text string
}

func (ConfirmIntent) intentName() string        { return "confirm" }
func (RefineByIndexIntent) intentName() string  { return "refine_by_index" }
func (RefineByFilterIntent) intentName() string { return "refine_by_filter" }
func (QuestionIntent) intentName() string       { return "question" }

// IntentName returns a stable label for logs and API responses
func IntentName(intent RefinementIntent) string {
	if intent == nil {
		return "none"
	}
	return intent.intentName()
}

// IntentMatcher recognizes one kind of refinement message
type IntentMatcher interface {
	// Match returns the intent when message is recognized
	Match(message string, destinations []entity.Destination) (RefinementIntent, bool)
}

// RefinementClassifier turns a message into exactly one intent
type RefinementClassifier interface {
	// Register appends a matcher; matchers are consulted in registration order
	Register(matcher IntentMatcher)

	// Classify returns the first matching intent, or a QuestionIntent
	Classify(message string, destinations []entity.Destination) RefinementIntent
}
