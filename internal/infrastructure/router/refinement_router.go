package router

import (
	"fmt"
	"strings"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"
)

// RefinementRouter routes refinement messages to the first matcher that recognizes them
type RefinementRouter struct {
	matchers []usecase.IntentMatcher
	logger   logger.Logger
}

// NewRefinementRouter creates a new refinement router
func NewRefinementRouter(logger logger.Logger) *RefinementRouter {
	return &RefinementRouter{
		matchers: make([]usecase.IntentMatcher, 0),
		logger:   logger,
	}
}

// Register registers a matcher; matchers are consulted in registration order
func (r *RefinementRouter) Register(matcher usecase.IntentMatcher) {
	r.matchers = append(r.matchers, matcher)
	r.logger.Info("Registered intent matcher", "matcher", fmt.Sprintf("%T", matcher))
}

// Classify returns the intent of the first matching matcher. Anything
// unrecognized is treated as a question.
func (r *RefinementRouter) Classify(message string, destinations []entity.Destination) usecase.RefinementIntent {
	for _, m := range r.matchers {
		if intent, ok := m.Match(message, destinations); ok {
			r.logger.Debug("Classified refinement message",
				"intent", usecase.IntentName(intent),
				"matcher", fmt.Sprintf("%T", m))
			return intent
		}
	}
	return usecase.QuestionIntent{Text: strings.TrimSpace(message)}
}
