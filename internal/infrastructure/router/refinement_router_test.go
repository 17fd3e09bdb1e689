package router

import (
	"testing"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type stubMatcher struct {
	word   string
	intent usecase.RefinementIntent
}

func (m stubMatcher) Match(message string, _ []entity.Destination) (usecase.RefinementIntent, bool) {
	if message == m.word {
		return m.intent, true
	}
	return nil, false
}

func TestRefinementRouter_FirstMatchWins(t *testing.T) {
	r := NewRefinementRouter(logger.NewNopLogger())
	r.Register(stubMatcher{word: "ok", intent: usecase.ConfirmIntent{}})
	r.Register(stubMatcher{word: "ok", intent: usecase.RefineByFilterIntent{Filter: "ok"}})
	r.Register(stubMatcher{word: "2", intent: usecase.RefineByIndexIntent{Indices: []int{2}}})

	assert.Equal(t, usecase.ConfirmIntent{}, r.Classify("ok", nil))
	assert.Equal(t, usecase.RefineByIndexIntent{Indices: []int{2}}, r.Classify("2", nil))
}

func TestRefinementRouter_DefaultsToQuestion(t *testing.T) {
	r := NewRefinementRouter(logger.NewNopLogger())
	assert.Equal(t, usecase.QuestionIntent{Text: "tell me more"}, r.Classify("  tell me more ", nil))
}
