package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"tripcast-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func TestModelResolver_ThreeTiers(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog()
	def := &entity.ModelDescriptor{Provider: "openrouter", Model: "anthropic/claude-3.5-haiku", Active: true, IsDefault: true}
	dir := &fakeDirectory{
		models: map[string]entity.ModelDescriptor{
			"mistral-large": {Provider: "openrouter", Model: "mistral-large", Active: true},
			"retired-model": {Provider: "openai", Model: "retired-model", Active: false},
		},
		defaultModel: def,
	}
	r := NewModelResolver(dir, catalog, time.Minute, testLogger)

	assert.Equal(t, "mistral-large", r.Resolve(ctx, "mistral-large").Model)
	assert.Equal(t, "gpt-4o", r.Resolve(ctx, "gpt-4o").Model, "catalog models resolve when the directory lacks them")
	assert.Equal(t, def.Model, r.Resolve(ctx, "retired-model").Model)
	assert.Equal(t, def.Model, r.Resolve(ctx, "unknown").Model)

	down := NewModelResolver(&fakeDirectory{err: errors.New("connection refused")}, catalog, time.Minute, testLogger)
	md := down.Resolve(ctx, "unknown")
	assert.Equal(t, "gpt-4o-mini", md.Model)
	assert.Equal(t, "openai", md.Provider)

	nilDir := NewModelResolver(nil, catalog, time.Minute, testLogger)
	assert.Equal(t, "gpt-4o-mini", nilDir.Resolve(ctx, "").Model)
}
