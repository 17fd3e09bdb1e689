package repository

import (
	"context"
	"errors"

	"tripcast-service/internal/domain/entity"
)

// ErrModelNotFound is returned when the directory has no matching active model
var ErrModelNotFound = errors.New("model not found")

// ModelDirectoryRepository looks up models that can be enabled or repriced without a deploy
type ModelDirectoryRepository interface {
	GetModel(ctx context.Context, model string) (*entity.ModelDescriptor, error)
	GetDefaultModel(ctx context.Context) (*entity.ModelDescriptor, error)
}
