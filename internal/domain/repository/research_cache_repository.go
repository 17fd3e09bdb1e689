package repository

import (
	"context"

	"tripcast-service/internal/domain/entity"
)

// ResearchCacheRepository keeps the findings of the latest research run per trip.
// Get returns nil without error on a cache miss.
type ResearchCacheRepository interface {
	Get(ctx context.Context, tripID string) (*entity.ResearchFindings, error)
	Set(ctx context.Context, findings *entity.ResearchFindings) error
	Delete(ctx context.Context, tripID string) error
}
