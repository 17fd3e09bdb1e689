package repository

import (
	"context"

	"tripcast-service/internal/domain/entity"
)

// BuildJobRepository defines the interface for build job bookkeeping
type BuildJobRepository interface {
	Create(ctx context.Context, job *entity.BuildJob) error
	UpdateStatus(ctx context.Context, taskID string, status string, errorDetail string) error
	GetLatestByTripID(ctx context.Context, tripID string) (*entity.BuildJob, error)
}
