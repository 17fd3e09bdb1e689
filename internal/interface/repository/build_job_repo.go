package repository

import (
	"context"
	"errors"
	"fmt"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormBuildJobRepository implements the BuildJobRepository interface
type GormBuildJobRepository struct {
	db *gorm.DB
}

// NewGormBuildJobRepository creates a new GORM build job repository
func NewGormBuildJobRepository(db *gorm.DB) repository.BuildJobRepository {
	return &GormBuildJobRepository{
		db: db,
	}
}

// BuildJobs GORM model for database mapping
type BuildJobs struct {
	gorm.Model
	IdAsynq   string `gorm:"column:id_asynq;index"`
	Type      string `gorm:"column:type"`
	QueueName string `gorm:"column:queue_name"`
	Payload   string `gorm:"column:payload"`
	TripID    string `gorm:"column:trip_id;index"`
	Status    string `gorm:"column:status"`
	Error     string `gorm:"column:error"`
}

// TableName overrides the default table name
func (BuildJobs) TableName() string {
	return "build_jobs"
}

// Create inserts a new build job into the database
func (r *GormBuildJobRepository) Create(ctx context.Context, job *entity.BuildJob) error {
	model := BuildJobs{
		IdAsynq:   job.TaskID,
		Type:      job.Type,
		QueueName: job.QueueName,
		Payload:   job.Payload,
		TripID:    job.TripID,
		Status:    job.Status,
		Error:     job.Error,
	}

	result := r.db.WithContext(ctx).Create(&model)
	if result.Error != nil {
		return result.Error
	}

	// Update the entity with the generated ID
	job.ID = model.ID
	job.CreatedAt = model.CreatedAt
	job.UpdatedAt = model.UpdatedAt

	return nil
}

// UpdateStatus sets the status of the most recent job with the given task id
func (r *GormBuildJobRepository) UpdateStatus(ctx context.Context, taskID string, status string, errorDetail string) error {
	var model BuildJobs
	result := r.db.WithContext(ctx).
		Where("id_asynq = ?", taskID).
		Order("id DESC").
		First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("no build job found with task id: %s", taskID)
		}
		return result.Error
	}

	return r.db.WithContext(ctx).Model(&model).Updates(map[string]interface{}{
		"status": status,
		"error":  errorDetail,
	}).Error
}

// GetLatestByTripID returns the newest build job of a trip, or nil when none exists
func (r *GormBuildJobRepository) GetLatestByTripID(ctx context.Context, tripID string) (*entity.BuildJob, error) {
	var model BuildJobs
	result := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("id DESC").
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	// Convert to domain entity
	return &entity.BuildJob{
		ID:        model.ID,
		TaskID:    model.IdAsynq,
		Type:      model.Type,
		QueueName: model.QueueName,
		Payload:   model.Payload,
		TripID:    model.TripID,
		Status:    model.Status,
		Error:     model.Error,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}
