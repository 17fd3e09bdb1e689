package repository

import (
	"context"
	"errors"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"

	"gorm.io/gorm"
)

// GormModelDirectoryRepository implements the ModelDirectoryRepository interface
type GormModelDirectoryRepository struct {
	db *gorm.DB
}

// NewGormModelDirectoryRepository creates a new GORM model directory repository
func NewGormModelDirectoryRepository(db *gorm.DB) repository.ModelDirectoryRepository {
	return &GormModelDirectoryRepository{
		db: db,
	}
}

// Models GORM model for database mapping
type Models struct {
	ID                 uint           `gorm:"primaryKey"`
	Provider           string         `gorm:"column:provider"`
	Model              string         `gorm:"column:model;unique"`
	PriceInPerMillion  float64        `gorm:"column:price_in_per_million"`
	PriceOutPerMillion float64        `gorm:"column:price_out_per_million"`
	IsDefault          bool           `gorm:"column:is_default"`
	Active             bool           `gorm:"column:active"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName overrides the default table name
func (Models) TableName() string {
	return "m_models"
}

// GetModel finds an active model by its id
func (r *GormModelDirectoryRepository) GetModel(ctx context.Context, model string) (*entity.ModelDescriptor, error) {
	var row Models
	result := r.db.WithContext(ctx).
		Where("LOWER(model) = LOWER(?)", model).
		Where("active = ?", true).
		First(&row)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, repository.ErrModelNotFound
		}
		return nil, result.Error
	}

	return toModelDescriptor(row), nil
}

// GetDefaultModel finds the active model flagged as default
func (r *GormModelDirectoryRepository) GetDefaultModel(ctx context.Context) (*entity.ModelDescriptor, error) {
	var row Models
	result := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Where("active = ?", true).
		Order("updated_at DESC").
		First(&row)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, repository.ErrModelNotFound
		}
		return nil, result.Error
	}

	return toModelDescriptor(row), nil
}

// Convert GORM model to domain entity
func toModelDescriptor(row Models) *entity.ModelDescriptor {
	return &entity.ModelDescriptor{
		Provider:           row.Provider,
		Model:              row.Model,
		PriceInPerMillion:  row.PriceInPerMillion,
		PriceOutPerMillion: row.PriceOutPerMillion,
		IsDefault:          row.IsDefault,
		Active:             row.Active,
	}
}
