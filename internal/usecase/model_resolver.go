package usecase

import (
	"context"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"
	"tripcast-service/pkg/logger"

	"github.com/patrickmn/go-cache"
)

const defaultModelCacheKey = "\x00default"

// ModelResolver picks the model for an explicit override:
// the requested model if known, else the directory's default, else the
// catalog's last-resort model.
type ModelResolver struct {
	directory repository.ModelDirectoryRepository
	catalog   *entity.ModelCatalog
	cache     *cache.Cache
	logger    logger.Logger
}

// NewModelResolver creates a resolver. directory may be nil, in which case
// only the catalog is consulted.
func NewModelResolver(directory repository.ModelDirectoryRepository, catalog *entity.ModelCatalog, ttl time.Duration, log logger.Logger) *ModelResolver {
	return &ModelResolver{
		directory: directory,
		catalog:   catalog,
		cache:     cache.New(ttl, 2*ttl),
		logger:    log,
	}
}

// Resolve returns the model descriptor to use for requested
func (r *ModelResolver) Resolve(ctx context.Context, requested string) entity.ModelDescriptor {
	if requested != "" {
		if md, ok := r.lookup(ctx, requested); ok {
			return md
		}
		r.logger.Warn("Requested model is not available, falling back to default", "model", requested)
	}

	if md, ok := r.dynamicDefault(ctx); ok {
		return md
	}

	md := r.catalog.LastResort()
	r.logger.Warn("Using last-resort model", "model", md.Model, "provider", md.Provider)
	return md
}

func (r *ModelResolver) lookup(ctx context.Context, model string) (entity.ModelDescriptor, bool) {
	if cached, ok := r.cache.Get(model); ok {
		return cached.(entity.ModelDescriptor), true
	}

	if r.directory != nil {
		md, err := r.directory.GetModel(ctx, model)
		if err == nil && md != nil && md.Active {
			r.cache.SetDefault(model, *md)
			return *md, true
		}
		if err != nil {
			r.logger.Debug("Model directory lookup failed", "model", model, "error", err)
		}
	}

	if md, ok := r.catalog.Model(model); ok && md.Active {
		r.cache.SetDefault(model, md)
		return md, true
	}
	return entity.ModelDescriptor{}, false
}

func (r *ModelResolver) dynamicDefault(ctx context.Context) (entity.ModelDescriptor, bool) {
	if cached, ok := r.cache.Get(defaultModelCacheKey); ok {
		return cached.(entity.ModelDescriptor), true
	}
	if r.directory == nil {
		return entity.ModelDescriptor{}, false
	}

	md, err := r.directory.GetDefaultModel(ctx)
	if err != nil || md == nil {
		r.logger.Warn("Dynamic default model lookup failed", "error", err)
		return entity.ModelDescriptor{}, false
	}
	r.cache.SetDefault(defaultModelCacheKey, *md)
	return *md, true
}
