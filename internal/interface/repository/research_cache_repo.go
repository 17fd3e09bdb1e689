package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"

	"github.com/go-redis/redis/v8"
)

const researchKeyPrefix = "tripcast:research:"

// RedisResearchCacheRepository keeps research findings in Redis with a TTL
type RedisResearchCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResearchCacheRepository creates a new Redis research cache
func NewRedisResearchCacheRepository(client *redis.Client, ttl time.Duration) repository.ResearchCacheRepository {
	return &RedisResearchCacheRepository{
		client: client,
		ttl:    ttl,
	}
}

func researchKey(tripID string) string {
	return researchKeyPrefix + tripID
}

// Get returns the cached findings, or nil on a miss
func (r *RedisResearchCacheRepository) Get(ctx context.Context, tripID string) (*entity.ResearchFindings, error) {
	data, err := r.client.Get(ctx, researchKey(tripID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read research findings: %w", err)
	}

	var findings entity.ResearchFindings
	if err := json.Unmarshal(data, &findings); err != nil {
		return nil, fmt.Errorf("failed to decode research findings: %w", err)
	}
	return &findings, nil
}

// Set stores findings keyed by trip id
func (r *RedisResearchCacheRepository) Set(ctx context.Context, findings *entity.ResearchFindings) error {
	if findings == nil || findings.TripID == "" {
		return fmt.Errorf("research findings need a trip id")
	}

	data, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("failed to encode research findings: %w", err)
	}
	return r.client.Set(ctx, researchKey(findings.TripID), data, r.ttl).Err()
}

// Delete drops the findings of a trip
func (r *RedisResearchCacheRepository) Delete(ctx context.Context, tripID string) error {
	return r.client.Del(ctx, researchKey(tripID)).Err()
}
