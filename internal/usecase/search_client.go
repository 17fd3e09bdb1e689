package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/metrics"
)

// SearchProvider is one web search backend
type SearchProvider interface {
	Name() string
	IsAvailable() bool
	Search(ctx context.Context, query string, maxResults int) ([]entity.SearchResult, error)
}

var errNoResults = errors.New("no results")

// SearchClient runs queries through an ordered search provider chain.
// Only successful calls are charged; failures go to the telemetry log.
type SearchClient struct {
	providers  []SearchProvider
	catalog    *entity.ModelCatalog
	maxResults int
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// NewSearchClient orders providers by catalog priority once, at construction
func NewSearchClient(providers []SearchProvider, catalog *entity.ModelCatalog, maxResults int, m *metrics.Metrics, log logger.Logger) *SearchClient {
	ordered := append([]SearchProvider(nil), providers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return catalog.Priority(entity.ProviderSearch, ordered[i].Name()) < catalog.Priority(entity.ProviderSearch, ordered[j].Name())
	})
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchClient{
		providers:  ordered,
		catalog:    catalog,
		maxResults: maxResults,
		metrics:    m,
		logger:     log,
	}
}

// IsAvailable reports whether any provider is configured
func (c *SearchClient) IsAvailable() bool {
	for _, p := range c.providers {
		if p.IsAvailable() {
			return true
		}
	}
	return false
}

// Search returns the results of the first provider that answers with at least one hit
func (c *SearchClient) Search(ctx context.Context, ledger *CostLedger, operation, query string) ([]entity.SearchResult, error) {
	return runFallback(ctx, string(entity.ProviderSearch), operation, c.providers, func(ctx context.Context, p SearchProvider) ([]entity.SearchResult, error) {
		start := time.Now()
		results, err := p.Search(ctx, query, c.maxResults)
		elapsed := time.Since(start)
		if err == nil && len(results) == 0 {
			err = errNoResults
		}

		c.metrics.ObserveProviderCall(string(entity.ProviderSearch), p.Name(), err == nil, elapsed)

		if err != nil {
			c.logger.Warn("Search provider failed", "provider", p.Name(), "query", query, "error", err)
			ledger.LogProviderFailure(ctx, p.Name(), operation, err)
			return nil, err
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = p.Name()
			}
		}

		unit := 0.0
		if d, ok := c.catalog.Descriptor(entity.ProviderSearch, p.Name()); ok {
			unit = d.CostPerCallUSD
		}
		ledger.TrackAPI(ctx, APICall{
			Provider:    p.Name(),
			Operation:   operation,
			Calls:       1,
			UnitCostUSD: unit,
			Duration:    elapsed,
		})
		return results, nil
	})
}
