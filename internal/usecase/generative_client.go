package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/metrics"
)

// GenerationRequest is a provider-neutral text generation request
type GenerationRequest struct {
	Operation    string
	SystemPrompt string
	Prompt       string
	Model        string
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
}

// GenerationResponse is the text and usage returned by a provider
type GenerationResponse struct {
	Text      string
	Provider  string
	Model     string
	TokensIn  int
	TokensOut int
}

// GenerativeProvider is one text generation backend
type GenerativeProvider interface {
	Name() string
	IsAvailable() bool
	Execute(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
}

var errEmptyGeneration = errors.New("empty response")

// GenerativeClient runs generation requests through an ordered provider chain
// and charges every attempt to the run's CostLedger
type GenerativeClient struct {
	providers []GenerativeProvider
	catalog   *entity.ModelCatalog
	resolver  *ModelResolver
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// NewGenerativeClient orders providers by catalog priority once, at construction
func NewGenerativeClient(providers []GenerativeProvider, catalog *entity.ModelCatalog, resolver *ModelResolver, m *metrics.Metrics, log logger.Logger) *GenerativeClient {
	ordered := append([]GenerativeProvider(nil), providers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return catalog.Priority(entity.ProviderGenerative, ordered[i].Name()) < catalog.Priority(entity.ProviderGenerative, ordered[j].Name())
	})
	return &GenerativeClient{
		providers: ordered,
		catalog:   catalog,
		resolver:  resolver,
		metrics:   m,
		logger:    log,
	}
}

// IsAvailable reports whether any provider is configured
func (c *GenerativeClient) IsAvailable() bool {
	for _, p := range c.providers {
		if p.IsAvailable() {
			return true
		}
	}
	return false
}

type generativeLink struct {
	provider GenerativeProvider
	model    string
	pricing  entity.ModelPricing
}

func (l generativeLink) Name() string      { return l.provider.Name() }
func (l generativeLink) IsAvailable() bool { return l.provider.IsAvailable() }

// Generate returns the first successful response in chain order. With a model
// override the provider owning the resolved model is tried first with it.
func (c *GenerativeClient) Generate(ctx context.Context, ledger *CostLedger, req GenerationRequest) (*GenerationResponse, error) {
	chain := c.chain(ctx, req.Model)

	return runFallback(ctx, string(entity.ProviderGenerative), req.Operation, chain, func(ctx context.Context, link generativeLink) (*GenerationResponse, error) {
		attempt := req
		attempt.Model = link.model

		start := time.Now()
		resp, err := link.provider.Execute(ctx, attempt)
		elapsed := time.Since(start)
		if err == nil && (resp == nil || strings.TrimSpace(resp.Text) == "") {
			err = errEmptyGeneration
		}

		c.metrics.ObserveProviderCall(string(entity.ProviderGenerative), link.Name(), err == nil, elapsed)

		if err != nil {
			c.logger.Warn("Generative provider failed",
				"provider", link.Name(),
				"model", attempt.Model,
				"operation", req.Operation,
				"error", err)
			ledger.TrackAI(ctx, AICall{
				Provider:  link.Name(),
				Model:     attempt.Model,
				Operation: req.Operation,
				Duration:  elapsed,
				Err:       err,
			})
			return nil, err
		}

		if resp.Provider == "" {
			resp.Provider = link.Name()
		}
		if resp.Model == "" {
			resp.Model = attempt.Model
		}
		ledger.TrackAI(ctx, AICall{
			Provider:  resp.Provider,
			Model:     resp.Model,
			Operation: req.Operation,
			TokensIn:  resp.TokensIn,
			TokensOut: resp.TokensOut,
			Pricing:   link.pricing,
			Duration:  elapsed,
		})
		return resp, nil
	})
}

func (c *GenerativeClient) chain(ctx context.Context, requested string) []generativeLink {
	links := make([]generativeLink, 0, len(c.providers))

	owner := ""
	if requested != "" && c.resolver != nil {
		md := c.resolver.Resolve(ctx, requested)
		for _, p := range c.providers {
			if p.Name() == md.Provider {
				owner = p.Name()
				links = append(links, generativeLink{provider: p, model: md.Model, pricing: md.Pricing()})
				break
			}
		}
	}

	for _, p := range c.providers {
		if p.Name() == owner {
			continue
		}
		model := ""
		if d, ok := c.catalog.Descriptor(entity.ProviderGenerative, p.Name()); ok {
			model = d.DefaultModel
		}
		links = append(links, generativeLink{provider: p, model: model, pricing: c.catalog.PricingFor(p.Name(), model)})
	}
	return links
}
