package entity

import (
	"sort"
	"strings"
)

// ModelCatalog is the versioned provider and pricing table loaded at startup.
// It is read-only after load.
type ModelCatalog struct {
	Version         string               `toml:"version"`
	LastResortModel string               `toml:"last_resort_model"`
	CostTargetUSD   float64              `toml:"cost_target_usd"`
	Generative      []ProviderDescriptor `toml:"generative"`
	Search          []ProviderDescriptor `toml:"search"`
	Scrapers        []ProviderDescriptor `toml:"scraper"`
	Booking         []ProviderDescriptor `toml:"booking"`
	Models          []ModelDescriptor    `toml:"models"`
	APICosts        map[string]float64   `toml:"api_costs"`
}

// Descriptor returns the descriptor of the named provider of the given kind
func (c *ModelCatalog) Descriptor(kind ProviderKind, name string) (ProviderDescriptor, bool) {
	for _, d := range c.descriptors(kind) {
		if d.Name == name {
			return d, true
		}
	}
	return ProviderDescriptor{}, false
}

// Priority returns the configured priority of a provider, or a large value when unknown
func (c *ModelCatalog) Priority(kind ProviderKind, name string) int {
	if d, ok := c.Descriptor(kind, name); ok {
		return d.Priority
	}
	return 1 << 20
}

func (c *ModelCatalog) descriptors(kind ProviderKind) []ProviderDescriptor {
	switch kind {
	case ProviderGenerative:
		return c.Generative
	case ProviderSearch:
		return c.Search
	case ProviderScraper:
		return c.Scrapers
	case ProviderBooking:
		return c.Booking
	}
	return nil
}

// Model looks up a model by id, case-insensitively
func (c *ModelCatalog) Model(model string) (ModelDescriptor, bool) {
	for _, m := range c.Models {
		if strings.EqualFold(m.Model, model) {
			return m, true
		}
	}
	return ModelDescriptor{}, false
}

// LastResort returns the hardcoded fallback model
func (c *ModelCatalog) LastResort() ModelDescriptor {
	if m, ok := c.Model(c.LastResortModel); ok {
		return m
	}
	gens := append([]ProviderDescriptor(nil), c.Generative...)
	sort.SliceStable(gens, func(i, j int) bool { return gens[i].Priority < gens[j].Priority })
	if len(gens) > 0 {
		return ModelDescriptor{
			Provider:           gens[0].Name,
			Model:              gens[0].DefaultModel,
			PriceInPerMillion:  gens[0].PriceInPerMillion,
			PriceOutPerMillion: gens[0].PriceOutPerMillion,
			Active:             true,
		}
	}
	return ModelDescriptor{Model: c.LastResortModel, Active: true}
}

// PricingFor returns token pricing for a model served by provider.
// Model-specific pricing wins over the provider default.
func (c *ModelCatalog) PricingFor(provider, model string) ModelPricing {
	if m, ok := c.Model(model); ok {
		return m.Pricing()
	}
	if d, ok := c.Descriptor(ProviderGenerative, provider); ok {
		return ModelPricing{InPerMillion: d.PriceInPerMillion, OutPerMillion: d.PriceOutPerMillion}
	}
	return ModelPricing{}
}

// APICost returns the flat per-call estimate for an operation
func (c *ModelCatalog) APICost(operation string) float64 {
	return c.APICosts[operation]
}
