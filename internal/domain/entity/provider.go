package entity

// ProviderKind groups adapters by the kind of work they do
type ProviderKind string

// Provider kinds
const (
	ProviderGenerative ProviderKind = "generative"
	ProviderSearch     ProviderKind = "search"
	ProviderScraper    ProviderKind = "scraper"
	ProviderBooking    ProviderKind = "booking"
)

// ProviderDescriptor is the static description of one provider, loaded once at startup
type ProviderDescriptor struct {
	Name               string       `toml:"name"`
	Kind               ProviderKind `toml:"kind"`
	Priority           int          `toml:"priority"`
	DefaultModel       string       `toml:"model"`
	PriceInPerMillion  float64      `toml:"price_in_per_million"`
	PriceOutPerMillion float64      `toml:"price_out_per_million"`
	CostPerCallUSD     float64      `toml:"cost_per_call"`
	CredentialEnv      string       `toml:"credential_env"`
}

// ModelDescriptor describes a concrete model and its token pricing
type ModelDescriptor struct {
	Provider           string  `toml:"provider"`
	Model              string  `toml:"model"`
	PriceInPerMillion  float64 `toml:"price_in_per_million"`
	PriceOutPerMillion float64 `toml:"price_out_per_million"`
	IsDefault          bool    `toml:"default"`
	Active             bool    `toml:"active"`
}

// Pricing returns the per-million token prices of the model
func (m ModelDescriptor) Pricing() ModelPricing {
	return ModelPricing{InPerMillion: m.PriceInPerMillion, OutPerMillion: m.PriceOutPerMillion}
}

// ModelPricing is USD per million tokens
type ModelPricing struct {
	InPerMillion  float64
	OutPerMillion float64
}

// Cost returns the USD cost of a call with the given token counts
func (p ModelPricing) Cost(tokensIn, tokensOut int) float64 {
	return float64(tokensIn)/1e6*p.InPerMillion + float64(tokensOut)/1e6*p.OutPerMillion
}
