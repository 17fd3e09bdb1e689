package entity

import "time"

// Cost categories
const (
	CostCategoryAI  = "ai"
	CostCategoryAPI = "api"
)

// CostEntry is one line item of a run's cost ledger
type CostEntry struct {
	Provider  string        `json:"provider"`
	Model     string        `json:"model,omitempty"`
	Operation string        `json:"operation"`
	Category  string        `json:"category"`
	Quantity  int           `json:"quantity"`
	TokensIn  int           `json:"tokens_in"`
	TokensOut int           `json:"tokens_out"`
	CostUSD   float64       `json:"cost_usd"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}
