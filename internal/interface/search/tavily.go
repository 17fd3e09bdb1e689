package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"

	"golang.org/x/time/rate"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// Tavily calls the Tavily search API
type Tavily struct {
	apiKey   string
	endpoint string
	depth    string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewTavily constructs a Tavily search provider
func NewTavily(apiKey string, timeout time.Duration) *Tavily {
	return &Tavily{
		apiKey:   apiKey,
		endpoint: tavilyEndpoint,
		depth:    "basic",
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(5), 5),
	}
}

func (t *Tavily) Name() string      { return ProviderTavily }
func (t *Tavily) IsAvailable() bool { return strings.TrimSpace(t.apiKey) != "" }

// Search posts a query to Tavily
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]entity.SearchResult, error) {
	if !t.IsAvailable() {
		return nil, errors.New("tavily: API key is missing")
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"query":        query,
		"api_key":      t.apiKey,
		"search_depth": t.depth,
		"max_results":  capResults(maxResults),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ProviderTavily, resp)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]entity.SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, entity.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content, Source: ProviderTavily})
		if len(results) >= capResults(maxResults) {
			break
		}
	}
	return results, nil
}
