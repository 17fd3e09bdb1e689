package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"

	"golang.org/x/time/rate"
)

const braveEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave uses the Brave Search API. The free plan allows one request per
// second per key, so every call waits on the limiter.
type Brave struct {
	apiKey   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewBrave constructs a Brave search provider
func NewBrave(apiKey string, timeout time.Duration) *Brave {
	return &Brave{
		apiKey:   apiKey,
		endpoint: braveEndpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (b *Brave) Name() string      { return ProviderBrave }
func (b *Brave) IsAvailable() bool { return strings.TrimSpace(b.apiKey) != "" }

// Search executes a Brave query
func (b *Brave) Search(ctx context.Context, query string, maxResults int) ([]entity.SearchResult, error) {
	if !b.IsAvailable() {
		return nil, errors.New("brave: API key is missing")
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(capResults(maxResults)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ProviderBrave, resp)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	results := make([]entity.SearchResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		results = append(results, entity.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description, Source: ProviderBrave})
		if len(results) >= capResults(maxResults) {
			break
		}
	}
	return results, nil
}
