package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/pkg/utils"
)

const (
	ProviderFirecrawl = "firecrawl"
	ProviderHTTP      = "http"

	firecrawlEndpoint = "https://api.firecrawl.dev/v1/scrape"
	maxPageChars      = 12000
)

// Firecrawl scrapes pages through the Firecrawl API, which renders
// JavaScript and returns markdown
type Firecrawl struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewFirecrawl creates a Firecrawl scraper
func NewFirecrawl(apiKey string, timeout time.Duration) *Firecrawl {
	return &Firecrawl{
		apiKey:   apiKey,
		endpoint: firecrawlEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (f *Firecrawl) Name() string      { return ProviderFirecrawl }
func (f *Firecrawl) IsAvailable() bool { return strings.TrimSpace(f.apiKey) != "" }

// Scrape returns the main content of pageURL as markdown
func (f *Firecrawl) Scrape(ctx context.Context, pageURL string) (*entity.PageContent, error) {
	if !f.IsAvailable() {
		return nil, errors.New("firecrawl: API key is missing")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"url":             pageURL,
		"formats":         []string{"markdown"},
		"onlyMainContent": true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("firecrawl http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Markdown string `json:"markdown"`
			Metadata struct {
				Title     string `json:"title"`
				SourceURL string `json:"sourceURL"`
			} `json:"metadata"`
		} `json:"data"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !response.Success {
		return nil, fmt.Errorf("firecrawl scrape failed: %s", response.Error)
	}
	if strings.TrimSpace(response.Data.Markdown) == "" {
		return nil, fmt.Errorf("firecrawl returned no content for %s", pageURL)
	}

	return &entity.PageContent{
		URL:     pageURL,
		Title:   response.Data.Metadata.Title,
		Content: utils.Truncate(response.Data.Markdown, maxPageChars),
	}, nil
}
