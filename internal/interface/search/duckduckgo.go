package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/pkg/utils"

	"golang.org/x/time/rate"
)

const duckDuckGoEndpoint = "https://lite.duckduckgo.com/lite/"

var (
	ddgLinkPattern    = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	ddgLinkPattern2   = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)
	ddgSnippetPattern = regexp.MustCompile(`(?s)<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
)

// DuckDuckGo scrapes the lite HTML interface. It needs no key and is the
// last search provider in the chain.
type DuckDuckGo struct {
	enabled  bool
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewDuckDuckGo creates a DuckDuckGo searcher
func NewDuckDuckGo(enabled bool, timeout time.Duration) *DuckDuckGo {
	return &DuckDuckGo{
		enabled:  enabled,
		endpoint: duckDuckGoEndpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (d *DuckDuckGo) Name() string      { return ProviderDuckDuckGo }
func (d *DuckDuckGo) IsAvailable() bool { return d.enabled }

// Search posts the query to the lite page and parses the result table
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]entity.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(ProviderDuckDuckGo, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseLiteResults(string(body), capResults(maxResults)), nil
}

func parseLiteResults(html string, max int) []entity.SearchResult {
	matches := ddgLinkPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		matches = ddgLinkPattern2.FindAllStringSubmatch(html, -1)
	}
	snippets := ddgSnippetPattern.FindAllStringSubmatch(html, -1)

	var results []entity.SearchResult
	for i, match := range matches {
		link := strings.TrimSpace(match[1])
		title := utils.CleanHTMLText(match[2])
		if link == "" || title == "" {
			continue
		}

		snippet := ""
		if i < len(snippets) {
			snippet = utils.CleanHTMLText(snippets[i][1])
		}

		results = append(results, entity.SearchResult{
			Title:   title,
			URL:     link,
			Snippet: snippet,
			Source:  ProviderDuckDuckGo,
		})
		if len(results) >= max {
			break
		}
	}
	return results
}
