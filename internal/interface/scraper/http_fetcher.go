package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/pkg/utils"
)

const (
	fetchUserAgent  = "Mozilla/5.0 (compatible; tripcast/1.0)"
	maxResponseSize = 2 << 20
)

var reTitle = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// HTTPFetcher downloads a page directly and strips it to text. It cannot
// render JavaScript, so it is the fallback after Firecrawl.
type HTTPFetcher struct {
	enabled bool
	client  *http.Client
}

// NewHTTPFetcher creates a direct fetcher
func NewHTTPFetcher(enabled bool, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		enabled: enabled,
		client:  &http.Client{Timeout: timeout},
	}
}

func (h *HTTPFetcher) Name() string      { return ProviderHTTP }
func (h *HTTPFetcher) IsAvailable() bool { return h.enabled }

// Scrape fetches pageURL and returns its readable text
func (h *HTTPFetcher) Scrape(ctx context.Context, pageURL string) (*entity.PageContent, error) {
	if !strings.HasPrefix(pageURL, "http://") && !strings.HasPrefix(pageURL, "https://") {
		return nil, fmt.Errorf("unsupported url: %s", pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s returned status %d", pageURL, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "text") {
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	html := string(body)
	title := ""
	if m := reTitle.FindStringSubmatch(html); m != nil {
		title = utils.CleanHTMLText(m[1])
	}

	text := utils.CleanHTMLText(html)
	if text == "" {
		return nil, fmt.Errorf("no readable text at %s", pageURL)
	}

	return &entity.PageContent{
		URL:     pageURL,
		Title:   title,
		Content: utils.Truncate(text, maxPageChars),
	}, nil
}
