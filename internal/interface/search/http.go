package search

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Provider names as they appear in the model catalog
const (
	ProviderTavily     = "tavily"
	ProviderBrave      = "brave"
	ProviderDuckDuckGo = "duckduckgo"
)

func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s http %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
}

func capResults(n int) int {
	if n <= 0 {
		return 5
	}
	return n
}
