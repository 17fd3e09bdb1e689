package scraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirecrawl_Scrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://travel.example.com/lisbon", body["url"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"markdown": "# Lisbon\nTrams and viewpoints.",
				"metadata": map[string]string{"title": "Lisbon guide"},
			},
		})
	}))
	defer srv.Close()

	f := NewFirecrawl("key", 5*time.Second)
	f.endpoint = srv.URL

	page, err := f.Scrape(context.Background(), "https://travel.example.com/lisbon")
	require.NoError(t, err)
	assert.Equal(t, "Lisbon guide", page.Title)
	assert.Contains(t, page.Content, "Trams")
}

func TestFirecrawl_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "blocked"})
	}))
	defer srv.Close()

	f := NewFirecrawl("key", 5*time.Second)
	f.endpoint = srv.URL

	_, err := f.Scrape(context.Background(), "https://x.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
	assert.False(t, NewFirecrawl("", time.Second).IsAvailable())
}

func TestHTTPFetcher_Scrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>Porto &amp; Douro</title><style>p{}</style></head>
<body><nav>menu</nav><p>Port cellars in Gaia.</p><script>track()</script></body></html>`))
	}))
	defer srv.Close()

	h := NewHTTPFetcher(true, 5*time.Second)
	page, err := h.Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Porto & Douro", page.Title)
	assert.Contains(t, page.Content, "Port cellars in Gaia.")
	assert.False(t, strings.Contains(page.Content, "track()"))
	assert.False(t, strings.Contains(page.Content, "menu"))
}

func TestHTTPFetcher_RejectsNonHTTP(t *testing.T) {
	h := NewHTTPFetcher(true, time.Second)
	_, err := h.Scrape(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}
