package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tripcast-service/internal/infrastructure/oauth"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/utils"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const amadeusProviderName = "amadeus"

// AmadeusClient is the shared REST client for the Amadeus self-service APIs
type AmadeusClient struct {
	baseURL    string
	auth       *oauth.AmadeusOAuth
	httpClient *http.Client
	limiter    *rate.Limiter
	cities     *cache.Cache
	logger     logger.Logger
}

// amadeusCity is a resolved city location
type amadeusCity struct {
	Name      string
	IATACode  string
	Latitude  float64
	Longitude float64
}

// NewAmadeusClient creates a new Amadeus client. The test environment allows
// about 10 requests per second, so calls are gated below that.
func NewAmadeusClient(baseURL string, auth *oauth.AmadeusOAuth, timeout time.Duration, logger logger.Logger) *AmadeusClient {
	c := &AmadeusClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		limiter: rate.NewLimiter(rate.Limit(8), 2),
		cities:  cache.New(24*time.Hour, time.Hour),
		logger:  logger,
	}
	if auth != nil {
		c.httpClient = auth.HTTPClient(context.Background(), timeout)
	}
	return c
}

// IsAvailable reports whether credentials are configured
func (c *AmadeusClient) IsAvailable() bool {
	return c.auth != nil && c.auth.IsConfigured() && c.httpClient != nil
}

func (c *AmadeusClient) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	if !c.IsAvailable() {
		return fmt.Errorf("amadeus credentials not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("amadeus %s returned status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// resolveCity maps a destination name to its IATA city code and coordinates
func (c *AmadeusClient) resolveCity(ctx context.Context, name string) (amadeusCity, error) {
	key := utils.NormalizeKey(name)
	if cached, ok := c.cities.Get(key); ok {
		return cached.(amadeusCity), nil
	}

	keyword := strings.TrimSpace(name)
	if i := strings.Index(keyword, ","); i > 0 {
		keyword = strings.TrimSpace(keyword[:i])
	}

	var response struct {
		Data []struct {
			Name     string `json:"name"`
			IATACode string `json:"iataCode"`
			GeoCode  struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"geoCode"`
		} `json:"data"`
	}
	query := url.Values{}
	query.Set("keyword", keyword)
	query.Set("max", "1")
	if err := c.getJSON(ctx, "/v1/reference-data/locations/cities", query, &response); err != nil {
		return amadeusCity{}, err
	}
	if len(response.Data) == 0 || response.Data[0].IATACode == "" {
		return amadeusCity{}, fmt.Errorf("no city code found for %q", name)
	}

	d := response.Data[0]
	city := amadeusCity{
		Name:      d.Name,
		IATACode:  d.IATACode,
		Latitude:  d.GeoCode.Latitude,
		Longitude: d.GeoCode.Longitude,
	}
	c.cities.SetDefault(key, city)

	c.logger.Debug("Resolved city", "name", name, "iataCode", city.IATACode)
	return city, nil
}
