package usecase

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/metrics"
	"tripcast-service/pkg/utils"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Scraper fetches the readable content of a page
type Scraper interface {
	Name() string
	IsAvailable() bool
	Scrape(ctx context.Context, pageURL string) (*entity.PageContent, error)
}

var preferredBookingHosts = map[string][]string{
	entity.BookingKindHotel: {"booking.com", "expedia.com", "hotels.com", "agoda.com", "tripadvisor.com"},
	entity.BookingKindTour:  {"viator.com", "getyourguide.com", "klook.com", "tripadvisor.com"},
}

// EnrichmentClient scrapes pages for research and resolves booking links for
// hotels and tours
type EnrichmentClient struct {
	scrapers    []Scraper
	search      *SearchClient
	catalog     *entity.ModelCatalog
	concurrency int
	metrics     *metrics.Metrics
	logger      logger.Logger
}

// NewEnrichmentClient orders scrapers by catalog priority once, at construction
func NewEnrichmentClient(scrapers []Scraper, search *SearchClient, catalog *entity.ModelCatalog, concurrency int, m *metrics.Metrics, log logger.Logger) *EnrichmentClient {
	ordered := append([]Scraper(nil), scrapers...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return catalog.Priority(entity.ProviderScraper, ordered[i].Name()) < catalog.Priority(entity.ProviderScraper, ordered[j].Name())
	})
	if concurrency < 1 {
		concurrency = 3
	}
	return &EnrichmentClient{
		scrapers:    ordered,
		search:      search,
		catalog:     catalog,
		concurrency: concurrency,
		metrics:     m,
		logger:      log,
	}
}

// IsAvailable reports whether any scraper is configured
func (c *EnrichmentClient) IsAvailable() bool {
	for _, s := range c.scrapers {
		if s.IsAvailable() {
			return true
		}
	}
	return false
}

// Concurrency is the batch size used for enrichment fan-out
func (c *EnrichmentClient) Concurrency() int {
	return c.concurrency
}

// EnrichPages scrapes urls in bounded batches. Pages that every scraper failed
// on are dropped; the rest keep input order.
func (c *EnrichmentClient) EnrichPages(ctx context.Context, ledger *CostLedger, urls []string) []entity.PageContent {
	results := utils.ProcessInBatches(ctx, urls, c.concurrency, func(ctx context.Context, pageURL string) (*entity.PageContent, error) {
		return c.scrape(ctx, ledger, pageURL)
	})

	pages := make([]entity.PageContent, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			c.logger.Warn("Page enrichment failed", "url", urls[i], "error", r.Err)
			continue
		}
		pages = append(pages, *r.Value)
	}
	return pages
}

func (c *EnrichmentClient) scrape(ctx context.Context, ledger *CostLedger, pageURL string) (*entity.PageContent, error) {
	return runFallback(ctx, string(entity.ProviderScraper), "scrape", c.scrapers, func(ctx context.Context, s Scraper) (*entity.PageContent, error) {
		start := time.Now()
		page, err := s.Scrape(ctx, pageURL)
		elapsed := time.Since(start)
		if err == nil && (page == nil || strings.TrimSpace(page.Content) == "") {
			err = fmt.Errorf("empty page content")
		}

		c.metrics.ObserveProviderCall(string(entity.ProviderScraper), s.Name(), err == nil, elapsed)

		if err != nil {
			ledger.LogProviderFailure(ctx, s.Name(), "scrape", err)
			return nil, err
		}

		unit := 0.0
		if d, ok := c.catalog.Descriptor(entity.ProviderScraper, s.Name()); ok {
			unit = d.CostPerCallUSD
		}
		ledger.TrackAPI(ctx, APICall{Provider: s.Name(), Operation: "scrape", Calls: 1, UnitCostUSD: unit, Duration: elapsed})
		return page, nil
	})
}

// BookingURLResolver resolves booking links for one Phase 2 run. Lookups are
// cached by (name, city, kind) for the lifetime of the resolver, including
// lookups that found nothing or failed; a failed key returns the same error
// on every call. Concurrent lookups of one key share a single search.
type BookingURLResolver struct {
	client *EnrichmentClient
	ledger *CostLedger
	cache  *cache.Cache
	group  singleflight.Group
}

// NewBookingURLResolver creates a resolver with an empty per-run cache
func (c *EnrichmentClient) NewBookingURLResolver(ledger *CostLedger) *BookingURLResolver {
	return &BookingURLResolver{
		client: c,
		ledger: ledger,
		cache:  cache.New(cache.NoExpiration, 0),
	}
}

// BookingKey is the per-run cache key of a bookable item
func BookingKey(name, city, kind string) string {
	return kind + "|" + utils.NormalizeKey(name) + "|" + utils.NormalizeKey(city)
}

type bookingLookup struct {
	link string
	err  error
}

// Resolve returns a booking URL for the item, or "" when none was found
func (r *BookingURLResolver) Resolve(ctx context.Context, name, city, kind string) (string, error) {
	key := BookingKey(name, city, kind)
	if cached, ok := r.cache.Get(key); ok {
		res := cached.(bookingLookup)
		return res.link, res.err
	}

	v, _, _ := r.group.Do(key, func() (interface{}, error) {
		if cached, ok := r.cache.Get(key); ok {
			return cached.(bookingLookup), nil
		}
		link, err := r.lookup(ctx, name, city, kind)
		res := bookingLookup{link: link, err: err}
		r.cache.Set(key, res, cache.NoExpiration)
		return res, nil
	})
	res := v.(bookingLookup)
	return res.link, res.err
}

func (r *BookingURLResolver) lookup(ctx context.Context, name, city, kind string) (string, error) {
	if r.client.search == nil || !r.client.search.IsAvailable() {
		return "", fmt.Errorf("no search provider configured")
	}

	query := fmt.Sprintf("%q %s hotel booking", name, city)
	if kind == entity.BookingKindTour {
		query = fmt.Sprintf("%q %s tour tickets", name, city)
	}

	results, err := r.client.search.Search(ctx, r.ledger, "booking_url_"+kind, query)
	if err != nil {
		return "", err
	}
	return pickBookingURL(results, kind), nil
}

func pickBookingURL(results []entity.SearchResult, kind string) string {
	for _, res := range results {
		u, err := url.Parse(res.URL)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		for _, preferred := range preferredBookingHosts[kind] {
			if host == preferred || strings.HasSuffix(host, "."+preferred) {
				return res.URL
			}
		}
	}
	for _, res := range results {
		if res.URL != "" {
			return res.URL
		}
	}
	return ""
}

// CanResolveBookingURLs reports whether booking-link lookups can run
func (c *EnrichmentClient) CanResolveBookingURLs() bool {
	return c.search != nil && c.search.IsAvailable()
}
