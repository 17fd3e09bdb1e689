package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"
	"tripcast-service/pkg/logger"
)

var testLogger = logger.NewNopLogger()

func testCatalog() *entity.ModelCatalog {
	return &entity.ModelCatalog{
		Version:         "test",
		LastResortModel: "gpt-4o-mini",
		Generative: []entity.ProviderDescriptor{
			{Name: "openrouter", Kind: entity.ProviderGenerative, Priority: 1, DefaultModel: "meta-llama/llama-3.1-70b-instruct", PriceInPerMillion: 0.5, PriceOutPerMillion: 0.8},
			{Name: "openai", Kind: entity.ProviderGenerative, Priority: 2, DefaultModel: "gpt-4o-mini", PriceInPerMillion: 0.15, PriceOutPerMillion: 0.6},
			{Name: "gemini", Kind: entity.ProviderGenerative, Priority: 3, DefaultModel: "gemini-1.5-flash", PriceInPerMillion: 0.075, PriceOutPerMillion: 0.3},
		},
		Search: []entity.ProviderDescriptor{
			{Name: "tavily", Kind: entity.ProviderSearch, Priority: 1, CostPerCallUSD: 0.008},
			{Name: "brave", Kind: entity.ProviderSearch, Priority: 2, CostPerCallUSD: 0.005},
		},
		Scrapers: []entity.ProviderDescriptor{
			{Name: "firecrawl", Kind: entity.ProviderScraper, Priority: 1, CostPerCallUSD: 0.002},
		},
		Models: []entity.ModelDescriptor{
			{Provider: "openai", Model: "gpt-4o", PriceInPerMillion: 2.5, PriceOutPerMillion: 10, Active: true},
			{Provider: "openai", Model: "gpt-4o-mini", PriceInPerMillion: 0.15, PriceOutPerMillion: 0.6, Active: true, IsDefault: true},
		},
		APICosts: map[string]float64{
			opFlightSearch: 0.01,
			opHotelSearch:  0.005,
			opTourSearch:   0.002,
		},
	}
}

// memTripRepo is an in-memory TripRepository
type memTripRepo struct {
	mu    sync.Mutex
	trips map[string]*entity.Trip

	costUpdates int
	failOn      map[string]error
}

func newMemTripRepo(trips ...*entity.Trip) *memTripRepo {
	r := &memTripRepo{trips: make(map[string]*entity.Trip), failOn: make(map[string]error)}
	for _, t := range trips {
		r.trips[t.ID] = cloneTrip(t)
	}
	return r
}

func cloneTrip(t *entity.Trip) *entity.Trip {
	c := *t
	c.Messages = append([]entity.ChatMessage(nil), t.Messages...)
	c.ResearchDestinations = append([]entity.Destination(nil), t.ResearchDestinations...)
	c.ConfirmedDestinations = append([]entity.Destination(nil), t.ConfirmedDestinations...)
	c.TelemetryLog = append([]entity.TelemetryEvent(nil), t.TelemetryLog...)
	c.Options = make([]entity.TripOption, len(t.Options))
	for i, o := range t.Options {
		o.Hotels = append([]entity.HotelStay(nil), o.Hotels...)
		o.Tours = append([]entity.Tour(nil), o.Tours...)
		o.Itinerary = append([]entity.ItineraryDay(nil), o.Itinerary...)
		c.Options[i] = o
	}
	if t.SelectedOptionIndex != nil {
		idx := *t.SelectedOptionIndex
		c.SelectedOptionIndex = &idx
	}
	return &c
}

func (r *memTripRepo) mutate(id, op string, fn func(t *entity.Trip) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failOn[op]; err != nil {
		return err
	}
	t, ok := r.trips[id]
	if !ok {
		return repository.ErrTripNotFound
	}
	return fn(t)
}

func (r *memTripRepo) snapshot(id string) *entity.Trip {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneTrip(r.trips[id])
}

func (r *memTripRepo) events(id string, name string) []entity.TelemetryEvent {
	var out []entity.TelemetryEvent
	for _, e := range r.snapshot(id).TelemetryLog {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func (r *memTripRepo) GetTrip(ctx context.Context, id string) (*entity.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trips[id]
	if !ok {
		return nil, repository.ErrTripNotFound
	}
	return cloneTrip(t), nil
}

func (r *memTripRepo) CreateTrip(ctx context.Context, trip *entity.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips[trip.ID] = cloneTrip(trip)
	return nil
}

func (r *memTripRepo) UpdateCosts(ctx context.Context, id string, aiDelta, apiDelta float64) error {
	return r.mutate(id, "UpdateCosts", func(t *entity.Trip) error {
		r.costUpdates++
		t.CostAIUSD += aiDelta
		t.CostAPIUSD += apiDelta
		return nil
	})
}

func (r *memTripRepo) UpdateResearchDestinations(ctx context.Context, id string, destinations []entity.Destination, summary string) error {
	return r.mutate(id, "UpdateResearchDestinations", func(t *entity.Trip) error {
		t.ResearchDestinations = append([]entity.Destination(nil), destinations...)
		t.ResearchSummary = summary
		return nil
	})
}

func (r *memTripRepo) ConfirmDestinations(ctx context.Context, id string, destinations []entity.Destination, prefs entity.Preferences) error {
	return r.mutate(id, "ConfirmDestinations", func(t *entity.Trip) error {
		t.DestinationsConfirmed = true
		t.ConfirmedDestinations = append([]entity.Destination(nil), destinations...)
		t.Preferences = prefs
		t.Phase = entity.PhaseBuilding
		t.ErrorMessage = ""
		return nil
	})
}

func (r *memTripRepo) ResetConfirmation(ctx context.Context, id string, errorMessage string) error {
	return r.mutate(id, "ResetConfirmation", func(t *entity.Trip) error {
		t.DestinationsConfirmed = false
		t.ConfirmedDestinations = nil
		t.Options = nil
		t.Phase = entity.PhaseAwaitingConfirmation
		t.ErrorMessage = errorMessage
		return nil
	})
}

func (r *memTripRepo) UpdateTripOptions(ctx context.Context, id string, options []entity.TripOption) error {
	return r.mutate(id, "UpdateTripOptions", func(t *entity.Trip) error {
		t.Options = append([]entity.TripOption(nil), options...)
		t.SelectedOptionIndex = nil
		return nil
	})
}

func (r *memTripRepo) UpdateOptionItinerary(ctx context.Context, id string, optionIndex int, days []entity.ItineraryDay) error {
	return r.mutate(id, "UpdateOptionItinerary", func(t *entity.Trip) error {
		if optionIndex < 0 || optionIndex >= len(t.Options) {
			return fmt.Errorf("option %d out of range", optionIndex)
		}
		t.Options[optionIndex].Itinerary = append([]entity.ItineraryDay(nil), days...)
		return nil
	})
}

func (r *memTripRepo) SelectTripOption(ctx context.Context, id string, optionIndex int) error {
	return r.mutate(id, "SelectTripOption", func(t *entity.Trip) error {
		t.SelectedOptionIndex = &optionIndex
		t.Phase = entity.PhaseOptionSelected
		return nil
	})
}

func (r *memTripRepo) MarkHandedOff(ctx context.Context, id string) error {
	return r.mutate(id, "MarkHandedOff", func(t *entity.Trip) error {
		t.Phase = entity.PhaseHandedOff
		return nil
	})
}

func (r *memTripRepo) UpdatePhase(ctx context.Context, id string, phase entity.Phase, errorMessage string) error {
	return r.mutate(id, "UpdatePhase", func(t *entity.Trip) error {
		t.Phase = phase
		t.ErrorMessage = errorMessage
		return nil
	})
}

func (r *memTripRepo) UpdateProgress(ctx context.Context, id string, percent int, message string) error {
	return r.mutate(id, "UpdateProgress", func(t *entity.Trip) error {
		t.Progress = percent
		t.ProgressMessage = message
		return nil
	})
}

func (r *memTripRepo) AppendTelemetryLog(ctx context.Context, id string, events ...entity.TelemetryEvent) error {
	return r.mutate(id, "AppendTelemetryLog", func(t *entity.Trip) error {
		t.TelemetryLog = append(t.TelemetryLog, events...)
		return nil
	})
}

func (r *memTripRepo) AppendMessage(ctx context.Context, id string, msg entity.ChatMessage) error {
	return r.mutate(id, "AppendMessage", func(t *entity.Trip) error {
		t.Messages = append(t.Messages, msg)
		return nil
	})
}

// fakeGenerator answers by operation; a missing handler is an error
type fakeGenerator struct {
	name      string
	available bool
	err       error
	handlers  map[string]func(req GenerationRequest) (string, error)

	mu    sync.Mutex
	calls []GenerationRequest
}

func newFakeGenerator(name string) *fakeGenerator {
	return &fakeGenerator{name: name, available: true, handlers: make(map[string]func(GenerationRequest) (string, error))}
}

func (g *fakeGenerator) on(operation string, text string) *fakeGenerator {
	g.handlers[operation] = func(GenerationRequest) (string, error) { return text, nil }
	return g
}

func (g *fakeGenerator) Name() string      { return g.name }
func (g *fakeGenerator) IsAvailable() bool { return g.available }

func (g *fakeGenerator) Execute(ctx context.Context, req GenerationRequest) (*GenerationResponse, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	if g.err != nil {
		return nil, g.err
	}
	h, ok := g.handlers[req.Operation]
	if !ok {
		return nil, fmt.Errorf("%s: no scripted answer for %s", g.name, req.Operation)
	}
	text, err := h(req)
	if err != nil {
		return nil, err
	}
	return &GenerationResponse{Text: text, TokensIn: 1000, TokensOut: 500}, nil
}

func (g *fakeGenerator) callCount(operation string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if operation == "" || c.Operation == operation {
			n++
		}
	}
	return n
}

// fakeSearch returns results built from the query
type fakeSearch struct {
	name      string
	available bool
	err       error
	empty     bool
	calls     int32
}

func (s *fakeSearch) Name() string      { return s.name }
func (s *fakeSearch) IsAvailable() bool { return s.available }

func (s *fakeSearch) Search(ctx context.Context, query string, maxResults int) ([]entity.SearchResult, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	if s.empty {
		return nil, nil
	}
	slug := strings.ReplaceAll(strings.ToLower(query), " ", "-")
	return []entity.SearchResult{
		{Title: "Guide: " + query, URL: "https://travel.example.com/" + slug, Snippet: "Snippet about " + query},
		{Title: "Book " + query, URL: "https://www.booking.com/" + slug, Snippet: "Rooms for " + query},
	}, nil
}

func (s *fakeSearch) callCount() int { return int(atomic.LoadInt32(&s.calls)) }

type fakeScraper struct {
	name      string
	available bool
	err       error
	calls     int32
}

func (s *fakeScraper) Name() string      { return s.name }
func (s *fakeScraper) IsAvailable() bool { return s.available }

func (s *fakeScraper) Scrape(ctx context.Context, pageURL string) (*entity.PageContent, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return nil, s.err
	}
	return &entity.PageContent{URL: pageURL, Title: "Page", Content: "Long article about " + pageURL}, nil
}

type fakeFindings struct {
	mu   sync.Mutex
	data map[string]*entity.ResearchFindings
}

func newFakeFindings() *fakeFindings {
	return &fakeFindings{data: make(map[string]*entity.ResearchFindings)}
}

func (f *fakeFindings) Get(ctx context.Context, tripID string) (*entity.ResearchFindings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[tripID], nil
}

func (f *fakeFindings) Set(ctx context.Context, findings *entity.ResearchFindings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[findings.TripID] = findings
	return nil
}

func (f *fakeFindings) Delete(ctx context.Context, tripID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, tripID)
	return nil
}

type fakeDirectory struct {
	models       map[string]entity.ModelDescriptor
	defaultModel *entity.ModelDescriptor
	err          error
}

func (d *fakeDirectory) GetModel(ctx context.Context, model string) (*entity.ModelDescriptor, error) {
	if d.err != nil {
		return nil, d.err
	}
	md, ok := d.models[model]
	if !ok {
		return nil, repository.ErrModelNotFound
	}
	return &md, nil
}

func (d *fakeDirectory) GetDefaultModel(ctx context.Context) (*entity.ModelDescriptor, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.defaultModel == nil {
		return nil, repository.ErrModelNotFound
	}
	return d.defaultModel, nil
}

type fakeFlights struct {
	err   error
	calls int32
}

func (f *fakeFlights) Name() string      { return "amadeus" }
func (f *fakeFlights) IsAvailable() bool { return true }

func (f *fakeFlights) SearchFlights(ctx context.Context, q entity.FlightQuery) ([]entity.FlightOffer, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []entity.FlightOffer{{Airline: "TP", PriceUSD: 820, Outbound: entity.FlightLeg{From: q.Origin, To: "LIS"}}}, nil
}

type fakeHotels struct {
	err   error
	calls int32
}

func (f *fakeHotels) Name() string      { return "amadeus" }
func (f *fakeHotels) IsAvailable() bool { return true }

func (f *fakeHotels) SearchHotels(ctx context.Context, q entity.HotelQuery) ([]entity.HotelOffer, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []entity.HotelOffer{{City: q.City, Name: "Hotel " + q.City, Rating: 4.2, NightlyCostUSD: 150}}, nil
}

type fakeTours struct {
	err   error
	calls int32
}

func (f *fakeTours) Name() string      { return "amadeus" }
func (f *fakeTours) IsAvailable() bool { return true }

func (f *fakeTours) SearchTours(ctx context.Context, city string) ([]entity.TourOffer, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []entity.TourOffer{{City: city, Name: city + " walking tour", DurationHours: 3, CostUSD: 40}}, nil
}

// syncDispatcher runs builds inline so tests observe the outcome
type syncDispatcher struct {
	runner BuildRunner
	err    error

	mu        sync.Mutex
	tripIDs   []string
	buildErrs []error
}

func (d *syncDispatcher) Dispatch(ctx context.Context, tripID string) error {
	if d.err != nil {
		return d.err
	}
	d.mu.Lock()
	d.tripIDs = append(d.tripIDs, tripID)
	d.mu.Unlock()
	if d.runner != nil {
		err := d.runner.RunBuild(ctx, tripID)
		d.mu.Lock()
		d.buildErrs = append(d.buildErrs, err)
		d.mu.Unlock()
	}
	return nil
}

// staticClassifier always returns the configured intent
type staticClassifier struct {
	intent RefinementIntent
}

func (c *staticClassifier) Register(IntentMatcher) {}

func (c *staticClassifier) Classify(message string, destinations []entity.Destination) RefinementIntent {
	if c.intent == nil {
		return QuestionIntent{Text: message}
	}
	return c.intent
}

var errProviderDown = errors.New("503 service unavailable")

func awaitingTrip(id string, names ...string) *entity.Trip {
	dests := make([]entity.Destination, 0, len(names))
	for _, n := range names {
		dests = append(dests, entity.Destination{Name: n, Country: "Portugal", EstimatedDays: 3, Rationale: "Great food"})
	}
	return &entity.Trip{
		ID:                   id,
		Phase:                entity.PhaseAwaitingConfirmation,
		UserRequest:          "Two weeks in Portugal with good food",
		ResearchDestinations: dests,
		ResearchSummary:      "Portugal has it all.",
		Preferences:          entity.Preferences{Adults: 2, DurationDays: 6, DepartureAirport: "JFK", StartDate: "2026-05-01"},
	}
}
