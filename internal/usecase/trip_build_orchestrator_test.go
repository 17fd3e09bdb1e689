package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"tripcast-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const optionsAnswer = `[
  {"title": "Budget", "total_cost_usd": 1, "flights": {"price_usd": 800},
   "hotels": [
     {"city": "Lisbon", "name": "Hotel Lisbon", "nights": 3, "nightly_cost_usd": 100},
     {"city": "Porto", "name": "Hotel Porto", "nights": 0, "nightly_cost_usd": 90},
     {"city": "Madrid", "name": "Hotel Madrid", "nights": 2, "nightly_cost_usd": 120}
   ],
   "tours": [{"city": "Lisbon, Portugal", "name": "Lisbon walking tour", "cost_usd": 40}]},
  {"title": "Comfort", "flights": {"price_usd": 1200},
   "hotels": [
     {"city": "lisbon", "name": "Hotel Lisbon", "nights": 3, "nightly_cost_usd": 250},
     {"city": "Porto", "name": "Palace Porto", "nights": 3, "nightly_cost_usd": 200}
   ],
   "tours": [{"city": "Porto", "name": "Port cellar tour", "cost_usd": 60}]}
]`

const itineraryAnswer = "```json\n[{\"day\": 2, \"city\": \"Lisbon\", \"title\": \"Belem\", \"activities\": [\"Tower\"]}, {\"day\": 1, \"city\": \"Lisbon\", \"title\": \"Arrival\", \"activities\": [\"Check in\"]}]\n```"

type buildFixture struct {
	repo      *memTripRepo
	generator *fakeGenerator
	search    *fakeSearch
	flights   *fakeFlights
	hotels    *fakeHotels
	tours     *fakeTours
	builder   *TripBuildOrchestrator
}

func confirmedTrip(id string) *entity.Trip {
	trip := awaitingTrip(id, "Lisbon", "Porto")
	trip.Phase = entity.PhaseBuilding
	trip.DestinationsConfirmed = true
	trip.ConfirmedDestinations = trip.ResearchDestinations
	return trip
}

func newBuildFixture(t *testing.T, trip *entity.Trip) *buildFixture {
	t.Helper()
	f := &buildFixture{
		repo:      newMemTripRepo(trip),
		generator: newFakeGenerator("openai").on(opBuildOptions, optionsAnswer).on(opItinerary, itineraryAnswer),
		search:    &fakeSearch{name: "tavily", available: true},
		flights:   &fakeFlights{},
		hotels:    &fakeHotels{},
		tours:     &fakeTours{},
	}
	catalog := testCatalog()
	gen := NewGenerativeClient([]GenerativeProvider{f.generator}, catalog, nil, nil, testLogger)
	search := NewSearchClient([]SearchProvider{f.search}, catalog, 5, nil, testLogger)
	enricher := NewEnrichmentClient(nil, search, catalog, 3, nil, testLogger)
	f.builder = NewTripBuildOrchestrator(f.repo, NewPhaseGate(), gen, enricher, f.flights, f.hotels, f.tours, catalog, 3, 1.0, nil, testLogger)
	return f
}

func TestBuild_ProducesPricedOptionsWithinConfirmedDestinations(t *testing.T) {
	f := newBuildFixture(t, confirmedTrip("trip-1"))

	require.NoError(t, f.builder.Build(context.Background(), "trip-1"))

	trip := f.repo.snapshot("trip-1")
	assert.Equal(t, entity.PhaseOptionsReady, trip.Phase)
	assert.Equal(t, 100, trip.Progress)
	require.Len(t, trip.Options, 2)

	budget := trip.Options[0]
	assert.Equal(t, 0, budget.Index)
	require.Len(t, budget.Hotels, 2, "hotels outside the confirmed destinations are dropped")
	assert.Equal(t, 3, budget.Hotels[1].Nights, "missing nights default to the planned stay")
	assert.Equal(t, "Lisbon", budget.Tours[0].City)
	assert.InDelta(t, 800+300+270+40, budget.TotalCostUSD, 1e-9)

	for _, opt := range trip.Options {
		assert.InDelta(t, opt.LineItemTotal(), opt.TotalCostUSD, 1e-9)
		for _, h := range opt.Hotels {
			assert.Contains(t, []string{"Lisbon", "Porto"}, h.City)
			assert.Contains(t, h.BookingURL, "booking.com")
		}
		for _, tour := range opt.Tours {
			assert.NotEmpty(t, tour.BookingURL)
		}
	}

	// five distinct items; Hotel Lisbon appears in both options but is looked up once
	assert.Equal(t, 5, f.search.callCount())
	assert.EqualValues(t, 1, f.flights.calls)
	assert.EqualValues(t, 2, f.hotels.calls)
	assert.EqualValues(t, 2, f.tours.calls)

	assert.Len(t, f.repo.events("trip-1", entity.EventOptionItemDropped), 1)
	assert.Len(t, f.repo.events("trip-1", entity.EventBuildCompleted), 1)
	assert.Greater(t, trip.CostAPIUSD, 0.0)

	var prompt string
	for _, c := range f.generator.calls {
		if c.Operation == opBuildOptions {
			prompt = c.Prompt
		}
	}
	assert.Contains(t, prompt, "Lisbon, Portugal: 3 nights from 2026-05-01")
	assert.Contains(t, prompt, "Porto, Portugal: 3 nights from 2026-05-04")
	assert.Contains(t, prompt, "Hotel Lisbon")
}

func TestBuild_RequiresConfirmedDestinations(t *testing.T) {
	f := newBuildFixture(t, awaitingTrip("trip-1", "Lisbon"))

	err := f.builder.Build(context.Background(), "trip-1")
	var violation *PhaseViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, GateDestinationsNotConfirmed, violation.Result.Code)
	assert.True(t, violation.Result.RequiresConfirmation)
	assert.Zero(t, f.generator.callCount(""))
	assert.Empty(t, f.repo.snapshot("trip-1").Options)
}

func TestBuild_BookingFailuresDegradeToPlaceholders(t *testing.T) {
	f := newBuildFixture(t, confirmedTrip("trip-1"))
	f.hotels.err = errProviderDown
	f.tours.err = errProviderDown

	require.NoError(t, f.builder.Build(context.Background(), "trip-1"))
	assert.Equal(t, entity.PhaseOptionsReady, f.repo.snapshot("trip-1").Phase)
	assert.Len(t, f.repo.events("trip-1", entity.EventBookingSearchFailed), 4)
}

func TestBuild_MalformedOptionsFail(t *testing.T) {
	f := newBuildFixture(t, confirmedTrip("trip-1"))
	f.generator.on(opBuildOptions, "Sorry, I cannot help with that.")

	err := f.builder.Build(context.Background(), "trip-1")
	require.Error(t, err)
	assert.Empty(t, f.repo.snapshot("trip-1").Options)
}

func TestBuild_CapsOptionCount(t *testing.T) {
	f := newBuildFixture(t, confirmedTrip("trip-1"))
	opts := make([]string, 6)
	for i := range opts {
		opts[i] = `{"title": "Opt", "hotels": [{"city": "Porto", "name": "H", "nights": 1, "nightly_cost_usd": 10}]}`
	}
	f.generator.on(opBuildOptions, "["+strings.Join(opts, ",")+"]")

	require.NoError(t, f.builder.Build(context.Background(), "trip-1"))
	assert.Len(t, f.repo.snapshot("trip-1").Options, maxTripOptions)
}

func TestPlanSchedule_SplitsNightsAcrossDestinations(t *testing.T) {
	f := newBuildFixture(t, confirmedTrip("trip-1"))
	trip := confirmedTrip("trip-1")
	trip.Preferences.DurationDays = 7

	s := f.builder.planSchedule(trip)
	require.Len(t, s.Stays, 2)
	assert.Equal(t, 4, s.Stays[0].Nights)
	assert.Equal(t, 3, s.Stays[1].Nights)
	assert.Equal(t, "2026-05-05", s.Stays[1].CheckIn)
	assert.Equal(t, "2026-05-08", s.Return.Format(dateLayout))

	trip.Preferences.DurationDays = 0
	trip.ConfirmedDestinations[0].EstimatedDays = 5
	s = f.builder.planSchedule(trip)
	assert.Equal(t, 5, s.Stays[0].Nights)
	assert.Equal(t, 3, s.Stays[1].Nights)
}

func TestGetItinerary_GeneratesOnceThenServesCache(t *testing.T) {
	f := newBuildFixture(t, confirmedTrip("trip-1"))
	require.NoError(t, f.builder.Build(context.Background(), "trip-1"))

	days, cached, err := f.builder.GetItinerary(context.Background(), "trip-1", 1)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, days, 2)
	assert.Equal(t, 1, days[0].Day)
	assert.Equal(t, "Arrival", days[0].Title)
	assert.Equal(t, 2, days[1].Day)

	again, cached, err := f.builder.GetItinerary(context.Background(), "trip-1", 1)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, days, again)
	assert.Equal(t, 1, f.generator.callCount(opItinerary))

	assert.Empty(t, f.repo.snapshot("trip-1").Options[0].Itinerary)
}

func TestGetItinerary_ConcurrentRequestsShareOneGeneration(t *testing.T) {
	f := newBuildFixture(t, confirmedTrip("trip-1"))
	require.NoError(t, f.builder.Build(context.Background(), "trip-1"))

	release := make(chan struct{})
	f.generator.handlers[opItinerary] = func(GenerationRequest) (string, error) {
		<-release
		return itineraryAnswer, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.builder.GetItinerary(context.Background(), "trip-1", 0)
			assert.NoError(t, err)
		}()
	}
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, f.generator.callCount(opItinerary), 3)
	assert.Len(t, f.repo.snapshot("trip-1").Options[0].Itinerary, 2)
}

func TestGetItinerary_Gate(t *testing.T) {
	f := newBuildFixture(t, confirmedTrip("trip-1"))

	_, _, err := f.builder.GetItinerary(context.Background(), "trip-1", 0)
	var violation *PhaseViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, GateNoTripOptions, violation.Result.Code)
}
