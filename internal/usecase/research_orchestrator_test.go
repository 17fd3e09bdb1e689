package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"tripcast-service/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	interpretAnswer  = `{"queries": ["portugal food destinations", "best portuguese cities for food"], "constraints": ["spring", "two adults"]}`
	synthesizeAnswer = "Here you go:\n```json\n{\"destinations\": [{\"name\": \"Lisbon\", \"country\": \"Portugal\", \"key_sites\": [\"Alfama\"], \"rationale\": \"Seafood\", \"estimated_days\": 3}, {\"name\": \"Porto\", \"country\": \"Portugal\", \"key_sites\": [\"Ribeira\"], \"rationale\": \"Port wine\", \"estimated_days\": 3},], \"summary\": \"Two food capitals.\"}\n```"
	refineAnswer     = `{"destinations": [{"name": "Porto", "country": "Portugal", "estimated_days": 3}, {"name": "Braga", "country": "Portugal", "estimated_days": 2}], "summary": "The north."}`
)

type researchFixture struct {
	repo      *memTripRepo
	findings  *fakeFindings
	generator *fakeGenerator
	search    *fakeSearch
	scraper   *fakeScraper
	research  *ResearchOrchestrator
}

func newResearchFixture(t *testing.T, trip *entity.Trip) *researchFixture {
	t.Helper()
	f := &researchFixture{
		repo:      newMemTripRepo(trip),
		findings:  newFakeFindings(),
		generator: newFakeGenerator("openai").on(opInterpret, interpretAnswer).on(opSynthesize, synthesizeAnswer).on(opRefine, refineAnswer),
		search:    &fakeSearch{name: "tavily", available: true},
		scraper:   &fakeScraper{name: "firecrawl", available: true},
	}
	catalog := testCatalog()
	gen := NewGenerativeClient([]GenerativeProvider{f.generator}, catalog, nil, nil, testLogger)
	search := NewSearchClient([]SearchProvider{f.search}, catalog, 5, nil, testLogger)
	enricher := NewEnrichmentClient([]Scraper{f.scraper}, search, catalog, 3, nil, testLogger)
	f.research = NewResearchOrchestrator(f.repo, f.findings, gen, search, enricher, NewPhaseGate(), 1.0, nil, testLogger)
	return f
}

func TestResearch_ProducesDestinationsAndAwaitsConfirmation(t *testing.T) {
	trip := &entity.Trip{ID: "trip-1", Phase: entity.PhaseResearching, UserRequest: "food trip to Portugal"}
	f := newResearchFixture(t, trip)

	res, err := f.research.Research(context.Background(), trip, trip.UserRequest)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Destinations), 2)
	assert.Equal(t, []string{"portugal food destinations", "best portuguese cities for food"}, res.Queries)

	stored := f.repo.snapshot("trip-1")
	assert.Equal(t, entity.PhaseAwaitingConfirmation, stored.Phase)
	assert.Equal(t, "Lisbon", stored.ResearchDestinations[0].Name)
	assert.Equal(t, "Two food capitals.", stored.ResearchSummary)
	assert.Equal(t, 100, stored.Progress)
	assert.Empty(t, stored.ErrorMessage)
	assert.Greater(t, stored.CostAIUSD, 0.0)
	assert.Greater(t, stored.CostAPIUSD, 0.0)

	assert.Equal(t, 2, f.search.callCount())
	assert.EqualValues(t, 3, f.scraper.calls, "only the top pages are enriched")
	assert.Len(t, f.repo.events("trip-1", entity.EventResearchCompleted), 1)

	cached, _ := f.findings.Get(context.Background(), "trip-1")
	require.NotNil(t, cached)
	assert.Len(t, cached.Results, 4)
}

func TestResearch_InterpretationFallsBackToTemplateQueries(t *testing.T) {
	trip := &entity.Trip{ID: "trip-1", Phase: entity.PhaseResearching}
	f := newResearchFixture(t, trip)
	f.generator.on(opInterpret, "I think you should search for beaches")

	res, err := f.research.Research(context.Background(), trip, "beach holiday")
	require.NoError(t, err)
	assert.Len(t, res.Queries, 3)
	assert.Contains(t, res.Queries[0], "beach holiday")
	assert.Equal(t, 3, f.search.callCount())
	assert.Len(t, f.repo.events("trip-1", entity.EventInterpretationFallback), 1)
}

func TestResearch_DegradesWithoutScraper(t *testing.T) {
	trip := &entity.Trip{ID: "trip-1", Phase: entity.PhaseResearching}
	f := newResearchFixture(t, trip)
	f.scraper.available = false

	_, err := f.research.Research(context.Background(), trip, "beach holiday")
	require.NoError(t, err)
	assert.Zero(t, f.scraper.calls)
	assert.Len(t, f.repo.events("trip-1", entity.EventEnrichmentDegraded), 1)
	assert.Equal(t, entity.PhaseAwaitingConfirmation, f.repo.snapshot("trip-1").Phase)
}

func TestResearch_SynthesisFailureRollsBackWithMessage(t *testing.T) {
	trip := &entity.Trip{ID: "trip-1", Phase: entity.PhaseResearching}
	f := newResearchFixture(t, trip)
	f.generator.handlers[opSynthesize] = func(GenerationRequest) (string, error) { return "", errProviderDown }

	_, err := f.research.Research(context.Background(), trip, "beach holiday")
	require.Error(t, err)

	var failed *AllProvidersFailedError
	assert.True(t, errors.As(err, &failed))

	stored := f.repo.snapshot("trip-1")
	assert.Equal(t, entity.PhaseAwaitingConfirmation, stored.Phase)
	assert.Equal(t, researchFailureMessage, stored.ErrorMessage)
	assert.Empty(t, stored.ResearchDestinations)
	assert.Len(t, f.repo.events("trip-1", entity.EventResearchFailed), 1)
}

func TestResearch_RejectedOnceConfirmed(t *testing.T) {
	trip := awaitingTrip("trip-1", "Lisbon")
	trip.DestinationsConfirmed = true
	trip.ConfirmedDestinations = trip.ResearchDestinations
	f := newResearchFixture(t, trip)

	_, err := f.research.Research(context.Background(), trip, "again")
	var violation *PhaseViolationError
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, GateAlreadyConfirmed, violation.Result.Code)
	assert.Zero(t, f.generator.callCount(""))
}

func TestRefine_ReusesCachedFindings(t *testing.T) {
	trip := &entity.Trip{ID: "trip-1", Phase: entity.PhaseResearching, UserRequest: "food trip to Portugal"}
	f := newResearchFixture(t, trip)

	_, err := f.research.Research(context.Background(), trip, trip.UserRequest)
	require.NoError(t, err)
	searches := f.search.callCount()

	current := f.repo.snapshot("trip-1")
	res, err := f.research.Refine(context.Background(), current, "skip Lisbon, more of the north")
	require.NoError(t, err)
	assert.Equal(t, searches, f.search.callCount())
	assert.Equal(t, "Porto", res.Destinations[0].Name)
	assert.Equal(t, "Braga", f.repo.snapshot("trip-1").ResearchDestinations[1].Name)

	var refineCall GenerationRequest
	for _, c := range f.generator.calls {
		if c.Operation == opRefine {
			refineCall = c
		}
	}
	assert.Contains(t, refineCall.Prompt, "skip Lisbon, more of the north")
	assert.Contains(t, refineCall.Prompt, "Lisbon, Porto")
}

func TestRefine_WithoutFindingsRunsFreshResearch(t *testing.T) {
	trip := awaitingTrip("trip-1", "Lisbon", "Porto")
	f := newResearchFixture(t, trip)

	_, err := f.research.Refine(context.Background(), trip, "add somewhere sunny")
	require.NoError(t, err)
	assert.Equal(t, 1, f.generator.callCount(opInterpret))
	assert.Equal(t, 1, f.generator.callCount(opSynthesize))
	assert.Zero(t, f.generator.callCount(opRefine))
}

func TestFallbackQueries_LongMultibyteRequestStaysValidUTF8(t *testing.T) {
	request := strings.Repeat("東京の寺と温泉", 20)

	queries := fallbackQueries(request)
	require.Len(t, queries, 3)
	for _, q := range queries {
		assert.True(t, utf8.ValidString(q), "query %q", q)
		assert.NotContains(t, q, "TRUNCATED")
	}
}
