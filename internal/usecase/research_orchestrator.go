package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/metrics"
	"tripcast-service/pkg/utils"

	"github.com/samber/lo"
)

const (
	opInterpret  = "interpret_request"
	opSearch     = "destination_search"
	opSynthesize = "synthesize_destinations"
	opRefine     = "refine_destinations"

	researchFailureMessage = "We couldn't finish researching destinations right now. Please try again in a moment."
	maxEnrichedPages       = 3
	maxResearchQueries     = 4
	maxPageChars           = 4000
)

// ResearchResult is what Phase 1 hands back to the conversation
type ResearchResult struct {
	Destinations []entity.Destination
	Summary      string
	Queries      []string
	CostUSD      float64
}

type researchPlan struct {
	Queries     []string `json:"queries"`
	Constraints []string `json:"constraints"`
}

type synthesisOutput struct {
	Destinations []entity.Destination `json:"destinations"`
	Summary      string               `json:"summary"`
}

// ResearchOrchestrator runs Phase 1: interpret, search, enrich, synthesize
type ResearchOrchestrator struct {
	trips      repository.TripRepository
	findings   repository.ResearchCacheRepository
	generator  *GenerativeClient
	search     *SearchClient
	enricher   *EnrichmentClient
	gate       *PhaseGate
	costTarget float64
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// NewResearchOrchestrator creates a new research orchestrator. findings and
// enricher may be nil.
func NewResearchOrchestrator(
	trips repository.TripRepository,
	findings repository.ResearchCacheRepository,
	generator *GenerativeClient,
	search *SearchClient,
	enricher *EnrichmentClient,
	gate *PhaseGate,
	costTarget float64,
	m *metrics.Metrics,
	log logger.Logger,
) *ResearchOrchestrator {
	return &ResearchOrchestrator{
		trips:      trips,
		findings:   findings,
		generator:  generator,
		search:     search,
		enricher:   enricher,
		gate:       gate,
		costTarget: costTarget,
		metrics:    m,
		logger:     log,
	}
}

// Research runs a full research pass for request and leaves the trip in
// AWAITING_CONFIRMATION, with an error message when synthesis failed
func (o *ResearchOrchestrator) Research(ctx context.Context, trip *entity.Trip, request string) (*ResearchResult, error) {
	if err := o.gate.CheckResearchEligibility(trip).Err(); err != nil {
		return nil, err
	}

	ledger := NewCostLedger(trip.ID, o.trips, o.metrics, o.logger)
	log := o.logger.With("tripID", trip.ID)
	log.Info("Starting destination research")

	o.progress(ctx, trip.ID, 10, "Understanding your trip")
	plan := o.interpret(ctx, ledger, trip, request)

	o.progress(ctx, trip.ID, 30, "Searching for destinations")
	results := o.searchAll(ctx, ledger, plan.Queries)

	o.progress(ctx, trip.ID, 55, "Reading travel guides")
	pages := o.enrich(ctx, ledger, results)

	findings := &entity.ResearchFindings{
		TripID:      trip.ID,
		Request:     request,
		Queries:     plan.Queries,
		Constraints: plan.Constraints,
		Results:     results,
		Pages:       pages,
		CreatedAt:   time.Now(),
	}
	o.cacheFindings(ctx, findings)

	o.progress(ctx, trip.ID, 75, "Choosing destinations")
	out, err := o.synthesize(ctx, ledger, opSynthesize, trip.Model, findings, nil, "")
	if err != nil {
		return nil, o.fail(ctx, ledger, trip.ID, err)
	}

	if err := o.persist(ctx, ledger, trip.ID, out); err != nil {
		return nil, err
	}

	log.Info("Destination research completed",
		"destinations", len(out.Destinations),
		"costUSD", ledger.TotalUSD())

	return &ResearchResult{
		Destinations: out.Destinations,
		Summary:      out.Summary,
		Queries:      plan.Queries,
		CostUSD:      ledger.TotalUSD(),
	}, nil
}

// Refine re-synthesizes the destination list with the traveller's adjustment,
// reusing cached findings. Without cached findings it runs a fresh research pass.
func (o *ResearchOrchestrator) Refine(ctx context.Context, trip *entity.Trip, adjustment string) (*ResearchResult, error) {
	if err := o.gate.CheckResearchEligibility(trip).Err(); err != nil {
		return nil, err
	}

	var findings *entity.ResearchFindings
	if o.findings != nil {
		cached, err := o.findings.Get(ctx, trip.ID)
		if err != nil {
			o.logger.Warn("Failed to load research findings", "tripID", trip.ID, "error", err)
		}
		findings = cached
	}
	if findings == nil {
		return o.Research(ctx, trip, strings.TrimSpace(trip.UserRequest+"\n"+adjustment))
	}

	ledger := NewCostLedger(trip.ID, o.trips, o.metrics, o.logger)
	o.progress(ctx, trip.ID, 75, "Adjusting destinations")

	out, err := o.synthesize(ctx, ledger, opRefine, trip.Model, findings, trip.ResearchDestinations, adjustment)
	if err != nil {
		return nil, o.fail(ctx, ledger, trip.ID, err)
	}
	if err := o.persist(ctx, ledger, trip.ID, out); err != nil {
		return nil, err
	}

	return &ResearchResult{
		Destinations: out.Destinations,
		Summary:      out.Summary,
		Queries:      findings.Queries,
		CostUSD:      ledger.TotalUSD(),
	}, nil
}

func (o *ResearchOrchestrator) interpret(ctx context.Context, ledger *CostLedger, trip *entity.Trip, request string) researchPlan {
	prompt, err := renderPrompt(interpretTemplate, map[string]interface{}{
		"Request":      request,
		"Conversation": conversationExcerpt(trip.Messages, 6),
	})
	if err == nil {
		var resp *GenerationResponse
		resp, err = o.generator.Generate(ctx, ledger, GenerationRequest{
			Operation:    opInterpret,
			SystemPrompt: plannerSystemPrompt,
			Prompt:       prompt,
			Model:        trip.Model,
			MaxTokens:    600,
			Temperature:  0.3,
			JSONMode:     true,
		})
		if err == nil {
			var plan researchPlan
			err = utils.ExtractInto(resp.Text, utils.ExtractOptions{Shape: utils.ShapeObject, RequiredKeys: []string{"queries"}}, &plan)
			if err == nil {
				plan.Queries = lo.Uniq(lo.Compact(lo.Map(plan.Queries, func(q string, _ int) string {
					return strings.TrimSpace(q)
				})))
				if len(plan.Queries) > maxResearchQueries {
					plan.Queries = plan.Queries[:maxResearchQueries]
				}
				if len(plan.Queries) > 0 {
					return plan
				}
				err = fmt.Errorf("no usable queries")
			}
		}
	}

	o.logger.Warn("Request interpretation failed, using fallback queries", "tripID", trip.ID, "error", err)
	ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventInterpretationFallback, map[string]interface{}{
		"error": err.Error(),
	}))
	return researchPlan{Queries: fallbackQueries(request)}
}

func fallbackQueries(request string) []string {
	subject := utils.CutAtRune(strings.TrimSpace(request), 120)
	return []string{
		fmt.Sprintf("best destinations for %s", subject),
		fmt.Sprintf("%s travel itinerary ideas", subject),
		fmt.Sprintf("%s hidden gems travel guide", subject),
	}
}

// searchAll fans the queries out in parallel. Failed queries are dropped.
func (o *ResearchOrchestrator) searchAll(ctx context.Context, ledger *CostLedger, queries []string) []entity.SearchResult {
	if o.search == nil || !o.search.IsAvailable() {
		ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventEnrichmentDegraded, map[string]interface{}{
			"stage":  "search",
			"reason": "no search provider configured",
		}))
		return nil
	}

	perQuery := make([][]entity.SearchResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			results, err := o.search.Search(ctx, ledger, opSearch, q)
			if err != nil {
				o.logger.Warn("Research query failed", "query", q, "error", err)
				return
			}
			perQuery[i] = results
		}(i, q)
	}
	wg.Wait()

	return lo.UniqBy(lo.Flatten(perQuery), func(r entity.SearchResult) string {
		return strings.TrimSuffix(r.URL, "/")
	})
}

func (o *ResearchOrchestrator) enrich(ctx context.Context, ledger *CostLedger, results []entity.SearchResult) []entity.PageContent {
	if len(results) == 0 {
		return nil
	}
	if o.enricher == nil || !o.enricher.IsAvailable() {
		ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventEnrichmentDegraded, map[string]interface{}{
			"stage":  "enrich",
			"reason": "no scraper configured, using snippets only",
		}))
		return nil
	}

	top := results[:min(maxEnrichedPages, len(results))]
	urls := lo.Map(top, func(r entity.SearchResult, _ int) string { return r.URL })

	pages := o.enricher.EnrichPages(ctx, ledger, urls)
	for i := range pages {
		pages[i].Content = utils.Truncate(pages[i].Content, maxPageChars)
	}
	return pages
}

func (o *ResearchOrchestrator) synthesize(ctx context.Context, ledger *CostLedger, operation, model string, findings *entity.ResearchFindings, current []entity.Destination, adjustment string) (*synthesisOutput, error) {
	currentNames := strings.Join(lo.Map(current, func(d entity.Destination, _ int) string { return d.Name }), ", ")
	prompt, err := renderPrompt(synthesizeTemplate, map[string]interface{}{
		"Request":     findings.Request,
		"Constraints": findings.Constraints,
		"Results":     findings.Results,
		"Pages":       findings.Pages,
		"Current":     currentNames,
		"Refinement":  adjustment,
	})
	if err != nil {
		return nil, fmt.Errorf("render synthesis prompt: %w", err)
	}

	resp, err := o.generator.Generate(ctx, ledger, GenerationRequest{
		Operation:    operation,
		SystemPrompt: plannerSystemPrompt,
		Prompt:       prompt,
		Model:        model,
		MaxTokens:    2000,
		Temperature:  0.5,
		JSONMode:     true,
	})
	if err != nil {
		return nil, err
	}

	var out synthesisOutput
	if err := utils.ExtractInto(resp.Text, utils.ExtractOptions{Shape: utils.ShapeObject, RequiredKeys: []string{"destinations"}}, &out); err != nil {
		return nil, err
	}

	out.Destinations = lo.UniqBy(lo.Filter(out.Destinations, func(d entity.Destination, _ int) bool {
		return strings.TrimSpace(d.Name) != ""
	}), func(d entity.Destination) string {
		return strings.ToLower(strings.TrimSpace(d.Name))
	})
	if len(out.Destinations) == 0 {
		return nil, &utils.MalformedOutputError{Stage: utils.StageValidate, Reason: "no named destinations", Original: resp.Text}
	}
	out.Summary = strings.TrimSpace(out.Summary)
	return &out, nil
}

func (o *ResearchOrchestrator) persist(ctx context.Context, ledger *CostLedger, tripID string, out *synthesisOutput) error {
	if err := o.trips.UpdateResearchDestinations(ctx, tripID, out.Destinations, out.Summary); err != nil {
		return fmt.Errorf("save research destinations: %w", err)
	}
	if err := o.trips.UpdatePhase(ctx, tripID, entity.PhaseAwaitingConfirmation, ""); err != nil {
		return fmt.Errorf("advance trip phase: %w", err)
	}
	o.metrics.ObservePhase(string(entity.PhaseAwaitingConfirmation))
	o.progress(ctx, tripID, 100, "Destinations ready for review")

	ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventResearchCompleted, map[string]interface{}{
		"destinations": len(out.Destinations),
		"cost_usd":     ledger.TotalUSD(),
	}))
	ledger.WarnIfOverTarget(ctx, o.costTarget)
	return nil
}

func (o *ResearchOrchestrator) fail(ctx context.Context, ledger *CostLedger, tripID string, cause error) error {
	o.logger.Error("Destination research failed", "tripID", tripID, "error", cause)
	o.metrics.IncError("research")
	ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventResearchFailed, map[string]interface{}{
		"error": cause.Error(),
	}))
	if err := o.trips.UpdatePhase(ctx, tripID, entity.PhaseAwaitingConfirmation, researchFailureMessage); err != nil {
		o.logger.Error("Failed to roll back trip after research failure", "tripID", tripID, "error", err)
	}
	return fmt.Errorf("research trip %s: %w", tripID, cause)
}

func (o *ResearchOrchestrator) cacheFindings(ctx context.Context, findings *entity.ResearchFindings) {
	if o.findings == nil {
		return
	}
	if err := o.findings.Set(ctx, findings); err != nil {
		o.logger.Warn("Failed to cache research findings", "tripID", findings.TripID, "error", err)
	}
}

func (o *ResearchOrchestrator) progress(ctx context.Context, tripID string, percent int, message string) {
	if err := o.trips.UpdateProgress(ctx, tripID, percent, message); err != nil {
		o.logger.Warn("Failed to update progress", "tripID", tripID, "percent", percent, "error", err)
	}
}

func conversationExcerpt(messages []entity.ChatMessage, last int) string {
	if len(messages) > last {
		messages = messages[len(messages)-last:]
	}
	lines := lo.Map(messages, func(m entity.ChatMessage, _ int) string {
		return m.Role + ": " + m.Content
	})
	return strings.Join(lines, "\n")
}
