package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	opAnswer = "answer_question"

	statusBuildingTrip     = "building_trip"
	buildingMessage        = "Building your trip options. This usually takes a couple of minutes."
	buildFailureMessage    = "We couldn't build trip options for these destinations. Please confirm again to retry."
	dispatchFailureMessage = "We couldn't start building your trip. Please confirm again to retry."
	answerFailureMessage   = "Sorry, I couldn't answer that right now. Please try again."

	baseBuildEstimate        = 90 * time.Second
	perDestinationEstimate   = 30 * time.Second
	conversationContextTurns = 6

	rollbackTimeout = 10 * time.Second
)

// BuildDispatcher hands a Phase 2 build off to run outside the request
type BuildDispatcher interface {
	Dispatch(ctx context.Context, tripID string) error
}

// BuildRunner executes a dispatched build inside its own error boundary
type BuildRunner interface {
	RunBuild(ctx context.Context, tripID string) error
}

// BuildRunnerFunc adapts a function to BuildRunner
type BuildRunnerFunc func(ctx context.Context, tripID string) error

// RunBuild calls f(ctx, tripID)
func (f BuildRunnerFunc) RunBuild(ctx context.Context, tripID string) error {
	return f(ctx, tripID)
}

// CreateTripInput holds the fields a client may set on a new trip
type CreateTripInput struct {
	Request     string
	Model       string
	Preferences entity.Preferences
}

// ConfirmResult is returned once a build has been handed off
type ConfirmResult struct {
	Status              string
	ProgressMessage     string
	EstimatedCompletion time.Time
	Destinations        []entity.Destination
}

// MessageReply is the assistant's answer to one conversation turn
type MessageReply struct {
	Intent       string
	Reply        string
	Destinations []entity.Destination
	Confirmation *ConfirmResult
}

// TripService is the entry point for every trip operation
type TripService struct {
	trips      repository.TripRepository
	jobs       repository.BuildJobRepository
	gate       *PhaseGate
	research   *ResearchOrchestrator
	builder    *TripBuildOrchestrator
	generator  *GenerativeClient
	classifier RefinementClassifier
	dispatcher BuildDispatcher
	metrics    *metrics.Metrics
	logger     logger.Logger
	now        func() time.Time
}

// NewTripService creates a new trip service. jobs may be nil.
func NewTripService(
	trips repository.TripRepository,
	jobs repository.BuildJobRepository,
	gate *PhaseGate,
	research *ResearchOrchestrator,
	builder *TripBuildOrchestrator,
	generator *GenerativeClient,
	classifier RefinementClassifier,
	dispatcher BuildDispatcher,
	m *metrics.Metrics,
	log logger.Logger,
) *TripService {
	return &TripService{
		trips:      trips,
		jobs:       jobs,
		gate:       gate,
		research:   research,
		builder:    builder,
		generator:  generator,
		classifier: classifier,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     log,
		now:        time.Now,
	}
}

// CreateTrip stores a new trip in RESEARCHING
func (s *TripService) CreateTrip(ctx context.Context, in CreateTripInput) (*entity.Trip, error) {
	now := s.now()
	trip := &entity.Trip{
		ID:          uuid.NewString(),
		Phase:       entity.PhaseResearching,
		UserRequest: strings.TrimSpace(in.Request),
		Model:       strings.TrimSpace(in.Model),
		Preferences: in.Preferences,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.trips.CreateTrip(ctx, trip); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	s.metrics.ObservePhase(string(entity.PhaseResearching))
	s.logger.Info("Trip created", "tripID", trip.ID, "model", trip.Model)
	return trip, nil
}

// GetTrip loads a trip
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*entity.Trip, error) {
	return s.trips.GetTrip(ctx, tripID)
}

// GetTelemetry returns the trip's telemetry log
func (s *TripService) GetTelemetry(ctx context.Context, tripID string) ([]entity.TelemetryEvent, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return trip.TelemetryLog, nil
}

// LatestBuild returns the most recent queued build for a trip, or nil
func (s *TripService) LatestBuild(ctx context.Context, tripID string) (*entity.BuildJob, error) {
	if s.jobs == nil {
		return nil, nil
	}
	return s.jobs.GetLatestByTripID(ctx, tripID)
}

// HandleMessage routes one conversation turn by phase: research before any
// destinations exist, refinement while they await confirmation, and a plain
// answer otherwise
func (s *TripService) HandleMessage(ctx context.Context, tripID, text string) (*MessageReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("message is empty")
	}

	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	s.appendMessage(ctx, trip.ID, entity.RoleUser, text)

	var reply *MessageReply
	switch {
	case trip.Phase == entity.PhaseResearching,
		trip.Phase == entity.PhaseAwaitingConfirmation && len(trip.ResearchDestinations) == 0:
		reply, err = s.startResearch(ctx, trip, text)
	case trip.Phase == entity.PhaseAwaitingConfirmation && !trip.DestinationsConfirmed:
		reply, err = s.refine(ctx, trip, text)
	default:
		reply = &MessageReply{Intent: IntentName(QuestionIntent{}), Reply: s.answer(ctx, trip, text)}
	}
	if err != nil {
		return nil, err
	}

	s.appendMessage(ctx, trip.ID, entity.RoleAssistant, reply.Reply)
	return reply, nil
}

func (s *TripService) startResearch(ctx context.Context, trip *entity.Trip, text string) (*MessageReply, error) {
	request := text
	if trip.UserRequest != "" && !strings.EqualFold(trip.UserRequest, text) {
		request = trip.UserRequest + "\n" + text
	}

	res, err := s.research.Research(ctx, trip, request)
	return s.researchReply("research", res, err)
}

func (s *TripService) refine(ctx context.Context, trip *entity.Trip, text string) (*MessageReply, error) {
	intent := s.classifier.Classify(text, trip.ResearchDestinations)
	s.logger.Debug("Classified refinement", "tripID", trip.ID, "intent", IntentName(intent))

	switch it := intent.(type) {
	case ConfirmIntent:
		result, err := s.ConfirmDestinations(ctx, trip.ID, nil, nil)
		if err != nil {
			return nil, err
		}
		return &MessageReply{
			Intent:       IntentName(it),
			Reply:        result.ProgressMessage,
			Destinations: result.Destinations,
			Confirmation: result,
		}, nil

	case RefineByIndexIntent:
		return s.keepByIndex(ctx, trip, it)

	case RefineByFilterIntent:
		res, err := s.research.Refine(ctx, trip, it.Filter)
		return s.researchReply(IntentName(it), res, err)

	case QuestionIntent:
		return &MessageReply{Intent: IntentName(it), Reply: s.answer(ctx, trip, it.Text)}, nil

	default:
		return nil, fmt.Errorf("unhandled refinement intent %T", intent)
	}
}

func (s *TripService) keepByIndex(ctx context.Context, trip *entity.Trip, intent RefineByIndexIntent) (*MessageReply, error) {
	n := len(trip.ResearchDestinations)
	valid := lo.Uniq(lo.Filter(intent.Indices, func(i int, _ int) bool { return i >= 1 && i <= n }))
	if len(valid) == 0 {
		return &MessageReply{
			Intent:       IntentName(intent),
			Reply:        fmt.Sprintf("Please pick destinations by number between 1 and %d.", n),
			Destinations: trip.ResearchDestinations,
		}, nil
	}

	kept := lo.Map(valid, func(i int, _ int) entity.Destination { return trip.ResearchDestinations[i-1] })
	if err := s.trips.UpdateResearchDestinations(ctx, trip.ID, kept, trip.ResearchSummary); err != nil {
		return nil, fmt.Errorf("save research destinations: %w", err)
	}

	names := lo.Map(kept, func(d entity.Destination, _ int) string { return d.Name })
	return &MessageReply{
		Intent:       IntentName(intent),
		Reply:        fmt.Sprintf("Keeping %s. Confirm when you're ready and I'll build trip options.", strings.Join(names, ", ")),
		Destinations: kept,
	}, nil
}

func (s *TripService) researchReply(intent string, res *ResearchResult, err error) (*MessageReply, error) {
	if err != nil {
		var violation *PhaseViolationError
		if errors.As(err, &violation) || errors.Is(err, repository.ErrTripNotFound) {
			return nil, err
		}
		return &MessageReply{Intent: intent, Reply: researchFailureMessage}, nil
	}

	var b strings.Builder
	if res.Summary != "" {
		b.WriteString(res.Summary)
		b.WriteString("\n\n")
	}
	for i, d := range res.Destinations {
		fmt.Fprintf(&b, "%d. %s, %s: %s\n", i+1, d.Name, d.Country, d.Rationale)
	}
	b.WriteString("\nReply with the numbers you want to keep, tell me what to change, or confirm to start building options.")

	return &MessageReply{Intent: intent, Reply: b.String(), Destinations: res.Destinations}, nil
}

func (s *TripService) answer(ctx context.Context, trip *entity.Trip, question string) string {
	dests := trip.ConfirmedDestinations
	if len(dests) == 0 {
		dests = trip.ResearchDestinations
	}
	prompt, err := renderPrompt(questionTemplate, map[string]interface{}{
		"Phase":        trip.Phase,
		"Request":      trip.UserRequest,
		"Destinations": strings.Join(lo.Map(dests, func(d entity.Destination, _ int) string { return d.Name }), ", "),
		"Summary":      trip.ResearchSummary,
		"Question":     question,
	})
	if err != nil {
		s.logger.Error("Failed to render question prompt", "tripID", trip.ID, "error", err)
		return answerFailureMessage
	}
	if excerpt := conversationExcerpt(trip.Messages, conversationContextTurns); excerpt != "" {
		prompt = "Conversation so far:\n" + excerpt + "\n\n" + prompt
	}

	ledger := NewCostLedger(trip.ID, s.trips, s.metrics, s.logger)
	resp, err := s.generator.Generate(ctx, ledger, GenerationRequest{
		Operation:    opAnswer,
		SystemPrompt: plannerSystemPrompt,
		Prompt:       prompt,
		Model:        trip.Model,
		MaxTokens:    600,
		Temperature:  0.6,
	})
	if err != nil {
		s.logger.Warn("Failed to answer question", "tripID", trip.ID, "error", err)
		return answerFailureMessage
	}
	return strings.TrimSpace(resp.Text)
}

// ConfirmDestinations validates the confirmed subset, persists it and hands
// the build off. names empty confirms every researched destination; prefs nil
// keeps the stored preferences. Nothing is written when validation fails.
func (s *TripService) ConfirmDestinations(ctx context.Context, tripID string, names []string, prefs *entity.Preferences) (*ConfirmResult, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CheckConfirmationEligibility(trip).Err(); err != nil {
		return nil, err
	}

	selected, result := s.gate.SelectConfirmed(trip, names)
	if err := result.Err(); err != nil {
		return nil, err
	}

	preferences := trip.Preferences
	if prefs != nil {
		preferences = *prefs
	}

	if err := s.trips.ConfirmDestinations(ctx, trip.ID, selected, preferences); err != nil {
		return nil, fmt.Errorf("confirm destinations: %w", err)
	}
	s.metrics.ObservePhase(string(entity.PhaseBuilding))
	s.recordEvent(ctx, trip.ID, entity.NewTelemetryEvent(entity.EventDestinationsConfirmed, map[string]interface{}{
		"destinations": lo.Map(selected, func(d entity.Destination, _ int) string { return d.Name }),
	}))

	if err := s.dispatcher.Dispatch(ctx, trip.ID); err != nil {
		s.logger.Error("Failed to dispatch trip build", "tripID", trip.ID, "error", err)
		s.rollback(ctx, trip.ID, dispatchFailureMessage, err)
		return nil, fmt.Errorf("dispatch build: %w", err)
	}

	estimate := baseBuildEstimate + time.Duration(len(selected))*perDestinationEstimate
	s.logger.Info("Destinations confirmed, build dispatched", "tripID", trip.ID, "destinations", len(selected))

	return &ConfirmResult{
		Status:              statusBuildingTrip,
		ProgressMessage:     buildingMessage,
		EstimatedCompletion: s.now().Add(estimate).UTC(),
		Destinations:        selected,
	}, nil
}

// RunBuild executes Phase 2 for a dispatched trip. Any error or panic is
// logged to telemetry and returns the trip to AWAITING_CONFIRMATION so the
// traveller can confirm again.
func (s *TripService) RunBuild(ctx context.Context, tripID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err == nil {
			return
		}

		failure := &BackgroundPipelineFailure{TripID: tripID, Err: err}
		s.logger.Error("Trip build failed", "tripID", tripID, "error", err)
		s.metrics.IncError("build")

		var violation *PhaseViolationError
		if errors.As(err, &violation) || errors.Is(err, repository.ErrTripNotFound) {
			err = failure
			return
		}
		s.rollback(ctx, tripID, buildFailureMessage, err)
		err = failure
	}()

	return s.builder.Build(ctx, tripID)
}

// rollback runs on a context detached from the caller's, which is often the
// expired build deadline or a closed request.
func (s *TripService) rollback(parent context.Context, tripID, message string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), rollbackTimeout)
	defer cancel()

	s.recordEvent(ctx, tripID, entity.NewTelemetryEvent(entity.EventBuildFailed, map[string]interface{}{
		"error": cause.Error(),
	}))
	if err := s.trips.ResetConfirmation(ctx, tripID, message); err != nil {
		s.logger.Error("Failed to roll back trip confirmation", "tripID", tripID, "error", err)
		return
	}
	s.metrics.ObservePhase(string(entity.PhaseAwaitingConfirmation))
}

// GetItinerary returns the cached or freshly generated itinerary of one option
func (s *TripService) GetItinerary(ctx context.Context, tripID string, optionIndex int) ([]entity.ItineraryDay, bool, error) {
	return s.builder.GetItinerary(ctx, tripID, optionIndex)
}

// SelectOption records the traveller's chosen option; it may be changed until hand-off
func (s *TripService) SelectOption(ctx context.Context, tripID string, optionIndex int) (*entity.Trip, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CheckOptionSelectionEligibility(trip, optionIndex).Err(); err != nil {
		return nil, err
	}

	if err := s.trips.SelectTripOption(ctx, trip.ID, optionIndex); err != nil {
		return nil, fmt.Errorf("select option: %w", err)
	}
	s.metrics.ObservePhase(string(entity.PhaseOptionSelected))
	s.recordEvent(ctx, trip.ID, entity.NewTelemetryEvent(entity.EventOptionSelected, map[string]interface{}{
		"option":    optionIndex,
		"total_usd": trip.Options[optionIndex].TotalCostUSD,
	}))

	return s.trips.GetTrip(ctx, trip.ID)
}

// HandOff marks the selected option as passed to a human agent
func (s *TripService) HandOff(ctx context.Context, tripID string) (*entity.Trip, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CheckHandoffEligibility(trip).Err(); err != nil {
		return nil, err
	}

	if err := s.trips.MarkHandedOff(ctx, trip.ID); err != nil {
		return nil, fmt.Errorf("hand off trip: %w", err)
	}
	s.metrics.ObservePhase(string(entity.PhaseHandedOff))
	s.recordEvent(ctx, trip.ID, entity.NewTelemetryEvent(entity.EventHandedOff, map[string]interface{}{
		"option":   *trip.SelectedOptionIndex,
		"cost_usd": trip.TotalCostUSD(),
	}))

	return s.trips.GetTrip(ctx, trip.ID)
}

func (s *TripService) recordEvent(ctx context.Context, tripID string, event entity.TelemetryEvent) {
	if err := s.trips.AppendTelemetryLog(ctx, tripID, event); err != nil {
		s.logger.Warn("Failed to append telemetry", "tripID", tripID, "event", event.Event, "error", err)
	}
}

func (s *TripService) appendMessage(ctx context.Context, tripID, role, content string) {
	msg := entity.ChatMessage{Role: role, Content: content, CreatedAt: s.now()}
	if err := s.trips.AppendMessage(ctx, tripID, msg); err != nil {
		s.logger.Warn("Failed to append message", "tripID", tripID, "role", role, "error", err)
	}
}
