package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/domain/repository"
	"tripcast-service/pkg/logger"
	"tripcast-service/pkg/metrics"
	"tripcast-service/pkg/utils"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

const (
	opBuildOptions = "build_options"
	opItinerary    = "generate_itinerary"
	opFlightSearch = "flight_search"
	opHotelSearch  = "hotel_search"
	opTourSearch   = "tour_search"

	dateLayout         = "2006-01-02"
	maxTripOptions     = 4
	maxOffersPerPrompt = 5
	defaultTripNights  = 7
	defaultLeadDays    = 30
)

// TripBuildOrchestrator runs Phase 2: booking searches, option synthesis and
// booking-link enrichment, plus on-demand itineraries
type TripBuildOrchestrator struct {
	trips       repository.TripRepository
	gate        *PhaseGate
	generator   *GenerativeClient
	enricher    *EnrichmentClient
	flights     repository.FlightRepository
	hotels      repository.HotelRepository
	tours       repository.TourRepository
	catalog     *entity.ModelCatalog
	concurrency int
	costTarget  float64
	metrics     *metrics.Metrics
	logger      logger.Logger

	itineraries singleflight.Group
	now         func() time.Time
}

// NewTripBuildOrchestrator creates a new build orchestrator. Booking
// repositories and enricher may be nil; the build then degrades to placeholders.
func NewTripBuildOrchestrator(
	trips repository.TripRepository,
	gate *PhaseGate,
	generator *GenerativeClient,
	enricher *EnrichmentClient,
	flights repository.FlightRepository,
	hotels repository.HotelRepository,
	tours repository.TourRepository,
	catalog *entity.ModelCatalog,
	concurrency int,
	costTarget float64,
	m *metrics.Metrics,
	log logger.Logger,
) *TripBuildOrchestrator {
	if concurrency < 1 {
		concurrency = 3
	}
	return &TripBuildOrchestrator{
		trips:       trips,
		gate:        gate,
		generator:   generator,
		enricher:    enricher,
		flights:     flights,
		hotels:      hotels,
		tours:       tours,
		catalog:     catalog,
		concurrency: concurrency,
		costTarget:  costTarget,
		metrics:     m,
		logger:      log,
		now:         time.Now,
	}
}

type stayWindow struct {
	Destination entity.Destination
	CheckIn     string
	CheckOut    string
	Nights      int
}

type tripSchedule struct {
	Stays  []stayWindow
	Depart time.Time
	Return time.Time
}

// Build assembles priced options for a confirmed trip and moves it to OPTIONS_READY
func (o *TripBuildOrchestrator) Build(ctx context.Context, tripID string) error {
	trip, err := o.trips.GetTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("load trip: %w", err)
	}
	if err := o.gate.CheckPhase2Access(trip).Err(); err != nil {
		return err
	}

	start := time.Now()
	ledger := NewCostLedger(trip.ID, o.trips, o.metrics, o.logger)
	log := o.logger.With("tripID", trip.ID)
	log.Info("Starting trip build", "destinations", len(trip.ConfirmedDestinations))
	ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventBuildStarted, map[string]interface{}{
		"destinations": lo.Map(trip.ConfirmedDestinations, func(d entity.Destination, _ int) string { return d.Name }),
	}))

	schedule := o.planSchedule(trip)

	o.progress(ctx, trip.ID, 10, "Searching flights, hotels and tours")
	offers := o.searchBookings(ctx, ledger, trip, schedule)

	o.progress(ctx, trip.ID, 50, "Assembling trip options")
	options, err := o.synthesizeOptions(ctx, ledger, trip, schedule, offers)
	if err != nil {
		return fmt.Errorf("synthesize options: %w", err)
	}

	o.progress(ctx, trip.ID, 75, "Finding booking links")
	o.enrichBookingLinks(ctx, ledger, options)

	if err := o.trips.UpdateTripOptions(ctx, trip.ID, options); err != nil {
		return fmt.Errorf("save trip options: %w", err)
	}
	if err := o.trips.UpdatePhase(ctx, trip.ID, entity.PhaseOptionsReady, ""); err != nil {
		return fmt.Errorf("advance trip phase: %w", err)
	}
	o.metrics.ObservePhase(string(entity.PhaseOptionsReady))
	o.progress(ctx, trip.ID, 100, "Your trip options are ready")

	elapsed := time.Since(start)
	o.metrics.ObserveBuild(elapsed)
	ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventBuildCompleted, map[string]interface{}{
		"options":     len(options),
		"cost_usd":    ledger.TotalUSD(),
		"duration_ms": elapsed.Milliseconds(),
	}))
	ledger.WarnIfOverTarget(ctx, o.costTarget)

	log.Info("Trip build completed", "options", len(options), "costUSD", ledger.TotalUSD(), "duration", elapsed)
	return nil
}

func (o *TripBuildOrchestrator) planSchedule(trip *entity.Trip) tripSchedule {
	depart, err := time.Parse(dateLayout, trip.Preferences.StartDate)
	if err != nil {
		now := o.now()
		depart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, defaultLeadDays)
	}

	dests := trip.ConfirmedDestinations
	nights := make([]int, len(dests))
	if total := trip.Preferences.DurationDays; total > 0 {
		for i := range dests {
			nights[i] = total / len(dests)
			if i < total%len(dests) {
				nights[i]++
			}
		}
	} else {
		for i, d := range dests {
			nights[i] = max(d.EstimatedDays, 1)
		}
	}
	if lo.Sum(nights) == 0 && len(dests) > 0 {
		nights[0] = defaultTripNights
	}

	stays := make([]stayWindow, 0, len(dests))
	cursor := depart
	for i, d := range dests {
		checkOut := cursor.AddDate(0, 0, nights[i])
		stays = append(stays, stayWindow{
			Destination: d,
			CheckIn:     cursor.Format(dateLayout),
			CheckOut:    checkOut.Format(dateLayout),
			Nights:      nights[i],
		})
		cursor = checkOut
	}

	return tripSchedule{Stays: stays, Depart: depart, Return: cursor}
}

type bookingTask struct {
	kind string
	stay stayWindow
}

// searchBookings queries partners with at most o.concurrency calls in flight.
// Failed or unconfigured searches contribute nothing.
func (o *TripBuildOrchestrator) searchBookings(ctx context.Context, ledger *CostLedger, trip *entity.Trip, schedule tripSchedule) entity.BookingSearchResults {
	var tasks []bookingTask
	if trip.Preferences.DepartureAirport != "" && len(schedule.Stays) > 0 {
		tasks = append(tasks, bookingTask{kind: opFlightSearch, stay: schedule.Stays[0]})
	}
	for _, stay := range schedule.Stays {
		tasks = append(tasks, bookingTask{kind: opHotelSearch, stay: stay}, bookingTask{kind: opTourSearch, stay: stay})
	}

	results := utils.ProcessInBatches(ctx, tasks, o.concurrency, func(ctx context.Context, task bookingTask) (entity.BookingSearchResults, error) {
		return o.runBookingTask(ctx, ledger, trip, schedule, task)
	})

	var merged entity.BookingSearchResults
	for i, r := range results {
		if r.Err != nil {
			o.logger.Warn("Booking search failed", "tripID", trip.ID, "kind", tasks[i].kind, "city", tasks[i].stay.Destination.Name, "error", r.Err)
			ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventBookingSearchFailed, map[string]interface{}{
				"operation": tasks[i].kind,
				"city":      tasks[i].stay.Destination.Name,
				"error":     r.Err.Error(),
			}))
			continue
		}
		merged.Flights = append(merged.Flights, r.Value.Flights...)
		merged.Hotels = append(merged.Hotels, r.Value.Hotels...)
		merged.Tours = append(merged.Tours, r.Value.Tours...)
	}
	return merged
}

func (o *TripBuildOrchestrator) runBookingTask(ctx context.Context, ledger *CostLedger, trip *entity.Trip, schedule tripSchedule, task bookingTask) (entity.BookingSearchResults, error) {
	var (
		out      entity.BookingSearchResults
		provider string
		err      error
	)
	start := time.Now()

	switch task.kind {
	case opFlightSearch:
		if o.flights == nil || !o.flights.IsAvailable() {
			return out, nil
		}
		provider = o.flights.Name()
		out.Flights, err = o.flights.SearchFlights(ctx, entity.FlightQuery{
			Origin:      trip.Preferences.DepartureAirport,
			Destination: task.stay.Destination.Name,
			DepartDate:  schedule.Depart.Format(dateLayout),
			ReturnDate:  schedule.Return.Format(dateLayout),
			Adults:      max(trip.Preferences.Adults, 1),
		})
	case opHotelSearch:
		if o.hotels == nil || !o.hotels.IsAvailable() {
			return out, nil
		}
		provider = o.hotels.Name()
		out.Hotels, err = o.hotels.SearchHotels(ctx, entity.HotelQuery{
			City:     task.stay.Destination.Name,
			CheckIn:  task.stay.CheckIn,
			CheckOut: task.stay.CheckOut,
			Adults:   max(trip.Preferences.Adults, 1),
		})
	case opTourSearch:
		if o.tours == nil || !o.tours.IsAvailable() {
			return out, nil
		}
		provider = o.tours.Name()
		out.Tours, err = o.tours.SearchTours(ctx, task.stay.Destination.Name)
	}

	elapsed := time.Since(start)
	o.metrics.ObserveProviderCall(string(entity.ProviderBooking), provider, err == nil, elapsed)
	if err != nil {
		return entity.BookingSearchResults{}, fmt.Errorf("%s %s: %w", provider, task.kind, err)
	}

	ledger.TrackAPI(ctx, APICall{
		Provider:    provider,
		Operation:   task.kind,
		Calls:       1,
		UnitCostUSD: o.catalog.APICost(task.kind),
		Duration:    elapsed,
	})
	return out, nil
}

func (o *TripBuildOrchestrator) synthesizeOptions(ctx context.Context, ledger *CostLedger, trip *entity.Trip, schedule tripSchedule, offers entity.BookingSearchResults) ([]entity.TripOption, error) {
	origin := trip.Preferences.DepartureAirport
	if origin == "" {
		origin = "the traveller's nearest international airport"
	}

	hotelsByCity := lo.GroupBy(offers.Hotels, func(h entity.HotelOffer) string { return strings.ToLower(h.City) })
	toursByCity := lo.GroupBy(offers.Tours, func(t entity.TourOffer) string { return strings.ToLower(t.City) })
	var hotels []entity.HotelOffer
	var tours []entity.TourOffer
	for _, stay := range schedule.Stays {
		key := strings.ToLower(stay.Destination.Name)
		hotels = append(hotels, lo.Slice(hotelsByCity[key], 0, maxOffersPerPrompt)...)
		tours = append(tours, lo.Slice(toursByCity[key], 0, maxOffersPerPrompt)...)
	}

	prompt, err := renderPrompt(optionsTemplate, map[string]interface{}{
		"Stays":       schedule.Stays,
		"Preferences": trip.Preferences,
		"Origin":      origin,
		"DepartDate":  schedule.Depart.Format(dateLayout),
		"ReturnDate":  schedule.Return.Format(dateLayout),
		"Flights":     compactJSON(lo.Slice(offers.Flights, 0, maxOffersPerPrompt)),
		"Hotels":      compactJSON(hotels),
		"Tours":       compactJSON(tours),
	})
	if err != nil {
		return nil, fmt.Errorf("render options prompt: %w", err)
	}

	resp, err := o.generator.Generate(ctx, ledger, GenerationRequest{
		Operation:    opBuildOptions,
		SystemPrompt: plannerSystemPrompt,
		Prompt:       prompt,
		Model:        trip.Model,
		MaxTokens:    4000,
		Temperature:  0.4,
		JSONMode:     true,
	})
	if err != nil {
		return nil, err
	}

	var drafts []entity.TripOption
	if err := utils.ExtractInto(resp.Text, utils.ExtractOptions{Shape: utils.ShapeArray, RequiredKeys: []string{"hotels"}}, &drafts); err != nil {
		return nil, err
	}

	return o.normalizeOptions(ctx, ledger, schedule, drafts), nil
}

// normalizeOptions caps the option count, drops hotels and tours outside the
// confirmed destinations and recomputes totals from line items
func (o *TripBuildOrchestrator) normalizeOptions(ctx context.Context, ledger *CostLedger, schedule tripSchedule, drafts []entity.TripOption) []entity.TripOption {
	if len(drafts) > maxTripOptions {
		drafts = drafts[:maxTripOptions]
	}

	options := make([]entity.TripOption, 0, len(drafts))
	for i, opt := range drafts {
		var dropped []string

		hotels := make([]entity.HotelStay, 0, len(opt.Hotels))
		for _, h := range opt.Hotels {
			stay, ok := matchStay(schedule.Stays, h.City)
			if !ok {
				dropped = append(dropped, h.Name+" ("+h.City+")")
				continue
			}
			h.City = stay.Destination.Name
			if h.Nights <= 0 {
				h.Nights = stay.Nights
			}
			h.NightlyCostUSD = max(h.NightlyCostUSD, 0)
			hotels = append(hotels, h)
		}

		tours := make([]entity.Tour, 0, len(opt.Tours))
		for _, t := range opt.Tours {
			stay, ok := matchStay(schedule.Stays, t.City)
			if !ok {
				dropped = append(dropped, t.Name+" ("+t.City+")")
				continue
			}
			t.City = stay.Destination.Name
			t.CostUSD = max(t.CostUSD, 0)
			tours = append(tours, t)
		}

		if len(dropped) > 0 {
			o.logger.Warn("Dropped option items outside confirmed destinations", "tripID", ledger.TripID(), "option", i, "items", dropped)
			ledger.LogEvent(ctx, entity.NewTelemetryEvent(entity.EventOptionItemDropped, map[string]interface{}{
				"option": i,
				"items":  dropped,
			}))
		}

		opt.Index = i
		opt.Hotels = hotels
		opt.Tours = tours
		opt.Flights.PriceUSD = max(opt.Flights.PriceUSD, 0)
		opt.Itinerary = nil
		if strings.TrimSpace(opt.Title) == "" {
			opt.Title = fmt.Sprintf("Option %d", i+1)
		}
		opt.TotalCostUSD = opt.LineItemTotal()
		options = append(options, opt)
	}
	return options
}

func matchStay(stays []stayWindow, city string) (stayWindow, bool) {
	c := strings.ToLower(strings.TrimSpace(city))
	if c == "" {
		return stayWindow{}, false
	}
	for _, s := range stays {
		name := strings.ToLower(s.Destination.Name)
		if c == name || strings.HasPrefix(c, name+",") || strings.HasPrefix(c, name+" ") {
			return s, true
		}
	}
	return stayWindow{}, false
}

type bookableItem struct {
	name string
	city string
	kind string
}

func (o *TripBuildOrchestrator) enrichBookingLinks(ctx context.Context, ledger *CostLedger, options []entity.TripOption) {
	if o.enricher == nil || !o.enricher.CanResolveBookingURLs() {
		return
	}

	var items []bookableItem
	seen := make(map[string]bool)
	add := func(name, city, kind, existing string) {
		key := BookingKey(name, city, kind)
		if existing != "" || name == "" || seen[key] {
			return
		}
		seen[key] = true
		items = append(items, bookableItem{name: name, city: city, kind: kind})
	}
	for _, opt := range options {
		for _, h := range opt.Hotels {
			add(h.Name, h.City, entity.BookingKindHotel, h.BookingURL)
		}
		for _, t := range opt.Tours {
			add(t.Name, t.City, entity.BookingKindTour, t.BookingURL)
		}
	}
	if len(items) == 0 {
		return
	}

	resolver := o.enricher.NewBookingURLResolver(ledger)
	results := utils.ProcessInBatches(ctx, items, o.enricher.Concurrency(), func(ctx context.Context, it bookableItem) (string, error) {
		return resolver.Resolve(ctx, it.name, it.city, it.kind)
	})

	links := make(map[string]string, len(items))
	for i, r := range results {
		if r.Err != nil {
			o.logger.Debug("Booking link not found", "name", items[i].name, "city", items[i].city, "error", r.Err)
			continue
		}
		links[BookingKey(items[i].name, items[i].city, items[i].kind)] = r.Value
	}

	for oi := range options {
		for hi, h := range options[oi].Hotels {
			if h.BookingURL == "" {
				options[oi].Hotels[hi].BookingURL = links[BookingKey(h.Name, h.City, entity.BookingKindHotel)]
			}
		}
		for ti, t := range options[oi].Tours {
			if t.BookingURL == "" {
				options[oi].Tours[ti].BookingURL = links[BookingKey(t.Name, t.City, entity.BookingKindTour)]
			}
		}
	}
}

func (o *TripBuildOrchestrator) progress(ctx context.Context, tripID string, percent int, message string) {
	if err := o.trips.UpdateProgress(ctx, tripID, percent, message); err != nil {
		o.logger.Warn("Failed to update progress", "tripID", tripID, "percent", percent, "error", err)
	}
}
