package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tripcast-service/internal/domain/entity"
	"tripcast-service/internal/usecase"
	"tripcast-service/pkg/logger"

	"github.com/gin-gonic/gin"
)

// TripService is what the HTTP layer needs from the use case layer
type TripService interface {
	CreateTrip(ctx context.Context, in usecase.CreateTripInput) (*entity.Trip, error)
	GetTrip(ctx context.Context, tripID string) (*entity.Trip, error)
	GetTelemetry(ctx context.Context, tripID string) ([]entity.TelemetryEvent, error)
	LatestBuild(ctx context.Context, tripID string) (*entity.BuildJob, error)
	HandleMessage(ctx context.Context, tripID, text string) (*usecase.MessageReply, error)
	ConfirmDestinations(ctx context.Context, tripID string, names []string, prefs *entity.Preferences) (*usecase.ConfirmResult, error)
	GetItinerary(ctx context.Context, tripID string, optionIndex int) ([]entity.ItineraryDay, bool, error)
	SelectOption(ctx context.Context, tripID string, optionIndex int) (*entity.Trip, error)
	HandOff(ctx context.Context, tripID string) (*entity.Trip, error)
}

// TripHandler serves the trip endpoints
type TripHandler struct {
	service TripService
	logger  logger.Logger
}

// NewTripHandler creates a new trip handler
func NewTripHandler(service TripService, logger logger.Logger) *TripHandler {
	return &TripHandler{
		service: service,
		logger:  logger,
	}
}

type createTripRequest struct {
	Request     string              `json:"request"`
	Model       string              `json:"model"`
	Preferences *entity.Preferences `json:"preferences"`
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

type confirmRequest struct {
	ConfirmedDestinations []string            `json:"confirmed_destinations"`
	Destinations          []string            `json:"destinations"` // older clients
	Preferences           *entity.Preferences `json:"preferences"`
}

func (r confirmRequest) names() []string {
	if r.ConfirmedDestinations != nil {
		return r.ConfirmedDestinations
	}
	return r.Destinations
}

type optionRequest struct {
	OptionIndex *int `json:"option_index" binding:"required"`
}

type confirmResponse struct {
	Status              string               `json:"status"`
	ProgressMessage     string               `json:"progress_message"`
	EstimatedCompletion time.Time            `json:"estimated_completion"`
	Destinations        []entity.Destination `json:"destinations"`
}

type messageResponse struct {
	Intent       string               `json:"intent"`
	Reply        string               `json:"reply"`
	Destinations []entity.Destination `json:"destinations,omitempty"`
	Confirmation *confirmResponse     `json:"confirmation,omitempty"`
}

type itineraryResponse struct {
	DailyItinerary []entity.ItineraryDay `json:"daily_itinerary"`
	Cached         bool                  `json:"cached"`
}

type tripResponse struct {
	*entity.Trip
	TotalCostUSD float64          `json:"total_cost_usd"`
	LatestBuild  *entity.BuildJob `json:"latest_build,omitempty"`
}

func toConfirmResponse(r *usecase.ConfirmResult) *confirmResponse {
	if r == nil {
		return nil
	}
	return &confirmResponse{
		Status:              r.Status,
		ProgressMessage:     r.ProgressMessage,
		EstimatedCompletion: r.EstimatedCompletion,
		Destinations:        r.Destinations,
	}
}

// CreateTrip handles POST /api/v1/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, CodeInvalidRequest, "invalid input: "+err.Error())
		return
	}

	in := usecase.CreateTripInput{Request: strings.TrimSpace(req.Request), Model: req.Model}
	if req.Preferences != nil {
		in.Preferences = *req.Preferences
	}

	trip, err := h.service.CreateTrip(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, tripResponse{Trip: trip, TotalCostUSD: trip.TotalCostUSD()})
}

// GetTrip handles GET /api/v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	ctx := c.Request.Context()
	trip, err := h.service.GetTrip(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := tripResponse{Trip: trip, TotalCostUSD: trip.TotalCostUSD()}
	if job, err := h.service.LatestBuild(ctx, trip.ID); err != nil {
		h.logger.Warn("Failed to load latest build", "tripID", trip.ID, "error", err)
	} else {
		resp.LatestBuild = job
	}
	c.JSON(http.StatusOK, resp)
}

// GetTelemetry handles GET /api/v1/trips/:id/telemetry
func (h *TripHandler) GetTelemetry(c *gin.Context) {
	events, err := h.service.GetTelemetry(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if events == nil {
		events = []entity.TelemetryEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// PostMessage handles POST /api/v1/trips/:id/messages
func (h *TripHandler) PostMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		JSONError(c, http.StatusBadRequest, CodeInvalidRequest, "message is required")
		return
	}

	reply, err := h.service.HandleMessage(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{
		Intent:       reply.Intent,
		Reply:        reply.Reply,
		Destinations: reply.Destinations,
		Confirmation: toConfirmResponse(reply.Confirmation),
	})
}

// ConfirmDestinations handles POST /api/v1/trips/:id/confirm-destinations.
// An empty body or an empty confirmed_destinations list confirms every
// researched destination.
func (h *TripHandler) ConfirmDestinations(c *gin.Context) {
	var req confirmRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			JSONError(c, http.StatusBadRequest, CodeInvalidRequest, "invalid input: "+err.Error())
			return
		}
	}

	result, err := h.service.ConfirmDestinations(c.Request.Context(), c.Param("id"), req.names(), req.Preferences)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusAccepted, toConfirmResponse(result))
}

// GetItinerary handles POST /api/v1/trips/:id/itinerary
func (h *TripHandler) GetItinerary(c *gin.Context) {
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, CodeInvalidRequest, "option_index is required")
		return
	}

	days, cached, err := h.service.GetItinerary(c.Request.Context(), c.Param("id"), *req.OptionIndex)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, itineraryResponse{DailyItinerary: days, Cached: cached})
}

// SelectOption handles POST /api/v1/trips/:id/select-option
func (h *TripHandler) SelectOption(c *gin.Context) {
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		JSONError(c, http.StatusBadRequest, CodeInvalidRequest, "option_index is required")
		return
	}

	trip, err := h.service.SelectOption(c.Request.Context(), c.Param("id"), *req.OptionIndex)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tripResponse{Trip: trip, TotalCostUSD: trip.TotalCostUSD()})
}

// HandOff handles POST /api/v1/trips/:id/handoff
func (h *TripHandler) HandOff(c *gin.Context) {
	trip, err := h.service.HandOff(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tripResponse{Trip: trip, TotalCostUSD: trip.TotalCostUSD()})
}
