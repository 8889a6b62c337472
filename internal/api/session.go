package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cuepoint/internal/coordinator"
	"cuepoint/internal/logger"
	"cuepoint/internal/models"
	"cuepoint/internal/presentation"
	"cuepoint/internal/timeline"
)

// Request/Response DTOs

// CreateSessionRequest represents a request to load content and start a
// playback session
type CreateSessionRequest struct {
	UserID          string  `json:"user_id"`
	ContentURL      string  `json:"content_url" binding:"required"`
	ContentDuration float64 `json:"content_duration" binding:"gte=0"`
	Mode            string  `json:"mode,omitempty"`
}

// ReportTimeRequest represents a playhead sample from the client.
// T is a pointer so that 0.0, the start of content, passes binding.
type ReportTimeRequest struct {
	T *float64 `json:"t" binding:"required"`
}

// SessionListResponse represents a list of playback sessions
type SessionListResponse struct {
	Sessions []*models.PlaybackSession `json:"sessions"`
}

// TrackingEventListResponse represents a session's journaled tracking events
type TrackingEventListResponse struct {
	Events []*models.TrackingEvent `json:"events"`
	Total  int                     `json:"total"`
}

// ScheduleResponse represents a live session's ordered break schedule
type ScheduleResponse struct {
	Breaks []*models.Break `json:"breaks"`
	Total  int             `json:"total"`
}

// ClickResponse carries the click-through destination, if any
type ClickResponse struct {
	ClickThrough string `json:"click_through,omitempty"`
}

// DeleteResponse represents a successful delete operation
type DeleteResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SessionHandler handles playback-session API requests
type SessionHandler struct {
	coordinator *coordinator.Coordinator
}

// NewSessionHandler creates a new session handler instance
func NewSessionHandler(coord *coordinator.Coordinator) *SessionHandler {
	return &SessionHandler{
		coordinator: coord,
	}
}

// parseSessionID validates the :id path parameter. Writes the error response
// itself and reports ok=false when the value is not a UUID.
func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid session ID format",
		})
		return uuid.Nil, false
	}
	return id, true
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	// Schedule fetch goes to the ad server, so allow more than the usual 5s
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	session, err := h.coordinator.Load(ctx, coordinator.LoadInput{
		UserID:          req.UserID,
		ContentURL:      req.ContentURL,
		ContentDuration: req.ContentDuration,
		Mode:            req.Mode,
	})
	if err != nil {
		logger.Log.Error().
			Err(err).
			Str("content_url", req.ContentURL).
			Str("mode", req.Mode).
			Msg("Failed to load playback session")

		if errors.Is(err, coordinator.ErrInvalidMode) {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_mode",
				Message: "Mode must be content_relative or stream_relative",
			})
			return
		}

		if errors.Is(err, coordinator.ErrCoordinatorStopped) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error:   "service_unavailable",
				Message: "Playback service is shutting down",
			})
			return
		}

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "load_failed",
			Message: "Failed to build the break schedule for this content",
		})
		return
	}

	logger.Log.Info().
		Str("session_id", session.ID.String()).
		Str("content_url", req.ContentURL).
		Msg("Playback session created")

	status := session.Status()
	c.JSON(http.StatusCreated, coordinator.SessionView{
		Session: session.Record(),
		Status:  &status,
		Breaks:  session.Breaks(),
	})
}

// ListSessions handles GET /api/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.coordinator.ListSessions(ctx)
	if err != nil {
		logger.Log.Error().
			Err(err).
			Msg("Failed to list playback sessions")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve session list",
		})
		return
	}

	c.JSON(http.StatusOK, SessionListResponse{
		Sessions: sessions,
	})
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	view, err := h.coordinator.Describe(ctx, id)
	if err != nil {
		if errors.Is(err, coordinator.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "session_not_found",
				Message: "Playback session not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("session_id", id.String()).
			Msg("Failed to describe playback session")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve session",
		})
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetSchedule handles GET /api/sessions/:id/schedule
func (h *SessionHandler) GetSchedule(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	session, err := h.coordinator.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "session_not_found",
			Message: "Playback session not found",
		})
		return
	}

	breaks := session.Breaks()
	c.JSON(http.StatusOK, ScheduleResponse{
		Breaks: breaks,
		Total:  len(breaks),
	})
}

// ReportTime handles POST /api/sessions/:id/time
func (h *SessionHandler) ReportTime(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req ReportTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body: " + err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := h.coordinator.ReportTime(ctx, id, *req.T)
	if err != nil {
		if errors.Is(err, coordinator.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "session_not_found",
				Message: "Playback session not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("session_id", id.String()).
			Float64("t", *req.T).
			Msg("Failed to apply time sample")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "report_failed",
			Message: "Failed to apply time sample",
		})
		return
	}

	c.JSON(http.StatusOK, status)
}

// SkipBreak handles POST /api/sessions/:id/skip
func (h *SessionHandler) SkipBreak(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	if err := h.coordinator.Skip(id); err != nil {
		if errors.Is(err, coordinator.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "session_not_found",
				Message: "Playback session not found",
			})
			return
		}

		if timeline.IsNoActiveBreak(err) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "no_active_break",
				Message: "No break is currently playing",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("session_id", id.String()).
			Msg("Failed to skip break")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "skip_failed",
			Message: "Failed to skip break",
		})
		return
	}

	logger.Log.Info().
		Str("session_id", id.String()).
		Msg("Break skip requested")

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Break skipped successfully",
	})
}

// ClickThrough handles POST /api/sessions/:id/click
func (h *SessionHandler) ClickThrough(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	target, err := h.coordinator.Click(id)
	if err != nil {
		if errors.Is(err, coordinator.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "session_not_found",
				Message: "Playback session not found",
			})
			return
		}

		if timeline.IsNoActiveBreak(err) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Error:   "no_active_break",
				Message: "No break is currently playing",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("session_id", id.String()).
			Msg("Failed to register click")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "click_failed",
			Message: "Failed to register click",
		})
		return
	}

	c.JSON(http.StatusOK, ClickResponse{
		ClickThrough: target,
	})
}

// ListTrackingEvents handles GET /api/sessions/:id/tracking
func (h *SessionHandler) ListTrackingEvents(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	events, err := h.coordinator.TrackingEvents(ctx, id)
	if err != nil {
		if errors.Is(err, coordinator.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "session_not_found",
				Message: "Playback session not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("session_id", id.String()).
			Msg("Failed to list tracking events")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "query_failed",
			Message: "Failed to retrieve tracking events",
		})
		return
	}

	c.JSON(http.StatusOK, TrackingEventListResponse{
		Events: events,
		Total:  len(events),
	})
}

// EndSession handles DELETE /api/sessions/:id
func (h *SessionHandler) EndSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.coordinator.Unload(ctx, id); err != nil {
		if errors.Is(err, coordinator.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "session_not_found",
				Message: "Playback session not found",
			})
			return
		}

		logger.Log.Error().
			Err(err).
			Str("session_id", id.String()).
			Msg("Failed to end playback session")

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "unload_failed",
			Message: "Failed to end playback session",
		})
		return
	}

	logger.Log.Info().
		Str("session_id", id.String()).
		Msg("Playback session ended")

	c.JSON(http.StatusOK, DeleteResponse{
		Message: "Session ended successfully",
	})
}

// SetupSessionRoutes registers playback-session routes
func SetupSessionRoutes(apiGroup *gin.RouterGroup, coord *coordinator.Coordinator, hub *presentation.Hub) {
	handler := NewSessionHandler(coord)

	// Session lifecycle endpoints
	apiGroup.POST("/sessions", handler.CreateSession)
	apiGroup.GET("/sessions", handler.ListSessions)
	apiGroup.GET("/sessions/:id", handler.GetSession)
	apiGroup.GET("/sessions/:id/schedule", handler.GetSchedule)
	apiGroup.DELETE("/sessions/:id", handler.EndSession)

	// Playback control endpoints
	apiGroup.POST("/sessions/:id/time", handler.ReportTime)
	apiGroup.POST("/sessions/:id/skip", handler.SkipBreak)
	apiGroup.POST("/sessions/:id/click", handler.ClickThrough)

	// Tracking journal
	apiGroup.GET("/sessions/:id/tracking", handler.ListTrackingEvents)

	// Event stream: outbound presentation events plus inbound player events
	apiGroup.GET("/sessions/:id/events", presentation.ServeWs(hub, coord.HandleClientEvent))
}
