package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"mabletask/telemetry/models"
	"mabletask/telemetry/telemetry"
	"mabletask/telemetry/utils"

	"github.com/gin-gonic/gin"
)

// TelemetryHandlers receives client-side measurements: dwell reports sent on
// tab close and click events. Both endpoints acknowledge acceptance with the
// same body regardless of downstream sink outcomes; the client never retries.
type TelemetryHandlers struct {
	tracker  *telemetry.DwellTracker
	recorder *telemetry.Recorder
	logger   *slog.Logger
}

func NewTelemetryHandlers(tracker *telemetry.DwellTracker, recorder *telemetry.Recorder, logger *slog.Logger) *TelemetryHandlers {
	return &TelemetryHandlers{
		tracker:  tracker,
		recorder: recorder,
		logger:   logger.With("module", "telemetry_api"),
	}
}

type dwellRequest struct {
	ProductID           *int    `json:"product_id"`
	DwellTimeSeconds    float64 `json:"dwell_time_seconds" binding:"required"`
	MaxScrollPercentage int     `json:"max_scroll_percentage"`
	Path                string  `json:"path"`
	Referrer            string  `json:"referrer"`
}

// LogDwellTime handles POST /api/telemetry/dwell. The sample is trusted as
// measured; the server-side dwell window is not reapplied here.
func (h *TelemetryHandlers) LogDwellTime(c *gin.Context) {
	var req dwellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	err := h.tracker.RecordClientDwell(c.Request.Context(), telemetry.ClientDwellSample{
		SessionID:           requestSessionID(c),
		UserID:              cookieUserID(c),
		ProductID:           req.ProductID,
		DwellTimeSeconds:    req.DwellTimeSeconds,
		MaxScrollPercentage: req.MaxScrollPercentage,
		Path:                req.Path,
		Referrer:            req.Referrer,
		IPAddress:           c.ClientIP(),
		UserAgent:           c.Request.UserAgent(),
	})
	if err != nil {
		h.logger.Error("failed to record client dwell sample", "error", err.Error())
	}

	// Accepted even when a sink failed; the file line is best effort and the
	// client has nothing useful to do with the failure.
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

type clickRequest struct {
	ProductID        *int   `json:"product_id"`
	ElementType      string `json:"element_type" binding:"required"`
	ElementText      string `json:"element_text"`
	LinkHref         string `json:"link_href"`
	PositionXPercent int    `json:"position_x_percent"`
	PositionYPercent int    `json:"position_y_percent"`
	IsCartAction     bool   `json:"is_cart_action"`
	Path             string `json:"path"`
}

// LogClickEvent handles POST /api/telemetry/click.
func (h *TelemetryHandlers) LogClickEvent(c *gin.Context) {
	var req clickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	ev := models.ActivityEvent{
		Timestamp: time.Now(),
		EventType: models.EventClick,
		SessionID: requestSessionID(c),
		UserID:    cookieUserID(c),
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Payload: models.ClickPayload{
			ProductID:        req.ProductID,
			ElementType:      req.ElementType,
			ElementText:      req.ElementText,
			LinkHref:         req.LinkHref,
			PositionXPercent: req.PositionXPercent,
			PositionYPercent: req.PositionYPercent,
			IsCartAction:     req.IsCartAction,
			Path:             req.Path,
		},
	}
	if req.ProductID != nil {
		ev.EntityType = "product"
		ev.EntityID = req.ProductID
	}

	if err := h.recorder.Record(c.Request.Context(), ev); err != nil {
		h.logger.Error("failed to record click event", "error", err.Error())
	}

	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// requestSessionID reads the telemetry session cookie, falling back to the
// no_session sentinel.
func requestSessionID(c *gin.Context) string {
	if id, err := c.Cookie("session_id"); err == nil && id != "" {
		return id
	}
	return models.NoSession
}

// cookieUserID is a best-effort identity read off the JWT cookie. Anonymous
// or expired tokens yield nil.
func cookieUserID(c *gin.Context) *int {
	token, err := c.Cookie("jwt_token")
	if err != nil || token == "" {
		return nil
	}
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		return nil
	}
	return &claims.UserID
}
