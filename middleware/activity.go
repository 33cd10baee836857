package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mabletask/telemetry/models"
	"mabletask/telemetry/telemetry"
	"mabletask/telemetry/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookie names the cookie carrying the telemetry session id.
	SessionCookie = "session_id"
	// ContextResultsCount is the gin context key a search handler sets so the
	// emitted search event carries the result count.
	ContextResultsCount = "search_results_count"

	sessionCookieMaxAge = 30 * 24 * 60 * 60
)

// Paths that must never feed the activity pipeline. The ingest endpoints
// would otherwise log their own delivery requests.
var skipPrefixes = []string{
	"/static/",
	"/api/telemetry/",
	"/health",
}

// ActivityLogger observes every storefront request: it assigns the session
// cookie, logs the request lifecycle on the system channel, times the
// handler, classifies the request into an activity event, records it, and
// feeds the dwell tracker. Recording failures are logged and never fail the
// request.
func ActivityLogger(rec *telemetry.Recorder, tracker *telemetry.DwellTracker, logger *slog.Logger) gin.HandlerFunc {
	activityLogger := logger.With("module", "activity")
	requestLogger := logger.With("module", "routes")

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range skipPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		sessionID := ensureSession(c)
		requestID := uuid.New().String()
		c.Set("request_id", requestID)

		requestLogger.Info(fmt.Sprintf("request started: %s %s", c.Request.Method, path),
			"request_id", requestID)

		// Form values must be captured before the handler consumes the body.
		var form map[string]string
		if c.Request.Method == http.MethodPost {
			if err := c.Request.ParseForm(); err == nil {
				form = models.ScrubForm(c.Request.PostForm)
			}
		}

		start := time.Now()
		c.Next()

		elapsed := time.Since(start).Seconds()
		status := c.Writer.Status()
		requestLogger.Info(fmt.Sprintf("request finished: %s %s - %d", c.Request.Method, path, status),
			"request_id", requestID, "process_time", elapsed)

		ev := models.ActivityEvent{
			Timestamp: time.Now(),
			SessionID: sessionID,
			UserID:    requestUserID(c),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		req := models.RequestInfo{
			Endpoint:       c.FullPath(),
			Method:         c.Request.Method,
			Path:           c.Request.URL.RequestURI(),
			Args:           models.FlattenQuery(c.Request.URL.Query()),
			Form:           form,
			Referrer:       c.Request.Referer(),
			ResponseStatus: status,
			ProcessTime:    elapsed,
		}

		classify(c, &ev, req)

		if err := rec.Record(c.Request.Context(), ev); err != nil {
			activityLogger.Error("failed to record activity event",
				"event_type", ev.EventType, "path", path, "error", err.Error())
		}

		tracker.Track(c.Request.Context(), telemetry.TrackedRequest{
			SessionID: sessionID,
			UserID:    ev.UserID,
			Path:      path,
			IPAddress: ev.IPAddress,
			UserAgent: ev.UserAgent,
		})
	}
}

// ensureSession returns the request's session id, minting a cookie when the
// browser arrives without one. A failed mint degrades to the no_session
// sentinel instead of failing the request.
func ensureSession(c *gin.Context) string {
	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		return id
	}
	id, err := telemetry.GenerateSessionID()
	if err != nil {
		return models.NoSession
	}
	c.SetCookie(SessionCookie, id, sessionCookieMaxAge, "/", "", false, true)
	return id
}

// requestUserID resolves the acting user: the auth middleware's context value
// when present, otherwise a best-effort read of the JWT cookie. Anonymous
// traffic yields nil.
func requestUserID(c *gin.Context) *int {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(int); ok {
			return &id
		}
	}
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

// classify maps the finished request onto an event type and payload. The
// fallback for any unrecognized page is page_view.
func classify(c *gin.Context, ev *models.ActivityEvent, req models.RequestInfo) {
	path := c.Request.URL.Path
	method := c.Request.Method

	if method == http.MethodGet {
		if id := telemetry.ProductPathID(path); id != nil {
			ev.EventType = models.EventView
			ev.EntityType = "product"
			ev.EntityID = id
			ev.Payload = models.ViewPayload{RequestInfo: req}
			return
		}
		if strings.HasPrefix(path, "/search") {
			ev.EventType = models.EventSearch
			ev.Payload = models.SearchPayload{
				RequestInfo:  req,
				SearchQuery:  c.Query("q"),
				ResultsCount: c.GetInt(ContextResultsCount),
			}
			return
		}
	}

	if method == http.MethodPost {
		switch path {
		case "/cart/add", "/cart/remove":
			if path == "/cart/add" {
				ev.EventType = models.EventCartAdd
			} else {
				ev.EventType = models.EventCartRemove
			}
			if idStr, ok := req.Form["product_id"]; ok {
				if id, err := strconv.Atoi(idStr); err == nil {
					ev.EntityType = "product"
					ev.EntityID = &id
				}
			}
			ev.Payload = models.CartPayload{RequestInfo: req}
			return
		case "/auth/login":
			ev.EventType = models.EventLoginAttempt
			ev.Payload = models.LoginAttemptPayload{
				RequestInfo:     req,
				UsernameAttempt: req.Form["email"],
			}
			return
		case "/auth/register":
			ev.EventType = models.EventRegisterAttempt
			ev.Payload = models.RegisterAttemptPayload{RequestInfo: req}
			return
		case "/auth/logout":
			ev.EventType = models.EventLogout
			ev.Payload = models.LogoutPayload{RequestInfo: req}
			return
		}
	}

	ev.EventType = models.EventPageView
	if cat, ok := req.Args["category"]; ok && strings.HasPrefix(path, "/products") {
		if id, err := strconv.Atoi(cat); err == nil {
			ev.EntityType = "category"
			ev.EntityID = &id
		}
	}
	ev.Payload = models.PageViewPayload{RequestInfo: req}
}
