package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Event types emitted through the activity pipeline.
const (
	EventPageView        = "page_view"
	EventView            = "view"
	EventSearch          = "search"
	EventCartAdd         = "cart_add"
	EventCartRemove      = "cart_remove"
	EventLoginAttempt    = "login_attempt"
	EventLoginFailed     = "login_failed"
	EventLogin           = "login"
	EventLoginSuccess    = "login_success"
	EventLogout          = "logout"
	EventRegisterAttempt = "register_attempt"
	EventServerDwell     = "server_dwell_time"
	EventPageDwell       = "page_dwell"
	EventClick           = "click_event"
)

const (
	// NoSession is the session_id sentinel for requests without a cookie.
	NoSession = "no_session"
	// UnknownAgent is the user_agent fallback.
	UnknownAgent = "Unknown"
	// TimestampLayout is local time with microsecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000000"
)

// ActivityEvent is the canonical unit of the telemetry pipeline: a common
// envelope plus one event-type-specific payload.
type ActivityEvent struct {
	Timestamp  time.Time
	EventType  string
	SessionID  string
	UserID     *int
	EntityType string
	EntityID   *int
	IPAddress  string
	UserAgent  string
	Payload    EventPayload
}

// EventPayload is the per-event-type field set. Implementations are flattened
// into the envelope object when the event is encoded.
type EventPayload interface {
	isEventPayload()
}

// RequestInfo carries request provenance shared by several payload types.
type RequestInfo struct {
	Endpoint       string            `json:"endpoint,omitempty"`
	Method         string            `json:"method,omitempty"`
	Path           string            `json:"path,omitempty"`
	Args           map[string]string `json:"args,omitempty"`
	Form           map[string]string `json:"form,omitempty"`
	// Referrer is always emitted, empty or not, so every line of one event
	// type carries the same key set.
	Referrer       string            `json:"referrer"`
	ResponseStatus int               `json:"response_status,omitempty"`
	ProcessTime    float64           `json:"process_time,omitempty"`
}

type PageViewPayload struct {
	RequestInfo
}

type ViewPayload struct {
	RequestInfo
}

type SearchPayload struct {
	RequestInfo
	SearchQuery  string `json:"search_query"`
	ResultsCount int    `json:"results_count"`
}

type LoginAttemptPayload struct {
	RequestInfo
	UsernameAttempt string `json:"username_attempt"`
}

type LoginPayload struct {
	RequestInfo
}

type LoginFailedPayload struct {
	UsernameAttempt string `json:"username_attempt"`
	Reason          string `json:"reason"`
}

type RegisterAttemptPayload struct {
	RequestInfo
}

type LogoutPayload struct {
	RequestInfo
}

type CartPayload struct {
	RequestInfo
}

// DwellPayload is attached to server_dwell_time events derived from
// consecutive requests in one session.
type DwellPayload struct {
	ProductID        *int    `json:"product_id"`
	PreviousPath     string  `json:"previous_path"`
	CurrentPath      string  `json:"current_path"`
	DwellTimeSeconds float64 `json:"dwell_time_seconds"`
}

// ClientDwellPayload is attached to page_dwell events measured by the
// browser itself (e.g. on tab close).
type ClientDwellPayload struct {
	ProductID           *int    `json:"product_id"`
	DwellTimeSeconds    float64 `json:"dwell_time_seconds"`
	MaxScrollPercentage int     `json:"max_scroll_percentage"`
	Path                string  `json:"path"`
	Referrer            string  `json:"referrer"`
}

type ClickPayload struct {
	ProductID        *int   `json:"product_id"`
	ElementType      string `json:"element_type"`
	ElementText      string `json:"element_text,omitempty"`
	LinkHref         string `json:"link_href,omitempty"`
	PositionXPercent int    `json:"position_x_percent"`
	PositionYPercent int    `json:"position_y_percent"`
	IsCartAction     bool   `json:"is_cart_action"`
	Path             string `json:"path,omitempty"`
}

func (PageViewPayload) isEventPayload()        {}
func (ViewPayload) isEventPayload()            {}
func (SearchPayload) isEventPayload()          {}
func (LoginAttemptPayload) isEventPayload()    {}
func (LoginPayload) isEventPayload()           {}
func (LoginFailedPayload) isEventPayload()     {}
func (RegisterAttemptPayload) isEventPayload() {}
func (LogoutPayload) isEventPayload()          {}
func (CartPayload) isEventPayload()            {}
func (DwellPayload) isEventPayload()           {}
func (ClientDwellPayload) isEventPayload()     {}
func (ClickPayload) isEventPayload()           {}

// Normalize fills the envelope's sentinel values in place.
func (e *ActivityEvent) Normalize() {
	if e.SessionID == "" {
		e.SessionID = NoSession
	}
	if e.UserAgent == "" {
		e.UserAgent = UnknownAgent
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}

// Encode renders the event as a single line-delimited JSON object with the
// payload fields flattened into the envelope. Non-ASCII text is preserved as
// literal UTF-8; the result contains no newline.
func (e ActivityEvent) Encode() (string, error) {
	e.Normalize()

	obj := map[string]any{
		"timestamp":  e.Timestamp.Format(TimestampLayout),
		"event_type": e.EventType,
		"session_id": e.SessionID,
		"user_id":    e.UserID,
		"ip_address": e.IPAddress,
		"user_agent": e.UserAgent,
	}
	// entity_type and entity_id travel as a pair or not at all.
	if e.EntityType != "" {
		obj["entity_type"] = e.EntityType
		obj["entity_id"] = e.EntityID
	}

	if e.Payload != nil {
		fields, err := payloadFields(e.Payload)
		if err != nil {
			return "", err
		}
		for k, v := range fields {
			obj[k] = v
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return "", fmt.Errorf("failed to encode %s event: %w", e.EventType, err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func payloadFields(p EventPayload) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten event payload: %w", err)
	}
	return fields, nil
}

// ScrubForm converts submitted form values into a loggable map, dropping
// credential fields outright.
func ScrubForm(values url.Values) map[string]string {
	form := make(map[string]string, len(values))
	for key, vals := range values {
		switch strings.ToLower(key) {
		case "password", "token":
			continue
		}
		if len(vals) > 0 {
			form[key] = vals[0]
		}
	}
	return form
}

// FlattenQuery converts query parameters to the single-valued map the log
// line format uses.
func FlattenQuery(values url.Values) map[string]string {
	args := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			args[key] = vals[0]
		}
	}
	return args
}
