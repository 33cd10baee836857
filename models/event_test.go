package models

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func decodeLine(t *testing.T, line string) map[string]any {
	t.Helper()
	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		t.Fatalf("line is not valid JSON: %v\nline: %s", err, line)
	}
	return obj
}

func TestEncodeSingleLine(t *testing.T) {
	ev := ActivityEvent{
		Timestamp: time.Date(2025, 3, 10, 14, 30, 5, 123456000, time.Local),
		EventType: EventSearch,
		SessionID: "abc123",
		IPAddress: "211.234.1.2",
		UserAgent: "test-agent",
		Payload: SearchPayload{
			RequestInfo:  RequestInfo{Method: "GET", Path: "/search?q=노트북"},
			SearchQuery:  "노트북",
			ResultsCount: 7,
		},
	}

	line, err := ev.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(line, "\n") {
		t.Fatalf("encoded line contains a newline: %q", line)
	}
	if !strings.Contains(line, "노트북") {
		t.Fatalf("non-ASCII text was escaped: %s", line)
	}

	obj := decodeLine(t, line)
	if obj["event_type"] != EventSearch {
		t.Errorf("event_type = %v, want %s", obj["event_type"], EventSearch)
	}
	if obj["timestamp"] != "2025-03-10T14:30:05.123456" {
		t.Errorf("timestamp = %v", obj["timestamp"])
	}
	if obj["search_query"] != "노트북" {
		t.Errorf("search_query = %v", obj["search_query"])
	}
	if got, ok := obj["results_count"].(float64); !ok || got != 7 {
		t.Errorf("results_count = %v, want numeric 7", obj["results_count"])
	}
}

func TestEncodeSentinels(t *testing.T) {
	ev := ActivityEvent{
		Timestamp: time.Now(),
		EventType: EventPageView,
	}

	line, err := ev.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	obj := decodeLine(t, line)
	if obj["session_id"] != NoSession {
		t.Errorf("session_id = %v, want %s", obj["session_id"], NoSession)
	}
	if obj["user_agent"] != UnknownAgent {
		t.Errorf("user_agent = %v, want %s", obj["user_agent"], UnknownAgent)
	}
	if v, present := obj["user_id"]; !present || v != nil {
		t.Errorf("user_id = %v (present=%t), want explicit null", v, present)
	}
}

func TestEncodeEntityPair(t *testing.T) {
	tests := []struct {
		name       string
		event      ActivityEvent
		wantEntity bool
	}{
		{
			name: "entity set",
			event: ActivityEvent{
				Timestamp:  time.Now(),
				EventType:  EventView,
				EntityType: "product",
				EntityID:   intPtr(42),
			},
			wantEntity: true,
		},
		{
			name: "entity absent",
			event: ActivityEvent{
				Timestamp: time.Now(),
				EventType: EventPageView,
			},
			wantEntity: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := tt.event.Encode()
			if err != nil {
				t.Fatalf("Encode returned error: %v", err)
			}
			obj := decodeLine(t, line)
			_, hasType := obj["entity_type"]
			_, hasID := obj["entity_id"]
			if hasType != tt.wantEntity || hasID != tt.wantEntity {
				t.Errorf("entity_type present=%t entity_id present=%t, want both %t", hasType, hasID, tt.wantEntity)
			}
			if tt.wantEntity {
				if got := obj["entity_id"].(float64); got != 42 {
					t.Errorf("entity_id = %v, want 42", got)
				}
			}
		})
	}
}

func TestEncodeNumericFields(t *testing.T) {
	ev := ActivityEvent{
		Timestamp: time.Now(),
		EventType: EventServerDwell,
		SessionID: "s1",
		Payload: DwellPayload{
			ProductID:        intPtr(42),
			PreviousPath:     "/products/42",
			CurrentPath:      "/cart",
			DwellTimeSeconds: 90.5,
		},
	}

	line, err := ev.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if strings.Contains(line, `"dwell_time_seconds":"`) {
		t.Fatalf("dwell_time_seconds encoded as string: %s", line)
	}

	obj := decodeLine(t, line)
	if got := obj["dwell_time_seconds"].(float64); got != 90.5 {
		t.Errorf("dwell_time_seconds = %v, want 90.5", got)
	}
}

func TestEncodeReferrerKeyIsStable(t *testing.T) {
	// Lines of one event type carry the same key set whether or not the
	// session had a prior path.
	for _, referrer := range []string{"", "/products"} {
		ev := ActivityEvent{
			Timestamp: time.Now(),
			EventType: EventView,
			SessionID: "s1",
			Payload: ViewPayload{RequestInfo: RequestInfo{
				Method:   "GET",
				Path:     "/products/42",
				Referrer: referrer,
			}},
		}

		line, err := ev.Encode()
		if err != nil {
			t.Fatalf("Encode returned error: %v", err)
		}
		obj := decodeLine(t, line)
		got, present := obj["referrer"]
		if !present {
			t.Errorf("referrer key missing for referrer=%q: %s", referrer, line)
		} else if got != referrer {
			t.Errorf("referrer = %v, want %q", got, referrer)
		}
	}
}

func TestScrubFormDropsCredentials(t *testing.T) {
	values := url.Values{
		"email":    {"user1@example.com"},
		"Password": {"hunter2"},
		"token":    {"secret"},
		"quantity": {"3"},
	}

	form := ScrubForm(values)
	if _, ok := form["Password"]; ok {
		t.Error("password field survived scrubbing")
	}
	if _, ok := form["token"]; ok {
		t.Error("token field survived scrubbing")
	}
	if form["email"] != "user1@example.com" || form["quantity"] != "3" {
		t.Errorf("unexpected scrubbed form: %v", form)
	}
}
