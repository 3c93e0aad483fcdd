package fatigueapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/analyze" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		if got := r.FormValue("pilot_id"); got != "P123" {
			t.Errorf("pilot_id = %q", got)
		}
		if got := r.FormValue("home_base"); got != "LHR" {
			t.Errorf("home_base = %q", got)
		}
		var overrides map[string]string
		if err := json.Unmarshal([]byte(r.FormValue("crew_overrides")), &overrides); err != nil {
			t.Errorf("crew_overrides not valid JSON: %v", err)
		} else if overrides["D2"] != "augmented" {
			t.Errorf("crew_overrides = %v", overrides)
		}
		file, _, err := r.FormFile("roster")
		if err != nil {
			t.Fatalf("roster file missing: %v", err)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "roster-bytes" {
			t.Errorf("roster content = %q", content)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}

		json.NewEncoder(w).Encode(AnalysisResponse{
			AnalysisID:       "A1",
			PilotID:          "P123",
			HomeBaseTimezone: "Europe/London",
			Month:            "2026-02",
			Duties: []DutyPayload{
				{DutyID: "D1", AvgPerformance: 70, MinPerformance: 55},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(nil, srv.URL, WithToken("tok"), WithHTTPClient(srv.Client()))
	got, err := c.Analyze(context.Background(), AnalyzeRequest{
		RosterFilename: "feb.pdf",
		Roster:         []byte("roster-bytes"),
		PilotID:        "P123",
		HomeBase:       "LHR",
		ConfigPreset:   "easa-default",
		CrewOverrides:  map[string]string{"D2": "augmented"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.AnalysisID != "A1" || len(got.Duties) != 1 {
		t.Errorf("unexpected response: %+v", got)
	}
}

func TestAnalyzeUpstreamFailureIsSingleShot(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(nil, srv.URL, WithHTTPClient(srv.Client()))
	_, err := c.Analyze(context.Background(), AnalyzeRequest{RosterFilename: "r", Roster: []byte("x")})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry status: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("analyze retried %d times; must be single-shot", got)
	}
}

func TestDutyTimelineRetriesTransientFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/duty/A1/D1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if hits.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(DutyTimelineResponse{
			DutyID: "D1",
			Samples: []SamplePayload{
				{Timestamp: "2026-02-10T06:00:00Z", Performance: 71},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(nil, srv.URL, WithHTTPClient(srv.Client()))
	got, err := c.DutyTimeline(context.Background(), "A1", "D1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Samples) != 1 {
		t.Errorf("samples = %d, want 1", len(got.Samples))
	}
	if hits.Load() != 2 {
		t.Errorf("origin hit %d times, want 2 (one retry)", hits.Load())
	}
}

func TestDutyTimelineDoesNotRetryClientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "no such duty", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(nil, srv.URL, WithHTTPClient(srv.Client()))
	if _, err := c.DutyTimeline(context.Background(), "A1", "DX"); err == nil {
		t.Fatal("expected error")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("404 retried %d times, want 1", got)
	}
}

func TestAirportBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/airports/batch" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string][]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req["codes"]) != 2 {
			t.Errorf("codes = %v", req["codes"])
		}
		json.NewEncoder(w).Encode([]AirportPayload{
			{Code: "LHR", Timezone: "Europe/London", Latitude: 51.47, Longitude: -0.45},
			{Code: "SIN", Timezone: "Asia/Singapore", UTCOffsetHours: 8},
		})
	}))
	defer srv.Close()

	c := NewClient(nil, srv.URL, WithHTTPClient(srv.Client()))
	got, err := c.AirportBatch(context.Background(), []string{"LHR", "SIN"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[1].Timezone != "Asia/Singapore" {
		t.Errorf("unexpected airports: %+v", got)
	}
}
