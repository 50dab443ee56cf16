package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAdminConfigHotUpdateRoundTrip(t *testing.T) {
	body := strings.NewReader(`{"regenMode":"decay","maxRequestsPerTick":4,"simulateDelayMinMs":1,"simulateDelayMaxMs":3,"simulateDropProb":0.25}`)
	rec := httptest.NewRecorder()
	HandleAdminConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config?session=admin-test", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	s := GetSessionManager().GetOrCreateSession("admin-test")
	if s.RegenMode() != RegenDecay {
		t.Fatalf("expected decay mode, got %v", s.RegenMode())
	}
	if s.maxRequestsPerTick.Load() != 4 {
		t.Fatalf("expected maxRequestsPerTick=4, got %d", s.maxRequestsPerTick.Load())
	}
	if s.simulateDelayMinMs.Load() != 1 || s.simulateDelayMaxMs.Load() != 3 {
		t.Fatalf("unexpected delay: [%d,%d]", s.simulateDelayMinMs.Load(), s.simulateDelayMaxMs.Load())
	}
	if s.dropProb() != 0.25 {
		t.Fatalf("expected drop 0.25, got %v", s.dropProb())
	}

	rec = httptest.NewRecorder()
	HandleAdminConfig(rec, httptest.NewRequest(http.MethodGet, "/admin/config?session=admin-test", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var cur struct {
		RegenMode          *string  `json:"regenMode"`
		MaxRequestsPerTick *int     `json:"maxRequestsPerTick"`
		SimulateDropProb   *float64 `json:"simulateDropProb"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cur); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if cur.RegenMode == nil || *cur.RegenMode != "decay" {
		t.Fatalf("unexpected regenMode in response: %+v", cur.RegenMode)
	}
	if cur.MaxRequestsPerTick == nil || *cur.MaxRequestsPerTick != 4 {
		t.Fatalf("unexpected maxRequestsPerTick in response: %+v", cur.MaxRequestsPerTick)
	}
	if cur.SimulateDropProb == nil || *cur.SimulateDropProb != 0.25 {
		t.Fatalf("unexpected simulateDropProb in response: %+v", cur.SimulateDropProb)
	}
}

func TestAdminConfigRejectsBadJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleAdminConfig(rec, httptest.NewRequest(http.MethodPost, "/admin/config?session=admin-test", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMetricsEndpointReportsTickAndCounters(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleMetrics(rec, httptest.NewRequest(http.MethodGet, "/metrics?session=admin-test", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Session string         `json:"session"`
		Tick    int64          `json:"tick"`
		Metrics map[string]any `json:"metrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode metrics: %v", err)
	}
	if payload.Session != "admin-test" {
		t.Fatalf("unexpected session: %q", payload.Session)
	}
	if _, ok := payload.Metrics["requests_accepted"]; !ok {
		t.Fatalf("missing requests_accepted counter: %v", payload.Metrics)
	}
}
