package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flightwatch/flight-replay/internal/ingest"
	"github.com/flightwatch/flight-replay/internal/replay"
	"github.com/flightwatch/flight-replay/internal/types"
)

type fakeBackend struct {
	tracks map[string]ingest.RawTrack
	events map[string][]ingest.RawEvent
}

func (f *fakeBackend) FetchTrack(_ context.Context, flightID string) (ingest.RawTrack, error) {
	track, ok := f.tracks[flightID]
	if !ok {
		return ingest.RawTrack{}, fmt.Errorf("unknown flight %s", flightID)
	}
	return track, nil
}

func (f *fakeBackend) FetchOtherTrack(ctx context.Context, flightID string) (ingest.RawTrack, error) {
	return f.FetchTrack(ctx, flightID)
}

func (f *fakeBackend) FetchEvents(_ context.Context, flightID string) ([]ingest.RawEvent, error) {
	return f.events[flightID], nil
}

type countingMetrics struct {
	seeks      int
	eventJumps int
}

func (m *countingMetrics) IncrementSeeks()      { m.seeks++ }
func (m *countingMetrics) IncrementEventJumps() { m.eventJumps++ }

func rawPoints(start int64, step int64, count int) []types.TrackPoint {
	points := make([]types.TrackPoint, 0, count)
	for i := 0; i < count; i++ {
		points = append(points, types.TrackPoint{
			Timestamp: start + int64(i)*step,
			Lat:       37.0 + float64(i)*0.01,
			Lon:       -122.0,
		})
	}
	return points
}

func newTestServer(t *testing.T) (*Server, *replay.Manager, *countingMetrics) {
	t.Helper()

	lat, lon := 37.02, -122.0
	backend := &fakeBackend{
		tracks: map[string]ingest.RawTrack{
			"UAL123": {Points: rawPoints(100, 10, 5), Callsign: "UAL123"},
			"SWA456": {Points: rawPoints(120, 10, 3), Callsign: "SWA456"},
		},
		events: map[string][]ingest.RawEvent{
			"UAL123": {
				{Timestamp: 120, Type: "proximity", Description: "traffic", Lat: &lat, Lon: &lon, OtherFlight: "SWA456"},
			},
		},
	}

	manager := replay.NewManager(replay.ManagerConfig{
		Backend:       backend,
		FrameInterval: time.Hour, // keep the loop quiet during tests
	})
	t.Cleanup(manager.CloseAll)

	metrics := &countingMetrics{}
	return New(manager, metrics), manager, metrics
}

func openSession(t *testing.T, server *Server, body string) sessionResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode session response: %v", err)
	}
	return resp
}

func TestServer_Health(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestServer_OpenSession(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := openSession(t, server, `{"primary_flight_id":"UAL123","other_flight_ids":["SWA456"]}`)

	if resp.ID == "" {
		t.Error("Expected a session id")
	}
	if resp.PrimaryFlightID != "UAL123" {
		t.Errorf("Expected primary UAL123, got %s", resp.PrimaryFlightID)
	}
	if len(resp.TrackIDs) != 2 {
		t.Errorf("Expected 2 tracks, got %v", resp.TrackIDs)
	}
	if resp.State.MinTime != 100 || resp.State.MaxTime != 140 {
		t.Errorf("Expected bounds [100,140], got [%d,%d]", resp.State.MinTime, resp.State.MaxTime)
	}
	if resp.EventCount != 1 {
		t.Errorf("Expected 1 event, got %d", resp.EventCount)
	}
}

func TestServer_OpenSession_Validation(t *testing.T) {
	server, _, _ := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing primary", `{"other_flight_ids":["SWA456"]}`, http.StatusBadRequest},
		{"malformed body", `{not json`, http.StatusBadRequest},
		{"unknown flight", `{"primary_flight_id":"NOPE"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestServer_GetSession_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions/nonexistent", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestServer_StartStop(t *testing.T) {
	server, _, _ := newTestServer(t)
	session := openSession(t, server, `{"primary_flight_id":"UAL123"}`)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/start", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var state types.PlaybackState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if !state.IsPlaying {
		t.Error("Expected playback to be running after start")
	}

	req = httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/stop", nil)
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if state.IsPlaying {
		t.Error("Expected playback to be paused after stop")
	}
}

func TestServer_Seek(t *testing.T) {
	server, _, metrics := newTestServer(t)
	session := openSession(t, server, `{"primary_flight_id":"UAL123"}`)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/seek", bytes.NewBufferString(`{"t": 9999}`))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var state types.PlaybackState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	// Seeks past the end clamp to the max bound
	if state.CurrentTime != float64(state.MaxTime) {
		t.Errorf("Expected current time clamped to %d, got %v", state.MaxTime, state.CurrentTime)
	}
	if metrics.seeks != 1 {
		t.Errorf("Expected 1 seek counted, got %d", metrics.seeks)
	}
}

func TestServer_Speed(t *testing.T) {
	server, _, _ := newTestServer(t)
	session := openSession(t, server, `{"primary_flight_id":"UAL123"}`)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/speed", bytes.NewBufferString(`{"multiplier": 20}`))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state types.PlaybackState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if state.SpeedMultiplier != 20 {
		t.Errorf("Expected multiplier 20, got %d", state.SpeedMultiplier)
	}

	// 7 is not in the accepted multiplier set
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/speed", bytes.NewBufferString(`{"multiplier": 7}`))
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid multiplier, got %d", rec.Code)
	}
}

func TestServer_Frame(t *testing.T) {
	server, _, _ := newTestServer(t)
	session := openSession(t, server, `{"primary_flight_id":"UAL123","other_flight_ids":["SWA456"]}`)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/frame", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var frame replay.Frame
	if err := json.NewDecoder(rec.Body).Decode(&frame); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if frame.SessionID != session.ID {
		t.Errorf("Expected frame for session %s, got %s", session.ID, frame.SessionID)
	}
	if len(frame.Snapshots) != 2 {
		t.Errorf("Expected 2 snapshots, got %d", len(frame.Snapshots))
	}
	if frame.Layers == nil {
		t.Error("Expected map layers in the frame")
	}
}

func TestServer_Events(t *testing.T) {
	server, _, _ := newTestServer(t)
	session := openSession(t, server, `{"primary_flight_id":"UAL123"}`)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/events", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var events []types.Event
	if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
		t.Fatalf("Failed to decode events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].OtherFlightID != "SWA456" {
		t.Errorf("Expected other flight SWA456, got %s", events[0].OtherFlightID)
	}
}

func TestServer_EventJump(t *testing.T) {
	server, _, metrics := newTestServer(t)
	session := openSession(t, server, `{"primary_flight_id":"UAL123"}`)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/events/0/jump", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		State  types.PlaybackState  `json:"state"`
		Camera *replay.CameraTarget `json:"camera"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.State.CurrentTime != 120 {
		t.Errorf("Expected clock at the event timestamp 120, got %v", resp.State.CurrentTime)
	}
	if resp.Camera == nil {
		t.Fatal("Expected a camera target")
	}
	if metrics.eventJumps != 1 {
		t.Errorf("Expected 1 event jump counted, got %d", metrics.eventJumps)
	}

	// Out-of-range index
	req = httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/events/99/jump", nil)
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for out-of-range event, got %d", rec.Code)
	}
}

func TestServer_DistanceTool(t *testing.T) {
	server, _, _ := newTestServer(t)
	session := openSession(t, server, `{"primary_flight_id":"UAL123","other_flight_ids":["SWA456"]}`)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/distance-tool", bytes.NewBufferString(`{"enabled": false}`))
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/frame", nil)
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	var frame replay.Frame
	if err := json.NewDecoder(rec.Body).Decode(&frame); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if frame.Distances != nil {
		t.Errorf("Expected no distances with the tool disabled, got %v", frame.Distances)
	}
}

func TestServer_CloseSession(t *testing.T) {
	server, manager, _ := newTestServer(t)
	session := openSession(t, server, `{"primary_flight_id":"UAL123"}`)

	req := httptest.NewRequest(http.MethodDelete, "/sessions/"+session.ID, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rec.Code)
	}
	if _, ok := manager.Get(session.ID); ok {
		t.Error("Expected session to be removed from the manager")
	}

	// Closing twice is a 404
	req = httptest.NewRequest(http.MethodDelete, "/sessions/"+session.ID, nil)
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on double close, got %d", rec.Code)
	}
}
