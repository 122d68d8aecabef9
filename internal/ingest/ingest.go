// Package ingest normalizes raw detection-backend payloads into the replay
// data model. It is the only place wire quirks are handled: unordered points,
// duplicate timestamps, unusable coordinates, and the legacy other-flight
// field names all stop here.
package ingest

import (
	"fmt"
	"sort"

	"github.com/flightwatch/flight-replay/internal/geo"
	"github.com/flightwatch/flight-replay/internal/types"
)

// RawTrack is the track payload shape the backend returns. Point order is not
// guaranteed.
type RawTrack struct {
	Points      []types.TrackPoint `json:"points"`
	Callsign    string             `json:"callsign,omitempty"`
	Source      string             `json:"source,omitempty"`
	TotalPoints int                `json:"total_points,omitempty"`
}

// RawEvent is the event payload shape the backend returns. Proximity events
// name the other aircraft under either other_flight or other_flight_id; the
// former is a legacy alias.
type RawEvent struct {
	Timestamp     int64    `json:"timestamp"`
	Type          string   `json:"type"`
	Description   string   `json:"description"`
	Lat           *float64 `json:"lat,omitempty"`
	Lon           *float64 `json:"lon,omitempty"`
	OtherFlight   string   `json:"other_flight,omitempty"`
	OtherFlightID string   `json:"other_flight_id,omitempty"`
}

// Track normalizes a raw track: samples without usable coordinates are
// dropped, the rest are sorted ascending by timestamp, and duplicate
// timestamps keep the first-seen sample. Returns an error when nothing
// usable remains.
func Track(flightID string, colorIndex int, raw RawTrack) (*types.Track, error) {
	points := make([]types.TrackPoint, 0, len(raw.Points))
	for _, tp := range raw.Points {
		if !geo.ValidCoordinates(tp.Lat, tp.Lon) {
			continue
		}
		points = append(points, tp)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("track %s has no usable points", flightID)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})

	deduped := points[:1]
	for _, tp := range points[1:] {
		if tp.Timestamp == deduped[len(deduped)-1].Timestamp {
			continue
		}
		deduped = append(deduped, tp)
	}

	return &types.Track{
		ID:         flightID,
		Callsign:   raw.Callsign,
		Source:     raw.Source,
		ColorIndex: colorIndex,
		Points:     deduped,
	}, nil
}

// Event normalizes one raw event: the other-flight aliases are coalesced into
// the canonical field (other_flight_id wins when both are set) and unknown
// types map to "other".
func Event(raw RawEvent) types.Event {
	otherID := raw.OtherFlightID
	if otherID == "" {
		otherID = raw.OtherFlight
	}

	return types.Event{
		Timestamp:     raw.Timestamp,
		Type:          eventType(raw.Type),
		Description:   raw.Description,
		Lat:           raw.Lat,
		Lon:           raw.Lon,
		OtherFlightID: otherID,
	}
}

// Events normalizes a raw event list, dropping events whose coordinates are
// present but unusable (the nearest-track-point fallback handles them as if
// absent).
func Events(raws []RawEvent) []types.Event {
	events := make([]types.Event, 0, len(raws))
	for _, raw := range raws {
		ev := Event(raw)
		if ev.HasCoordinates() && !geo.ValidCoordinates(*ev.Lat, *ev.Lon) {
			ev.Lat, ev.Lon = nil, nil
		}
		events = append(events, ev)
	}
	return events
}

func eventType(s string) types.EventType {
	switch types.EventType(s) {
	case types.EventProximity, types.EventDeviation, types.EventAnomaly,
		types.EventHolding, types.EventGoAround, types.EventOther:
		return types.EventType(s)
	}
	return types.EventOther
}
