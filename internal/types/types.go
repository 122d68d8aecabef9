package types

import (
	"time"
)

// TrackPoint is a single timestamped position sample for a flight.
type TrackPoint struct {
	Timestamp   int64   `json:"timestamp"` // seconds since epoch
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Altitude    float64 `json:"alt"`          // feet
	Heading     float64 `json:"heading"`      // [0,360) degrees
	GroundSpeed float64 `json:"ground_speed"` // knots
}

// Track is the time-ordered sequence of position samples for one flight.
// Points are sorted ascending by timestamp at ingest and never mutated after.
type Track struct {
	ID         string       `json:"id"`
	Callsign   string       `json:"callsign,omitempty"`
	Source     string       `json:"source,omitempty"`
	ColorIndex int          `json:"color_index"`
	Points     []TrackPoint `json:"points"`
}

// IsEmpty reports whether the track carries no samples.
func (t *Track) IsEmpty() bool {
	return t == nil || len(t.Points) == 0
}

// StartTime returns the timestamp of the first sample. Zero for an empty track.
func (t *Track) StartTime() int64 {
	if t.IsEmpty() {
		return 0
	}
	return t.Points[0].Timestamp
}

// EndTime returns the timestamp of the last sample. Zero for an empty track.
func (t *Track) EndTime() int64 {
	if t.IsEmpty() {
		return 0
	}
	return t.Points[len(t.Points)-1].Timestamp
}

// EventType classifies an anomaly/notable event reported by the detection backend.
type EventType string

const (
	EventProximity EventType = "proximity"
	EventDeviation EventType = "deviation"
	EventAnomaly   EventType = "anomaly"
	EventHolding   EventType = "holding"
	EventGoAround  EventType = "go_around"
	EventOther     EventType = "other"
)

// Event is a discrete notable occurrence bound to a timestamp and an optional
// coordinate. Events are navigation aids only; they never alter playback bounds.
type Event struct {
	Timestamp     int64     `json:"timestamp"`
	Type          EventType `json:"type"`
	Description   string    `json:"description"`
	Lat           *float64  `json:"lat,omitempty"`
	Lon           *float64  `json:"lon,omitempty"`
	OtherFlightID string    `json:"other_flight_id,omitempty"`
}

// HasCoordinates reports whether the event carries its own position.
func (e *Event) HasCoordinates() bool {
	return e.Lat != nil && e.Lon != nil
}

// SpeedMultipliers is the fixed set of playback speeds the clock accepts.
var SpeedMultipliers = []int{1, 5, 10, 20, 60}

// ValidSpeedMultiplier reports whether m is one of the accepted playback speeds.
func ValidSpeedMultiplier(m int) bool {
	for _, v := range SpeedMultipliers {
		if v == m {
			return true
		}
	}
	return false
}

// PlaybackState is the mutable clock state of a replay session. Invariant:
// MinTime <= CurrentTime <= MaxTime, clamped on every update.
type PlaybackState struct {
	CurrentTime     float64 `json:"current_time"` // continuous seconds, can be fractional
	MinTime         int64   `json:"min_time"`
	MaxTime         int64   `json:"max_time"`
	SpeedMultiplier int     `json:"speed_multiplier"`
	IsPlaying       bool    `json:"is_playing"`
}

// Phase is the displayed state of a flight at a given playback time.
type Phase string

const (
	PhaseWaiting Phase = "waiting" // before the track's first sample
	PhaseActive  Phase = "active"  // has a sample <= current time, track not finished
	PhaseEnded   Phase = "ended"   // current time is past the last sample
)

// TelemetrySnapshot is the derived display state of one flight at a specific
// playback time. Point is nil while waiting, otherwise the most recent sample.
type TelemetrySnapshot struct {
	FlightID string      `json:"flight_id"`
	Phase    Phase       `json:"phase"`
	Point    *TrackPoint `json:"point,omitempty"`
}

// ReferencePoint is a static named location (an airport) used for
// nearest-reference lookups.
type ReferencePoint struct {
	Ident     string  `json:"ident"`
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Elevation float64 `json:"elevation"` // feet
}

// DistanceEntry is the great-circle distance from the reference flight to one
// other active flight at a given tick.
type DistanceEntry struct {
	FlightID   string  `json:"flight_id"`
	Callsign   string  `json:"callsign,omitempty"`
	DistanceNM float64 `json:"distance_nm"`
}

// ReplaySession is the bookkeeping record for an opened replay session.
type ReplaySession struct {
	ID              string     `json:"id"`
	PrimaryFlightID string     `json:"primary_flight_id"`
	OtherFlightIDs  []string   `json:"other_flight_ids,omitempty"`
	MinTime         int64      `json:"min_time"`
	MaxTime         int64      `json:"max_time"`
	OpenedAt        time.Time  `json:"opened_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

// SessionNotice announces a session lifecycle change on the message bus.
type SessionNotice struct {
	SessionID       string    `json:"session_id"`
	PrimaryFlightID string    `json:"primary_flight_id"`
	Status          string    `json:"status"` // "opened" or "closed"
	Timestamp       time.Time `json:"timestamp"`
}
