package replay

import (
	"fmt"
	"sort"

	"github.com/flightwatch/flight-replay/internal/types"
)

// CameraTarget is a position the map view should center on after an event
// jump.
type CameraTarget struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// EventIndex holds a session's events sorted ascending by timestamp and
// resolves event jumps. Events are navigation aids only; they never touch the
// clock's bounds.
type EventIndex struct {
	events []types.Event
}

// NewEventIndex copies and sorts the given events by timestamp. The sort is
// stable so same-timestamp events keep their backend order.
func NewEventIndex(events []types.Event) *EventIndex {
	sorted := make([]types.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	return &EventIndex{events: sorted}
}

// Events returns the sorted event list.
func (ix *EventIndex) Events() []types.Event {
	return ix.events
}

// Len returns the number of events.
func (ix *EventIndex) Len() int {
	return len(ix.events)
}

// At returns the event at position i in timestamp order.
func (ix *EventIndex) At(i int) (types.Event, error) {
	if i < 0 || i >= len(ix.events) {
		return types.Event{}, fmt.Errorf("event index %d out of range [0,%d)", i, len(ix.events))
	}
	return ix.events[i], nil
}

// JumpTo seeks the clock to the event's timestamp (clamped by the clock) and
// resolves the camera position: the event's own coordinates when present,
// otherwise the primary track's point with the nearest timestamp. A nil
// target means the camera stays put, which is the degraded outcome for an
// event without coordinates over an empty primary track.
func (ix *EventIndex) JumpTo(i int, clock *Clock, primary *types.Track) (*CameraTarget, error) {
	event, err := ix.At(i)
	if err != nil {
		return nil, err
	}

	clock.Seek(float64(event.Timestamp))

	if event.HasCoordinates() {
		return &CameraTarget{Lat: *event.Lat, Lon: *event.Lon}, nil
	}

	point := nearestPointByTime(primary, event.Timestamp)
	if point == nil {
		return nil, nil
	}
	return &CameraTarget{Lat: point.Lat, Lon: point.Lon}, nil
}

// nearestPointByTime returns the track point whose timestamp has the minimum
// absolute difference from ts. Nearest-neighbor, not interpolation. Nil for
// an empty track.
func nearestPointByTime(track *types.Track, ts int64) *types.TrackPoint {
	if track.IsEmpty() {
		return nil
	}

	best := &track.Points[0]
	bestDelta := absInt64(track.Points[0].Timestamp - ts)
	for i := 1; i < len(track.Points); i++ {
		if delta := absInt64(track.Points[i].Timestamp - ts); delta < bestDelta {
			best = &track.Points[i]
			bestDelta = delta
		}
	}
	return best
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
