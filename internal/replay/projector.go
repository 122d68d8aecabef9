package replay

import (
	"sort"

	"github.com/flightwatch/flight-replay/internal/types"
)

// Project derives the display state of one flight at the given playback time.
// Pure function of its inputs; safe to call on every tick.
//
// Before the first sample the flight is waiting. Past the last sample it is
// ended, carrying that last sample. Otherwise it is active, carrying the
// sample with the greatest timestamp <= currentTime.
func Project(track *types.Track, currentTime float64) types.TelemetrySnapshot {
	snap := types.TelemetrySnapshot{Phase: types.PhaseWaiting}
	if track != nil {
		snap.FlightID = track.ID
	}
	if track.IsEmpty() {
		return snap
	}

	points := track.Points
	if currentTime < float64(points[0].Timestamp) {
		return snap
	}

	// Index of the first point strictly after currentTime; the point before
	// it is the latest sample at or before currentTime.
	idx := sort.Search(len(points), func(i int) bool {
		return float64(points[i].Timestamp) > currentTime
	})
	last := points[idx-1]
	snap.Point = &last

	if currentTime > float64(points[len(points)-1].Timestamp) {
		snap.Phase = types.PhaseEnded
	} else {
		snap.Phase = types.PhaseActive
	}
	return snap
}

// ProjectAll projects every track at the given playback time, keyed by flight
// id. All snapshots for a tick are computed before any cross-flight work runs.
func ProjectAll(tracks map[string]*types.Track, currentTime float64) map[string]types.TelemetrySnapshot {
	snaps := make(map[string]types.TelemetrySnapshot, len(tracks))
	for id, track := range tracks {
		snaps[id] = Project(track, currentTime)
	}
	return snaps
}
