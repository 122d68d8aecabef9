package replay

import (
	"sort"

	"github.com/flightwatch/flight-replay/internal/geo"
	"github.com/flightwatch/flight-replay/internal/types"
)

// DistancesFrom computes the great-circle distance from the reference flight
// to every other flight whose snapshot is active at this tick, sorted
// ascending. Waiting and ended flights are excluded. The result is nil when
// the reference flight itself is not active.
//
// callsigns maps flight id to callsign for display and may be nil.
func DistancesFrom(flightID string, snapshots map[string]types.TelemetrySnapshot, callsigns map[string]string) []types.DistanceEntry {
	ref, ok := snapshots[flightID]
	if !ok || ref.Phase != types.PhaseActive || ref.Point == nil {
		return nil
	}

	var entries []types.DistanceEntry
	for id, snap := range snapshots {
		if id == flightID {
			continue
		}
		if snap.Phase != types.PhaseActive || snap.Point == nil {
			continue
		}
		entries = append(entries, types.DistanceEntry{
			FlightID:   id,
			Callsign:   callsigns[id],
			DistanceNM: geo.DistanceNM(ref.Point.Lat, ref.Point.Lon, snap.Point.Lat, snap.Point.Lon),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].DistanceNM != entries[j].DistanceNM {
			return entries[i].DistanceNM < entries[j].DistanceNM
		}
		return entries[i].FlightID < entries[j].FlightID
	})
	return entries
}

// NearestReference scans the static reference set and returns the entry
// closest to the given position. Ties keep the first-encountered entry; the
// result is input-order dependent, which is acceptable since exact ties are
// measure-zero in practice. ok is false for an empty reference set.
func NearestReference(lat, lon float64, refs []types.ReferencePoint) (nearest types.ReferencePoint, distNM float64, ok bool) {
	if len(refs) == 0 {
		return types.ReferencePoint{}, 0, false
	}

	nearest = refs[0]
	distNM = geo.DistanceNM(lat, lon, refs[0].Lat, refs[0].Lon)
	for _, ref := range refs[1:] {
		if d := geo.DistanceNM(lat, lon, ref.Lat, ref.Lon); d < distNM {
			nearest = ref
			distNM = d
		}
	}
	return nearest, distNM, true
}
