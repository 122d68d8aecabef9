// Package maplayer translates projector and synchronizer output into
// renderable map geometry. It owns no algorithmic logic; it is a sink that
// batches all layer writes for one tick into a single Layers value.
package maplayer

import (
	"fmt"
	"sort"

	"github.com/flightwatch/flight-replay/internal/types"
)

// palette is the fixed set of colors tracks cycle through; a track's
// ColorIndex selects an entry modulo the palette size.
var palette = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4",
	"#46f0f0", "#f032e6", "#bcf60c", "#008080", "#9a6324",
}

// ColorFor returns the palette color for a track color index.
func ColorFor(index int) string {
	if index < 0 {
		index = -index
	}
	return palette[index%len(palette)]
}

// Point is a map coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Polyline is the flown portion of one track: every sample at or before the
// current playback time.
type Polyline struct {
	FlightID string  `json:"flight_id"`
	Color    string  `json:"color"`
	Points   []Point `json:"points"`
}

// Marker is the current-position marker for one flight.
type Marker struct {
	FlightID string  `json:"flight_id"`
	Color    string  `json:"color"`
	Pos      Point   `json:"pos"`
	Heading  float64 `json:"heading"`
	Label    string  `json:"label"`
	Faded    bool    `json:"faded"` // ended flights render dimmed at their last position
}

// Line is highlight geometry connecting two positions, labeled with a
// distance or a reference name.
type Line struct {
	Start Point  `json:"start"`
	End   Point  `json:"end"`
	Color string `json:"color"`
	Label string `json:"label"`
}

// RefMarker marks the nearest reference point (airport) for the primary
// flight.
type RefMarker struct {
	Ident string `json:"ident"`
	Name  string `json:"name"`
	Pos   Point  `json:"pos"`
	Label string `json:"label"`
}

// Layers is everything the map renders for one tick.
type Layers struct {
	Polylines  []Polyline `json:"polylines"`
	Markers    []Marker   `json:"markers"`
	Highlights []Line     `json:"highlights"`
	Reference  *RefMarker `json:"reference,omitempty"`
}

// Build assembles the layers for one tick from already-computed snapshots.
// Tracks are emitted in sorted flight-id order so successive frames are
// stable. nearestRef may be nil when no reference lookup ran this tick.
func Build(
	tracks map[string]*types.Track,
	snapshots map[string]types.TelemetrySnapshot,
	distances []types.DistanceEntry,
	nearestRef *types.ReferencePoint,
	nearestRefDistNM float64,
	primaryID string,
	currentTime float64,
) *Layers {
	layers := &Layers{}

	ids := make([]string, 0, len(tracks))
	for id := range tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		track := tracks[id]
		snap, ok := snapshots[id]
		if !ok || snap.Phase == types.PhaseWaiting || snap.Point == nil {
			continue
		}
		color := ColorFor(track.ColorIndex)

		polyline := Polyline{FlightID: id, Color: color}
		for _, tp := range track.Points {
			if float64(tp.Timestamp) > currentTime {
				break
			}
			polyline.Points = append(polyline.Points, Point{Lat: tp.Lat, Lon: tp.Lon})
		}
		layers.Polylines = append(layers.Polylines, polyline)

		label := track.Callsign
		if label == "" {
			label = id
		}
		layers.Markers = append(layers.Markers, Marker{
			FlightID: id,
			Color:    color,
			Pos:      Point{Lat: snap.Point.Lat, Lon: snap.Point.Lon},
			Heading:  snap.Point.Heading,
			Label:    label,
			Faded:    snap.Phase == types.PhaseEnded,
		})
	}

	if ref, ok := snapshots[primaryID]; ok && ref.Point != nil {
		refPos := Point{Lat: ref.Point.Lat, Lon: ref.Point.Lon}

		for _, entry := range distances {
			other, ok := snapshots[entry.FlightID]
			if !ok || other.Point == nil {
				continue
			}
			layers.Highlights = append(layers.Highlights, Line{
				Start: refPos,
				End:   Point{Lat: other.Point.Lat, Lon: other.Point.Lon},
				Color: "#ffd700",
				Label: fmt.Sprintf("%.1f NM", entry.DistanceNM),
			})
		}

		if nearestRef != nil {
			layers.Reference = &RefMarker{
				Ident: nearestRef.Ident,
				Name:  nearestRef.Name,
				Pos:   Point{Lat: nearestRef.Lat, Lon: nearestRef.Lon},
				Label: fmt.Sprintf("%s %.1f NM", nearestRef.Ident, nearestRefDistNM),
			}
		}
	}

	return layers
}
