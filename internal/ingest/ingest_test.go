package ingest

import (
	"math"
	"testing"

	"github.com/flightwatch/flight-replay/internal/types"
)

func TestTrack(t *testing.T) {
	tests := []struct {
		name      string
		raw       RawTrack
		wantErr   bool
		wantTimes []int64
	}{
		{
			name: "unordered points get sorted",
			raw: RawTrack{Points: []types.TrackPoint{
				{Timestamp: 300, Lat: 37.2, Lon: -122.2},
				{Timestamp: 100, Lat: 37.0, Lon: -122.0},
				{Timestamp: 200, Lat: 37.1, Lon: -122.1},
			}},
			wantTimes: []int64{100, 200, 300},
		},
		{
			name: "duplicate timestamps keep the first sample",
			raw: RawTrack{Points: []types.TrackPoint{
				{Timestamp: 100, Lat: 37.0, Lon: -122.0},
				{Timestamp: 100, Lat: 38.0, Lon: -121.0},
				{Timestamp: 200, Lat: 37.1, Lon: -122.1},
			}},
			wantTimes: []int64{100, 200},
		},
		{
			name: "unusable coordinates dropped",
			raw: RawTrack{Points: []types.TrackPoint{
				{Timestamp: 100, Lat: 37.0, Lon: -122.0},
				{Timestamp: 200, Lat: 95.0, Lon: -122.1},
				{Timestamp: 300, Lat: math.NaN(), Lon: -122.2},
				{Timestamp: 400, Lat: 37.3, Lon: -122.3},
			}},
			wantTimes: []int64{100, 400},
		},
		{
			name:    "empty track",
			raw:     RawTrack{},
			wantErr: true,
		},
		{
			name: "all points unusable",
			raw: RawTrack{Points: []types.TrackPoint{
				{Timestamp: 100, Lat: 91, Lon: 0},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, err := Track("UAL123", 2, tt.raw)

			if tt.wantErr {
				if err == nil {
					t.Error("Track() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Track() unexpected error: %v", err)
			}

			if track.ID != "UAL123" || track.ColorIndex != 2 {
				t.Errorf("Track() identity = %s/%d, want UAL123/2", track.ID, track.ColorIndex)
			}
			if len(track.Points) != len(tt.wantTimes) {
				t.Fatalf("got %d points, want %d", len(track.Points), len(tt.wantTimes))
			}
			for i, want := range tt.wantTimes {
				if track.Points[i].Timestamp != want {
					t.Errorf("points[%d].Timestamp = %d, want %d", i, track.Points[i].Timestamp, want)
				}
			}
		})
	}
}

func TestTrack_DuplicateKeepsFirstSample(t *testing.T) {
	track, err := Track("UAL123", 0, RawTrack{Points: []types.TrackPoint{
		{Timestamp: 100, Lat: 37.0, Lon: -122.0},
		{Timestamp: 100, Lat: 38.0, Lon: -121.0},
	}})
	if err != nil {
		t.Fatalf("Track() failed: %v", err)
	}
	if track.Points[0].Lat != 37.0 {
		t.Errorf("dedup kept Lat = %v, want the first-seen 37.0", track.Points[0].Lat)
	}
}

func TestTrack_CarriesCallsignAndSource(t *testing.T) {
	track, err := Track("N172SP", 0, RawTrack{
		Points:   []types.TrackPoint{{Timestamp: 1, Lat: 37, Lon: -122}},
		Callsign: "SKYHAWK",
		Source:   "adsb",
	})
	if err != nil {
		t.Fatalf("Track() failed: %v", err)
	}
	if track.Callsign != "SKYHAWK" || track.Source != "adsb" {
		t.Errorf("callsign/source = %s/%s, want SKYHAWK/adsb", track.Callsign, track.Source)
	}
}

func TestEvent_CoalescesOtherFlightAliases(t *testing.T) {
	tests := []struct {
		name string
		raw  RawEvent
		want string
	}{
		{
			name: "canonical field only",
			raw:  RawEvent{Type: "proximity", OtherFlightID: "SWA456"},
			want: "SWA456",
		},
		{
			name: "legacy field only",
			raw:  RawEvent{Type: "proximity", OtherFlight: "SWA456"},
			want: "SWA456",
		},
		{
			name: "canonical field wins when both set",
			raw:  RawEvent{Type: "proximity", OtherFlight: "OLD999", OtherFlightID: "SWA456"},
			want: "SWA456",
		},
		{
			name: "neither set",
			raw:  RawEvent{Type: "deviation"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Event(tt.raw).OtherFlightID; got != tt.want {
				t.Errorf("OtherFlightID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvent_TypeNormalization(t *testing.T) {
	for _, known := range []string{"proximity", "deviation", "anomaly", "holding", "go_around", "other"} {
		if got := Event(RawEvent{Type: known}).Type; got != types.EventType(known) {
			t.Errorf("Event type %q normalized to %q", known, got)
		}
	}
	if got := Event(RawEvent{Type: "mystery"}).Type; got != types.EventOther {
		t.Errorf("unknown type normalized to %q, want other", got)
	}
}

func TestEvents_DropsUnusableCoordinates(t *testing.T) {
	badLat, lon := 91.0, -122.0
	goodLat := 37.0

	events := Events([]RawEvent{
		{Timestamp: 1, Type: "proximity", Lat: &badLat, Lon: &lon},
		{Timestamp: 2, Type: "proximity", Lat: &goodLat, Lon: &lon},
	})

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].HasCoordinates() {
		t.Error("unusable coordinates should be cleared so the fallback lookup applies")
	}
	if !events[1].HasCoordinates() {
		t.Error("usable coordinates should survive")
	}
}
