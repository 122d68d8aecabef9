package testutils

import (
	"context"
	"fmt"
	"time"

	"github.com/flightwatch/flight-replay/internal/types"
)

// MockTrack creates a track with evenly spaced points starting at startTime,
// stepping by stepSeconds, for testing
func MockTrack(flightID string, startTime int64, stepSeconds int64, count int) *types.Track {
	points := make([]types.TrackPoint, 0, count)
	for i := 0; i < count; i++ {
		points = append(points, types.TrackPoint{
			Timestamp:   startTime + int64(i)*stepSeconds,
			Lat:         37.0 + float64(i)*0.01,
			Lon:         -122.0 - float64(i)*0.01,
			Altitude:    1000 + float64(i)*500,
			Heading:     280,
			GroundSpeed: 150,
		})
	}
	return &types.Track{
		ID:       flightID,
		Callsign: flightID,
		Points:   points,
	}
}

// MockEvent creates an anomaly event for testing
func MockEvent(eventType types.EventType, timestamp int64, lat, lon float64) types.Event {
	return types.Event{
		Timestamp:   timestamp,
		Type:        eventType,
		Description: fmt.Sprintf("%s at %d", eventType, timestamp),
		Lat:         &lat,
		Lon:         &lon,
	}
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for condition")
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}
