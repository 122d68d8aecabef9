// Package replay implements the playback engine for flight track replay:
// the clock that advances virtual time, the projector that derives per-flight
// telemetry, the synchronizer for cross-flight metrics, the event index, and
// the session frame loop that ties them together.
package replay

import (
	"fmt"

	"github.com/flightwatch/flight-replay/internal/types"
)

// Clock advances a session's virtual current time in wall-clock-proportional
// steps while playing. It is the only component that mutates PlaybackState.
// Not safe for concurrent use; the owning session serializes access.
type Clock struct {
	state     types.PlaybackState
	lastFrame float64
	hasFrame  bool
}

// NewClock creates a clock bounded to [minTime, maxTime] with the current
// time at minTime and a 1x speed multiplier.
func NewClock(minTime, maxTime int64) *Clock {
	if maxTime < minTime {
		maxTime = minTime
	}
	return &Clock{
		state: types.PlaybackState{
			CurrentTime:     float64(minTime),
			MinTime:         minTime,
			MaxTime:         maxTime,
			SpeedMultiplier: 1,
		},
	}
}

// State returns a copy of the current playback state.
func (c *Clock) State() types.PlaybackState {
	return c.state
}

// Start begins playback. No-op if already playing. A degenerate time range
// (minTime == maxTime) is already terminal, so playback never starts.
func (c *Clock) Start() {
	if c.state.IsPlaying {
		return
	}
	if c.state.MaxTime <= c.state.MinTime {
		return
	}
	if c.state.CurrentTime >= float64(c.state.MaxTime) {
		return
	}
	c.state.IsPlaying = true
	c.hasFrame = false
}

// Stop halts playback. The next Start begins a fresh run, so the first tick
// after it contributes no elapsed time.
func (c *Clock) Stop() {
	c.state.IsPlaying = false
	c.hasFrame = false
}

// Tick advances the current time by the wall-clock seconds elapsed since the
// previous frame, scaled by the speed multiplier. The first tick of a run
// records the frame time without advancing, to avoid a jump. On reaching
// maxTime the clock stops; playback does not loop.
func (c *Clock) Tick(frameTimestamp float64) {
	if !c.state.IsPlaying {
		return
	}
	if c.state.MaxTime <= c.state.MinTime {
		c.Stop()
		return
	}

	if !c.hasFrame {
		c.lastFrame = frameTimestamp
		c.hasFrame = true
		return
	}

	elapsed := frameTimestamp - c.lastFrame
	c.lastFrame = frameTimestamp
	if elapsed < 0 {
		elapsed = 0
	}

	c.state.CurrentTime += elapsed * float64(c.state.SpeedMultiplier)
	if c.state.CurrentTime >= float64(c.state.MaxTime) {
		c.state.CurrentTime = float64(c.state.MaxTime)
		c.Stop()
	}
}

// Seek sets the current time directly, clamped into [minTime, maxTime].
// Works whether or not the clock is playing; used by manual scrubbing and
// event jumps.
func (c *Clock) Seek(t float64) {
	if t < float64(c.state.MinTime) {
		t = float64(c.state.MinTime)
	}
	if t > float64(c.state.MaxTime) {
		t = float64(c.state.MaxTime)
	}
	c.state.CurrentTime = t
}

// SetSpeed replaces the speed multiplier. Current time and play state are
// untouched.
func (c *Clock) SetSpeed(multiplier int) error {
	if !types.ValidSpeedMultiplier(multiplier) {
		return fmt.Errorf("invalid speed multiplier: %d", multiplier)
	}
	c.state.SpeedMultiplier = multiplier
	return nil
}
