package replay

import (
	"context"
	"sync"
	"time"

	"github.com/flightwatch/flight-replay/internal/maplayer"
	"github.com/flightwatch/flight-replay/internal/types"
)

// DefaultFrameInterval is the tick period of the session frame loop.
const DefaultFrameInterval = 100 * time.Millisecond

// Frame is everything computed for one tick: playback state, per-flight
// snapshots, cross-flight distances, and the batched map layers. A frame is
// immutable once published.
type Frame struct {
	SessionID            string                             `json:"session_id"`
	State                types.PlaybackState                `json:"state"`
	Snapshots            map[string]types.TelemetrySnapshot `json:"snapshots"`
	Distances            []types.DistanceEntry              `json:"distances,omitempty"`
	NearestRef           *types.ReferencePoint              `json:"nearest_ref,omitempty"`
	NearestRefDistanceNM float64                            `json:"nearest_ref_distance_nm,omitempty"`
	Camera               *CameraTarget                      `json:"camera,omitempty"`
	Layers               *maplayer.Layers                   `json:"layers"`
	RenderedAt           time.Time                          `json:"rendered_at"`
}

// FrameSink receives every rendered frame. Sinks must not retain and mutate
// the frame.
type FrameSink interface {
	PublishFrame(frame *Frame) error
}

// Session owns one replay: its tracks, events, clock, and frame loop. Tracks
// and events are fetched before the session is created and are read-only for
// its lifetime. All mutation happens under one mutex; the frame loop is the
// Go rendition of an animation-frame callback, and closing the session
// cancels it before teardown.
type Session struct {
	ID        string
	PrimaryID string

	mu           sync.Mutex
	tracks       map[string]*types.Track
	callsigns    map[string]string
	clock        *Clock
	events       *EventIndex
	refs         []types.ReferencePoint
	distanceTool bool
	camera       *CameraTarget
	frame        *Frame

	sinks    []FrameSink
	interval time.Duration
	now      func() float64
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSession builds a session over the given tracks and events. Time bounds
// are the min/max timestamps across all tracks; with no points at all the
// range is degenerate and the clock is terminal from the start.
func NewSession(id, primaryID string, tracks []*types.Track, events []types.Event, refs []types.ReferencePoint, sinks []FrameSink, interval time.Duration) *Session {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}

	byID := make(map[string]*types.Track, len(tracks))
	callsigns := make(map[string]string, len(tracks))
	var minTime, maxTime int64
	first := true
	for _, track := range tracks {
		if track.IsEmpty() {
			continue
		}
		byID[track.ID] = track
		callsigns[track.ID] = track.Callsign
		if first || track.StartTime() < minTime {
			minTime = track.StartTime()
		}
		if first || track.EndTime() > maxTime {
			maxTime = track.EndTime()
		}
		first = false
	}

	s := &Session{
		ID:           id,
		PrimaryID:    primaryID,
		tracks:       byID,
		callsigns:    callsigns,
		clock:        NewClock(minTime, maxTime),
		events:       NewEventIndex(events),
		refs:         refs,
		distanceTool: true,
		sinks:        sinks,
		interval:     interval,
		now:          wallClockSeconds,
		done:         make(chan struct{}),
	}
	s.renderAndPublish()
	return s
}

func wallClockSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Run drives the frame loop until the context is cancelled or Close is
// called. Within each tick the clock advances first, every track is
// projected, then the synchronizer runs, and only then are the map layers
// built, so a frame is always internally consistent.
func (s *Session) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.renderAndPublish()
		}
	}
}

// Close cancels the frame loop and waits for it to finish. Safe to call when
// Run was never started.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.done
}

// Start begins playback.
func (s *Session) Start() {
	s.mu.Lock()
	s.clock.Start()
	s.mu.Unlock()
	s.renderAndPublish()
}

// Stop pauses playback.
func (s *Session) Stop() {
	s.mu.Lock()
	s.clock.Stop()
	s.mu.Unlock()
	s.renderAndPublish()
}

// Seek scrubs to the given time, clamped by the clock.
func (s *Session) Seek(t float64) {
	s.mu.Lock()
	s.clock.Seek(t)
	s.camera = nil
	s.mu.Unlock()
	s.renderAndPublish()
}

// SetSpeed changes the playback speed multiplier.
func (s *Session) SetSpeed(multiplier int) error {
	s.mu.Lock()
	err := s.clock.SetSpeed(multiplier)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.renderAndPublish()
	return nil
}

// SetDistanceTool enables or disables the inter-flight distance computation.
func (s *Session) SetDistanceTool(enabled bool) {
	s.mu.Lock()
	s.distanceTool = enabled
	s.mu.Unlock()
	s.renderAndPublish()
}

// JumpToEvent seeks the clock to the i-th event and resolves the camera
// target for the next frame.
func (s *Session) JumpToEvent(i int) (*CameraTarget, error) {
	s.mu.Lock()
	target, err := s.events.JumpTo(i, s.clock, s.tracks[s.PrimaryID])
	if err == nil {
		s.camera = target
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.renderAndPublish()
	return target, nil
}

// Events returns the session's events sorted by timestamp.
func (s *Session) Events() []types.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events.Events()
}

// State returns the current playback state.
func (s *Session) State() types.PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.State()
}

// Frame returns the most recently rendered frame.
func (s *Session) Frame() *Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// TrackIDs returns the ids of all loaded tracks.
func (s *Session) TrackIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.tracks))
	for id := range s.tracks {
		ids = append(ids, id)
	}
	return ids
}

// renderAndPublish computes one frame under the lock and hands it to the
// sinks after releasing it, so a slow sink cannot stall control calls.
func (s *Session) renderAndPublish() {
	s.mu.Lock()
	frame := s.renderLocked(s.now())
	sinks := s.sinks
	s.mu.Unlock()

	for _, sink := range sinks {
		_ = sink.PublishFrame(frame) // sink failures are non-fatal to playback
	}
}

func (s *Session) renderLocked(frameTime float64) *Frame {
	s.clock.Tick(frameTime)
	state := s.clock.State()

	snapshots := ProjectAll(s.tracks, state.CurrentTime)

	var distances []types.DistanceEntry
	if s.distanceTool {
		distances = DistancesFrom(s.PrimaryID, snapshots, s.callsigns)
	}

	var nearestRef *types.ReferencePoint
	var nearestDist float64
	if primary, ok := snapshots[s.PrimaryID]; ok && primary.Point != nil {
		if ref, dist, ok := NearestReference(primary.Point.Lat, primary.Point.Lon, s.refs); ok {
			nearestRef = &ref
			nearestDist = dist
		}
	}

	frame := &Frame{
		SessionID:            s.ID,
		State:                state,
		Snapshots:            snapshots,
		Distances:            distances,
		NearestRef:           nearestRef,
		NearestRefDistanceNM: nearestDist,
		Camera:               s.camera,
		Layers: maplayer.Build(s.tracks, snapshots, distances, nearestRef,
			nearestDist, s.PrimaryID, state.CurrentTime),
		RenderedAt: time.Now().UTC(),
	}
	s.camera = nil // camera targets apply to a single frame
	s.frame = frame
	return frame
}
