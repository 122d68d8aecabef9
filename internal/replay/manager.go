package replay

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flightwatch/flight-replay/internal/ingest"
	"github.com/flightwatch/flight-replay/internal/types"
)

// Backend fetches tracks and events from the detection service.
type Backend interface {
	FetchTrack(ctx context.Context, flightID string) (ingest.RawTrack, error)
	FetchOtherTrack(ctx context.Context, flightID string) (ingest.RawTrack, error)
	FetchEvents(ctx context.Context, flightID string) ([]ingest.RawEvent, error)
}

// TrackCache caches normalized tracks and events between sessions.
type TrackCache interface {
	GetTrack(ctx context.Context, flightID string) (*types.Track, error)
	StoreTrack(ctx context.Context, track *types.Track) error
	GetEvents(ctx context.Context, flightID string) ([]types.Event, error)
	StoreEvents(ctx context.Context, flightID string, events []types.Event) error
}

// TrackArchive is the fallback fetch source for the primary flight when the
// backend is unavailable.
type TrackArchive interface {
	GetArchivedTrack(flightID string) ([]types.TrackPoint, error)
}

// SessionStore persists session bookkeeping records.
type SessionStore interface {
	CreateSession(session *types.ReplaySession) error
	CloseSession(id string, closedAt time.Time) error
}

// Notifier announces session lifecycle changes.
type Notifier interface {
	PublishSessionNotice(notice types.SessionNotice) error
}

// Metrics counts manager-level activity.
type Metrics interface {
	IncrementSessionsOpened()
	IncrementSessionsClosed()
	IncrementFetchFailures()
	IncrementFallbackFetches()
	IncrementCacheHits()
	IncrementCacheMisses()
}

// Manager opens and tracks replay sessions. All collaborators except the
// backend are optional; a nil cache, archive, store, notifier, or metrics
// simply disables that concern.
type Manager struct {
	backend  Backend
	cache    TrackCache
	archive  TrackArchive
	store    SessionStore
	notifier Notifier
	metrics  Metrics
	refs     []types.ReferencePoint
	sinks    []FrameSink
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// ManagerConfig carries the manager's collaborators.
type ManagerConfig struct {
	Backend       Backend
	Cache         TrackCache
	Archive       TrackArchive
	Store         SessionStore
	Notifier      Notifier
	Metrics       Metrics
	References    []types.ReferencePoint
	Sinks         []FrameSink
	FrameInterval time.Duration
}

// NewManager creates a session manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		backend:  cfg.Backend,
		cache:    cfg.Cache,
		archive:  cfg.Archive,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		refs:     cfg.References,
		sinks:    cfg.Sinks,
		interval: cfg.FrameInterval,
	}
}

// Open fetches tracks and events for the primary flight and any other
// flights, then starts a session frame loop. Individual flights that cannot
// be loaded are omitted; the session fails only when no track at all could
// be loaded.
func (m *Manager) Open(ctx context.Context, primaryID string, otherIDs []string) (*Session, error) {
	var tracks []*types.Track

	primary, err := m.loadPrimaryTrack(ctx, primaryID)
	if err != nil {
		log.Printf("Warning: omitting primary flight %s from playback: %v", primaryID, err)
	} else {
		tracks = append(tracks, primary)
	}

	for i, id := range otherIDs {
		track, err := m.loadOtherTrack(ctx, id, i+1)
		if err != nil {
			log.Printf("Warning: omitting flight %s from playback: %v", id, err)
			continue
		}
		tracks = append(tracks, track)
	}

	if len(tracks) == 0 {
		return nil, fmt.Errorf("no tracks could be loaded for session (primary %s)", primaryID)
	}

	events := m.loadEvents(ctx, primaryID)

	session := NewSession(uuid.NewString(), primaryID, tracks, events, m.refs, m.sinks, m.interval)

	m.mu.Lock()
	if m.sessions == nil {
		m.sessions = make(map[string]*Session)
	}
	m.sessions[session.ID] = session
	m.mu.Unlock()

	st := session.State()
	if m.store != nil {
		record := &types.ReplaySession{
			ID:              session.ID,
			PrimaryFlightID: primaryID,
			OtherFlightIDs:  otherIDs,
			MinTime:         st.MinTime,
			MaxTime:         st.MaxTime,
			OpenedAt:        time.Now().UTC(),
		}
		if err := m.store.CreateSession(record); err != nil {
			log.Printf("Warning: failed to persist session record: %v", err)
		}
	}
	if m.notifier != nil {
		notice := types.SessionNotice{
			SessionID:       session.ID,
			PrimaryFlightID: primaryID,
			Status:          "opened",
			Timestamp:       time.Now().UTC(),
		}
		if err := m.notifier.PublishSessionNotice(notice); err != nil {
			log.Printf("Warning: failed to publish session notice: %v", err)
		}
	}
	if m.metrics != nil {
		m.metrics.IncrementSessionsOpened()
	}

	// The frame loop outlives the caller's (request) context; teardown goes
	// through Close/CloseAll.
	go session.Run(context.Background())
	return session, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	return session, ok
}

// Close tears down the session with the given id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown session %s", id)
	}

	session.Close()

	if m.store != nil {
		if err := m.store.CloseSession(id, time.Now().UTC()); err != nil {
			log.Printf("Warning: failed to close session record: %v", err)
		}
	}
	if m.notifier != nil {
		notice := types.SessionNotice{
			SessionID:       id,
			PrimaryFlightID: session.PrimaryID,
			Status:          "closed",
			Timestamp:       time.Now().UTC(),
		}
		if err := m.notifier.PublishSessionNotice(notice); err != nil {
			log.Printf("Warning: failed to publish session notice: %v", err)
		}
	}
	if m.metrics != nil {
		m.metrics.IncrementSessionsClosed()
	}
	return nil
}

// CloseAll tears down every open session; used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		if err := m.Close(id); err != nil {
			log.Printf("Warning: failed to close session %s: %v", id, err)
		}
	}
}

// loadPrimaryTrack resolves the primary flight's track: cache, then backend,
// then the archive fallback.
func (m *Manager) loadPrimaryTrack(ctx context.Context, flightID string) (*types.Track, error) {
	if track := m.cachedTrack(ctx, flightID); track != nil {
		return track, nil
	}

	raw, fetchErr := m.backend.FetchTrack(ctx, flightID)
	if fetchErr == nil {
		track, err := ingest.Track(flightID, 0, raw)
		if err == nil {
			m.storeCachedTrack(ctx, track)
			return track, nil
		}
		fetchErr = err
	}
	if m.metrics != nil {
		m.metrics.IncrementFetchFailures()
	}

	if m.archive == nil {
		return nil, fetchErr
	}
	points, err := m.archive.GetArchivedTrack(flightID)
	if err != nil {
		return nil, fmt.Errorf("backend fetch failed (%v); archive fallback failed: %w", fetchErr, err)
	}
	if m.metrics != nil {
		m.metrics.IncrementFallbackFetches()
	}
	track, err := ingest.Track(flightID, 0, ingest.RawTrack{Points: points, Source: "archive"})
	if err != nil {
		return nil, fmt.Errorf("backend fetch failed (%v); archive track unusable: %w", fetchErr, err)
	}
	m.storeCachedTrack(ctx, track)
	return track, nil
}

// loadOtherTrack resolves a secondary flight's track from cache or backend.
// No archive fallback: a missing other flight is omitted individually.
func (m *Manager) loadOtherTrack(ctx context.Context, flightID string, colorIndex int) (*types.Track, error) {
	if track := m.cachedTrack(ctx, flightID); track != nil {
		return track, nil
	}

	raw, err := m.backend.FetchOtherTrack(ctx, flightID)
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncrementFetchFailures()
		}
		return nil, err
	}
	track, err := ingest.Track(flightID, colorIndex, raw)
	if err != nil {
		return nil, err
	}
	m.storeCachedTrack(ctx, track)
	return track, nil
}

// loadEvents resolves the primary flight's event list. Failure degrades to
// an empty list; a replay without events is still a replay.
func (m *Manager) loadEvents(ctx context.Context, flightID string) []types.Event {
	if m.cache != nil {
		events, err := m.cache.GetEvents(ctx, flightID)
		if err != nil {
			log.Printf("Warning: failed to read cached events for %s: %v", flightID, err)
		} else if events != nil {
			if m.metrics != nil {
				m.metrics.IncrementCacheHits()
			}
			return events
		}
	}

	raws, err := m.backend.FetchEvents(ctx, flightID)
	if err != nil {
		if m.metrics != nil {
			m.metrics.IncrementFetchFailures()
		}
		log.Printf("Warning: failed to fetch events for %s: %v", flightID, err)
		return nil
	}
	events := ingest.Events(raws)

	if m.cache != nil {
		if err := m.cache.StoreEvents(ctx, flightID, events); err != nil {
			log.Printf("Warning: failed to cache events for %s: %v", flightID, err)
		}
	}
	return events
}

func (m *Manager) cachedTrack(ctx context.Context, flightID string) *types.Track {
	if m.cache == nil {
		return nil
	}
	track, err := m.cache.GetTrack(ctx, flightID)
	if err != nil {
		log.Printf("Warning: failed to read cached track for %s: %v", flightID, err)
		return nil
	}
	if track == nil {
		if m.metrics != nil {
			m.metrics.IncrementCacheMisses()
		}
		return nil
	}
	if m.metrics != nil {
		m.metrics.IncrementCacheHits()
	}
	return track
}

func (m *Manager) storeCachedTrack(ctx context.Context, track *types.Track) {
	if m.cache == nil {
		return
	}
	if err := m.cache.StoreTrack(ctx, track); err != nil {
		log.Printf("Warning: failed to cache track for %s: %v", track.ID, err)
	}
}
