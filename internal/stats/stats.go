package stats

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flightwatch/flight-replay/internal/db"
	"github.com/flightwatch/flight-replay/internal/replay"
)

// Stats tracks replay service statistics
type Stats struct {
	// Counters
	FramesRendered  uint64
	Seeks           uint64
	EventJumps      uint64
	SessionsOpened  uint64
	SessionsClosed  uint64
	FetchFailures   uint64
	FallbackFetches uint64
	CacheHits       uint64
	CacheMisses     uint64

	// Timing
	StartedAt time.Time

	// Database client for persistence
	db *db.Client

	mu sync.RWMutex
}

// New creates a new Stats instance
func New() *Stats {
	return &Stats{
		StartedAt: time.Now(),
	}
}

// SetDB sets the database client for persistence
func (s *Stats) SetDB(db *db.Client) {
	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
}

// Persist stores the current statistics in the database
func (s *Stats) Persist() error {
	s.mu.RLock()
	if s.db == nil {
		s.mu.RUnlock()
		return fmt.Errorf("database client not set")
	}
	s.mu.RUnlock()

	return s.db.StoreReplayStats(s.GetStats())
}

// PublishFrame counts a rendered frame. Registering the Stats instance as a
// frame sink keeps the counter in step with actual fanout.
func (s *Stats) PublishFrame(_ *replay.Frame) error {
	atomic.AddUint64(&s.FramesRendered, 1)
	return nil
}

// IncrementSeeks increments the seek counter
func (s *Stats) IncrementSeeks() {
	atomic.AddUint64(&s.Seeks, 1)
}

// IncrementEventJumps increments the event jump counter
func (s *Stats) IncrementEventJumps() {
	atomic.AddUint64(&s.EventJumps, 1)
}

// IncrementSessionsOpened increments the opened sessions counter
func (s *Stats) IncrementSessionsOpened() {
	atomic.AddUint64(&s.SessionsOpened, 1)
}

// IncrementSessionsClosed increments the closed sessions counter
func (s *Stats) IncrementSessionsClosed() {
	atomic.AddUint64(&s.SessionsClosed, 1)
}

// IncrementFetchFailures increments the backend fetch failure counter
func (s *Stats) IncrementFetchFailures() {
	atomic.AddUint64(&s.FetchFailures, 1)
}

// IncrementFallbackFetches increments the archive fallback counter
func (s *Stats) IncrementFallbackFetches() {
	atomic.AddUint64(&s.FallbackFetches, 1)
}

// IncrementCacheHits increments the cache hit counter
func (s *Stats) IncrementCacheHits() {
	atomic.AddUint64(&s.CacheHits, 1)
}

// IncrementCacheMisses increments the cache miss counter
func (s *Stats) IncrementCacheMisses() {
	atomic.AddUint64(&s.CacheMisses, 1)
}

// GetStats returns a copy of the current statistics
func (s *Stats) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"frames_rendered":  atomic.LoadUint64(&s.FramesRendered),
		"seeks":            atomic.LoadUint64(&s.Seeks),
		"event_jumps":      atomic.LoadUint64(&s.EventJumps),
		"sessions_opened":  atomic.LoadUint64(&s.SessionsOpened),
		"sessions_closed":  atomic.LoadUint64(&s.SessionsClosed),
		"fetch_failures":   atomic.LoadUint64(&s.FetchFailures),
		"fallback_fetches": atomic.LoadUint64(&s.FallbackFetches),
		"cache_hits":       atomic.LoadUint64(&s.CacheHits),
		"cache_misses":     atomic.LoadUint64(&s.CacheMisses),
		"started_at":       s.StartedAt,
		"uptime":           time.Since(s.StartedAt),
	}
}

// String returns a string representation of the statistics
func (s *Stats) String() string {
	stats := s.GetStats()
	return fmt.Sprintf(
		"Frames Rendered: %d\n"+
			"Seeks: %d\n"+
			"Event Jumps: %d\n"+
			"Sessions Opened: %d\n"+
			"Sessions Closed: %d\n"+
			"Fetch Failures: %d\n"+
			"Fallback Fetches: %d\n"+
			"Cache Hits: %d\n"+
			"Cache Misses: %d\n"+
			"Uptime: %s",
		stats["frames_rendered"],
		stats["seeks"],
		stats["event_jumps"],
		stats["sessions_opened"],
		stats["sessions_closed"],
		stats["fetch_failures"],
		stats["fallback_fetches"],
		stats["cache_hits"],
		stats["cache_misses"],
		stats["uptime"],
	)
}

// StartPersistence starts periodic persistence of statistics
func (s *Stats) StartPersistence(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persistence before shutdown
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist final statistics: %v", err)
			}
			return
		case <-ticker.C:
			log.Printf("Statistics:\n%s", s.String())
			if err := s.Persist(); err != nil {
				log.Printf("Failed to persist statistics: %v", err)
			}
		}
	}
}
