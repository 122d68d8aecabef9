package stats

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	stats := New()

	if stats == nil {
		t.Fatal("New() returned nil")
	}

	if stats.FramesRendered != 0 {
		t.Errorf("Expected FramesRendered to be 0, got %d", stats.FramesRendered)
	}

	if stats.SessionsOpened != 0 {
		t.Errorf("Expected SessionsOpened to be 0, got %d", stats.SessionsOpened)
	}

	if time.Since(stats.StartedAt) > 5*time.Second {
		t.Error("StartedAt should be recent")
	}
}

func TestIncrementCounters(t *testing.T) {
	tests := []struct {
		name      string
		increment func(*Stats)
		read      func(*Stats) uint64
	}{
		{"seeks", (*Stats).IncrementSeeks, func(s *Stats) uint64 { return s.Seeks }},
		{"event jumps", (*Stats).IncrementEventJumps, func(s *Stats) uint64 { return s.EventJumps }},
		{"sessions opened", (*Stats).IncrementSessionsOpened, func(s *Stats) uint64 { return s.SessionsOpened }},
		{"sessions closed", (*Stats).IncrementSessionsClosed, func(s *Stats) uint64 { return s.SessionsClosed }},
		{"fetch failures", (*Stats).IncrementFetchFailures, func(s *Stats) uint64 { return s.FetchFailures }},
		{"fallback fetches", (*Stats).IncrementFallbackFetches, func(s *Stats) uint64 { return s.FallbackFetches }},
		{"cache hits", (*Stats).IncrementCacheHits, func(s *Stats) uint64 { return s.CacheHits }},
		{"cache misses", (*Stats).IncrementCacheMisses, func(s *Stats) uint64 { return s.CacheMisses }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := New()

			tt.increment(stats)
			if got := tt.read(stats); got != 1 {
				t.Errorf("Expected counter to be 1, got %d", got)
			}

			tt.increment(stats)
			tt.increment(stats)
			if got := tt.read(stats); got != 3 {
				t.Errorf("Expected counter to be 3, got %d", got)
			}
		})
	}
}

func TestPublishFrame_CountsFrames(t *testing.T) {
	stats := New()

	for i := 0; i < 5; i++ {
		if err := stats.PublishFrame(nil); err != nil {
			t.Fatalf("PublishFrame() failed: %v", err)
		}
	}

	if stats.FramesRendered != 5 {
		t.Errorf("Expected FramesRendered to be 5, got %d", stats.FramesRendered)
	}
}

func TestGetStats(t *testing.T) {
	stats := New()

	stats.IncrementSeeks()
	stats.IncrementSessionsOpened()
	stats.IncrementCacheHits()
	stats.IncrementCacheHits()

	snapshot := stats.GetStats()

	if snapshot["seeks"] != uint64(1) {
		t.Errorf("Expected seeks 1, got %v", snapshot["seeks"])
	}
	if snapshot["sessions_opened"] != uint64(1) {
		t.Errorf("Expected sessions_opened 1, got %v", snapshot["sessions_opened"])
	}
	if snapshot["cache_hits"] != uint64(2) {
		t.Errorf("Expected cache_hits 2, got %v", snapshot["cache_hits"])
	}
	if _, ok := snapshot["started_at"].(time.Time); !ok {
		t.Error("Expected started_at to be a time.Time")
	}
	if _, ok := snapshot["uptime"].(time.Duration); !ok {
		t.Error("Expected uptime to be a time.Duration")
	}
}

func TestPersist_NoDB(t *testing.T) {
	stats := New()

	if err := stats.Persist(); err == nil {
		t.Error("Persist() should fail when no database client is set")
	}
}

func TestString(t *testing.T) {
	stats := New()
	stats.IncrementSeeks()

	s := stats.String()
	if !strings.Contains(s, "Seeks: 1") {
		t.Errorf("Expected string to contain 'Seeks: 1', got:\n%s", s)
	}
	if !strings.Contains(s, "Frames Rendered: 0") {
		t.Errorf("Expected string to contain 'Frames Rendered: 0', got:\n%s", s)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	stats := New()

	var wg sync.WaitGroup
	const workers = 10
	const perWorker = 100

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				stats.IncrementSeeks()
				_ = stats.PublishFrame(nil)
			}
		}()
	}
	wg.Wait()

	if stats.Seeks != workers*perWorker {
		t.Errorf("Expected %d seeks, got %d", workers*perWorker, stats.Seeks)
	}
	if stats.FramesRendered != workers*perWorker {
		t.Errorf("Expected %d frames, got %d", workers*perWorker, stats.FramesRendered)
	}
}
