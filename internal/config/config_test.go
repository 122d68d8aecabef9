package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BACKEND_URL", "BACKEND_FALLBACK_URL", "NATS_URL", "REDIS_ADDR",
		"DATABASE_URL", "HTTP_ADDR", "FRAME_INTERVAL_MS", "RECORD_DIR",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_WithFullEnvironment(t *testing.T) {
	clearEnv(t)
	os.Setenv("BACKEND_URL", "http://detector:9000")
	os.Setenv("BACKEND_FALLBACK_URL", "http://detector-standby:9000")
	os.Setenv("NATS_URL", "nats://localhost:4222")
	os.Setenv("REDIS_ADDR", "localhost:6379")
	os.Setenv("DATABASE_URL", "postgres://localhost:5432/replay?sslmode=disable")
	os.Setenv("HTTP_ADDR", ":9999")
	os.Setenv("FRAME_INTERVAL_MS", "50")
	os.Setenv("RECORD_DIR", "/var/lib/replay")
	defer clearEnv(t)

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if config.BackendURL != "http://detector:9000" {
		t.Errorf("BackendURL = %q", config.BackendURL)
	}
	if config.BackendFallbackURL != "http://detector-standby:9000" {
		t.Errorf("BackendFallbackURL = %q", config.BackendFallbackURL)
	}
	if config.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", config.NATSURL)
	}
	if config.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", config.RedisAddr)
	}
	if config.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q", config.HTTPAddr)
	}
	if config.FrameInterval != 50*time.Millisecond {
		t.Errorf("FrameInterval = %v, want 50ms", config.FrameInterval)
	}
	if config.RecordDir != "/var/lib/replay" {
		t.Errorf("RecordDir = %q", config.RecordDir)
	}
}

func TestLoad_WithDefaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("BACKEND_URL", "http://detector:9000")
	defer clearEnv(t)

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if config.NATSURL != "nats://nats:4222" {
		t.Errorf("default NATSURL = %q", config.NATSURL)
	}
	if config.RedisAddr != "redis:6379" {
		t.Errorf("default RedisAddr = %q", config.RedisAddr)
	}
	if config.HTTPAddr != ":8080" {
		t.Errorf("default HTTPAddr = %q", config.HTTPAddr)
	}
	if config.FrameInterval != 100*time.Millisecond {
		t.Errorf("default FrameInterval = %v, want 100ms", config.FrameInterval)
	}
	if config.RecordDir != "" {
		t.Errorf("default RecordDir = %q, want empty (recording disabled)", config.RecordDir)
	}
}

func TestLoad_MissingBackendURL(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without BACKEND_URL")
	}
}

func TestLoad_InvalidFrameInterval(t *testing.T) {
	clearEnv(t)
	os.Setenv("BACKEND_URL", "http://detector:9000")
	defer clearEnv(t)

	for _, bad := range []string{"abc", "0", "-5"} {
		os.Setenv("FRAME_INTERVAL_MS", bad)
		if _, err := Load(); err == nil {
			t.Errorf("Load() should fail with FRAME_INTERVAL_MS=%q", bad)
		}
	}
}
