package migrations

import "time"

// InitialSchema creates the initial database schema
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		-- Create reference airports table
		CREATE TABLE IF NOT EXISTS airports (
			ident TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			elevation_ft DOUBLE PRECISION NOT NULL DEFAULT 0
		);

		-- Create archived track points table
		CREATE TABLE IF NOT EXISTS track_points (
			flight_id TEXT NOT NULL,
			ts BIGINT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			altitude DOUBLE PRECISION,
			heading DOUBLE PRECISION,
			ground_speed DOUBLE PRECISION,
			PRIMARY KEY (flight_id, ts)
		);

		-- Create index for track lookups
		CREATE INDEX IF NOT EXISTS idx_track_points_flight_id ON track_points (flight_id);

		-- Create replay sessions table
		CREATE TABLE IF NOT EXISTS replay_sessions (
			id TEXT PRIMARY KEY,
			primary_flight_id TEXT NOT NULL,
			other_flight_ids TEXT[] NOT NULL DEFAULT '{}',
			min_time BIGINT NOT NULL,
			max_time BIGINT NOT NULL,
			opened_at TIMESTAMPTZ NOT NULL,
			closed_at TIMESTAMPTZ
		);

		-- Create indexes for sessions
		CREATE INDEX IF NOT EXISTS idx_replay_sessions_primary_flight_id ON replay_sessions (primary_flight_id);
		CREATE INDEX IF NOT EXISTS idx_replay_sessions_opened_at ON replay_sessions (opened_at);
		CREATE INDEX IF NOT EXISTS idx_replay_sessions_closed_at ON replay_sessions (closed_at);

		-- Create statistics table
		CREATE TABLE IF NOT EXISTS replay_stats (
			time TIMESTAMPTZ NOT NULL,
			frames_rendered BIGINT NOT NULL,
			seeks BIGINT NOT NULL,
			event_jumps BIGINT NOT NULL,
			sessions_opened BIGINT NOT NULL,
			sessions_closed BIGINT NOT NULL,
			fetch_failures BIGINT NOT NULL,
			fallback_fetches BIGINT NOT NULL,
			cache_hits BIGINT NOT NULL,
			cache_misses BIGINT NOT NULL,
			uptime_seconds BIGINT NOT NULL
		);

		-- Create index for statistics
		CREATE INDEX IF NOT EXISTS idx_replay_stats_time ON replay_stats (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS replay_stats;
		DROP TABLE IF EXISTS replay_sessions;
		DROP TABLE IF EXISTS track_points;
		DROP TABLE IF EXISTS airports;
	`,
	CreatedAt: time.Now(),
}
