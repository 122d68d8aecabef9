package db

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/flightwatch/flight-replay/internal/types"
)

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// LoadAirports retrieves all reference airports
func (c *Client) LoadAirports() ([]types.ReferencePoint, error) {
	query := `
		SELECT ident, name, latitude, longitude, elevation_ft
		FROM airports
		ORDER BY ident
	`
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var airports []types.ReferencePoint
	for rows.Next() {
		var a types.ReferencePoint
		if err := rows.Scan(&a.Ident, &a.Name, &a.Lat, &a.Lon, &a.Elevation); err != nil {
			return nil, err
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

// GetArchivedTrack retrieves the archived track points for a flight,
// ordered by timestamp
func (c *Client) GetArchivedTrack(flightID string) ([]types.TrackPoint, error) {
	query := `
		SELECT ts, latitude, longitude, altitude, heading, ground_speed
		FROM track_points
		WHERE flight_id = $1
		ORDER BY ts
	`
	rows, err := c.db.Query(query, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []types.TrackPoint
	for rows.Next() {
		var p types.TrackPoint
		if err := rows.Scan(&p.Timestamp, &p.Lat, &p.Lon, &p.Altitude, &p.Heading, &p.GroundSpeed); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// StoreTrackPoints archives track points for a flight
func (c *Client) StoreTrackPoints(flightID string, points []types.TrackPoint) error {
	query := `
		INSERT INTO track_points (
			flight_id, ts, latitude, longitude, altitude, heading, ground_speed
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (flight_id, ts) DO NOTHING
	`
	for _, p := range points {
		if _, err := c.db.Exec(query,
			flightID, p.Timestamp, p.Lat, p.Lon, p.Altitude, p.Heading, p.GroundSpeed,
		); err != nil {
			return err
		}
	}
	return nil
}

// CreateSession records a newly opened replay session
func (c *Client) CreateSession(session *types.ReplaySession) error {
	query := `
		INSERT INTO replay_sessions (
			id, primary_flight_id, other_flight_ids,
			min_time, max_time, opened_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := c.db.Exec(query,
		session.ID, session.PrimaryFlightID, pq.Array(session.OtherFlightIDs),
		session.MinTime, session.MaxTime, session.OpenedAt,
	)
	return err
}

// CloseSession marks a replay session as closed
func (c *Client) CloseSession(id string, closedAt time.Time) error {
	query := `
		UPDATE replay_sessions SET closed_at = $1
		WHERE id = $2 AND closed_at IS NULL
	`
	_, err := c.db.Exec(query, closedAt, id)
	return err
}

// GetOpenSessions retrieves all sessions that have not been closed
func (c *Client) GetOpenSessions() ([]*types.ReplaySession, error) {
	query := `
		SELECT id, primary_flight_id, other_flight_ids,
			min_time, max_time, opened_at, closed_at
		FROM replay_sessions
		WHERE closed_at IS NULL
	`
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*types.ReplaySession
	for rows.Next() {
		var s types.ReplaySession
		var others []string
		if err := rows.Scan(
			&s.ID, &s.PrimaryFlightID, pq.Array(&others),
			&s.MinTime, &s.MaxTime, &s.OpenedAt, &s.ClosedAt,
		); err != nil {
			return nil, err
		}
		s.OtherFlightIDs = others
		sessions = append(sessions, &s)
	}
	return sessions, rows.Err()
}

// StoreReplayStats stores service statistics
func (c *Client) StoreReplayStats(stats map[string]interface{}) error {
	query := `
		INSERT INTO replay_stats (
			time, frames_rendered, seeks, event_jumps,
			sessions_opened, sessions_closed,
			fetch_failures, fallback_fetches,
			cache_hits, cache_misses, uptime_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	uptime := time.Since(stats["started_at"].(time.Time)).Seconds()

	_, err := c.db.Exec(query,
		time.Now(),
		stats["frames_rendered"],
		stats["seeks"],
		stats["event_jumps"],
		stats["sessions_opened"],
		stats["sessions_closed"],
		stats["fetch_failures"],
		stats["fallback_fetches"],
		stats["cache_hits"],
		stats["cache_misses"],
		int64(uptime),
	)

	return err
}

// GetReplayStats retrieves service statistics for a time range
func (c *Client) GetReplayStats(start, end time.Time) ([]map[string]interface{}, error) {
	query := `
		SELECT
			time, frames_rendered, seeks, event_jumps,
			sessions_opened, sessions_closed,
			fetch_failures, fallback_fetches,
			cache_hits, cache_misses, uptime_seconds
		FROM replay_stats
		WHERE time BETWEEN $1 AND $2
		ORDER BY time DESC
	`

	rows, err := c.db.Query(query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []map[string]interface{}
	for rows.Next() {
		var (
			timestamp       time.Time
			framesRendered  int64
			seeks           int64
			eventJumps      int64
			sessionsOpened  int64
			sessionsClosed  int64
			fetchFailures   int64
			fallbackFetches int64
			cacheHits       int64
			cacheMisses     int64
			uptimeSeconds   int64
		)

		if err := rows.Scan(
			&timestamp,
			&framesRendered,
			&seeks,
			&eventJumps,
			&sessionsOpened,
			&sessionsClosed,
			&fetchFailures,
			&fallbackFetches,
			&cacheHits,
			&cacheMisses,
			&uptimeSeconds,
		); err != nil {
			return nil, err
		}

		stats = append(stats, map[string]interface{}{
			"time":             timestamp,
			"frames_rendered":  framesRendered,
			"seeks":            seeks,
			"event_jumps":      eventJumps,
			"sessions_opened":  sessionsOpened,
			"sessions_closed":  sessionsClosed,
			"fetch_failures":   fetchFailures,
			"fallback_fetches": fallbackFetches,
			"cache_hits":       cacheHits,
			"cache_misses":     cacheMisses,
			"uptime_seconds":   uptimeSeconds,
		})
	}

	return stats, rows.Err()
}
