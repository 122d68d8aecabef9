package migrations

var RetentionPolicies = &Migration{
	ID:   "002_retention_policies",
	Name: "002_retention_policies",
	UpSQL: `
	-- Prune closed sessions older than 90 days on demand
	CREATE OR REPLACE FUNCTION prune_closed_sessions() RETURNS void AS $$
	BEGIN
		DELETE FROM replay_sessions
		WHERE closed_at IS NOT NULL AND closed_at < NOW() - INTERVAL '90 days';
	END;
	$$ LANGUAGE plpgsql;

	-- Prune statistics older than 90 days on demand
	CREATE OR REPLACE FUNCTION prune_replay_stats() RETURNS void AS $$
	BEGIN
		DELETE FROM replay_stats
		WHERE time < NOW() - INTERVAL '90 days';
	END;
	$$ LANGUAGE plpgsql;

	-- Daily session counts for dashboards
	CREATE MATERIALIZED VIEW IF NOT EXISTS replay_sessions_daily AS
	SELECT
		date_trunc('day', opened_at) AS day,
		COUNT(*) AS sessions_opened,
		COUNT(closed_at) AS sessions_closed
	FROM replay_sessions
	GROUP BY day
	WITH NO DATA;
	`,
	DownSQL: `
	DROP MATERIALIZED VIEW IF EXISTS replay_sessions_daily;
	DROP FUNCTION IF EXISTS prune_closed_sessions();
	DROP FUNCTION IF EXISTS prune_replay_stats();
	`,
}
