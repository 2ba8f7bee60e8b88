package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/playerstats-api/internal/config"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS player_username_history (
			id BIGSERIAL PRIMARY KEY,
			uuid UUID NOT NULL,
			username VARCHAR(255) NOT NULL,
			first_seen_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			last_seen_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_player_username_history_uuid_last_seen
			ON player_username_history (uuid, last_seen_at DESC)`,
		`CREATE TABLE IF NOT EXISTS player_skin_history (
			uuid UUID NOT NULL,
			skin_hash VARCHAR(255) NOT NULL,
			first_seen_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (uuid, skin_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS player_cape_history (
			uuid UUID NOT NULL,
			cape_hash VARCHAR(255) NOT NULL,
			first_seen_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (uuid, cape_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS metrics (
			id SERIAL PRIMARY KEY,
			key VARCHAR(64) NOT NULL UNIQUE,
			label VARCHAR(255) NOT NULL,
			provider VARCHAR(32) NOT NULL,
			unit VARCHAR(32),
			higher_is_better BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS metric_values (
			player_uuid UUID NOT NULL,
			metric_id INT NOT NULL REFERENCES metrics(id),
			value DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (player_uuid, metric_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_values_metric ON metric_values(metric_id, value DESC)`,
		`CREATE TABLE IF NOT EXISTS telemetry_events (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ DEFAULT NOW(),
			path TEXT,
			provider TEXT,
			status_code INT,
			latency_ms INT,
			cache_hit BOOLEAN
		)`,
	}

	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	if err := r.seedMetrics(ctx); err != nil {
		return err
	}

	r.logger.Info("database migrations completed")
	return nil
}

// seedMetrics inserts the static metric definitions. Idempotent: existing
// keys are left untouched.
func (r *Repository) seedMetrics(ctx context.Context) error {
	seeds := []struct {
		key      string
		label    string
		provider string
		unit     *string
	}{
		{"wynncraft_playtime_hours", "Playtime", "wynncraft", ptr("hours")},
		{"wynncraft_wars", "Wars Joined", "wynncraft", nil},
		{"wynncraft_mobs_killed", "Mobs Killed", "wynncraft", nil},
		{"wynncraft_chests_opened", "Chests Opened", "wynncraft", nil},
		{"wynncraft_dungeons_completed", "Dungeons Completed", "wynncraft", nil},
		{"wynncraft_raids_completed", "Raids Completed", "wynncraft", nil},
		{"hypixel_network_level", "Network Level", "hypixel", nil},
		{"hypixel_karma", "Karma", "hypixel", nil},
		{"hypixel_achievement_points", "Achievement Points", "hypixel", nil},
	}

	query := `
		INSERT INTO metrics (key, label, provider, unit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO NOTHING
	`
	for _, seed := range seeds {
		if _, err := r.pool.Exec(ctx, query, seed.key, seed.label, seed.provider, seed.unit); err != nil {
			return fmt.Errorf("seeding metric %s: %w", seed.key, err)
		}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
