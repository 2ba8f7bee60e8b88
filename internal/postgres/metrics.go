package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/playerstats-api/internal/domain"
)

// GetMetricByKey looks up a metric definition. Returns domain.ErrNotFound for
// unknown keys so callers can classify without inspecting pgx errors.
func (r *Repository) GetMetricByKey(ctx context.Context, key string) (*domain.MetricDefinition, error) {
	var def domain.MetricDefinition
	err := r.pool.QueryRow(ctx, `
		SELECT id, key, label, provider, unit, higher_is_better
		FROM metrics
		WHERE key = $1
	`, key).Scan(&def.ID, &def.Key, &def.Label, &def.Provider, &def.Unit, &def.HigherIsBetter)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting metric definition: %w", err)
	}
	return &def, nil
}

// UpsertMetricValue records the current value for one (player, metric) pair.
// Last write wins; concurrent writers race without lost-update detection.
func (r *Repository) UpsertMetricValue(ctx context.Context, uuid string, metricID int, value float64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO metric_values (player_uuid, metric_id, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (player_uuid, metric_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, uuid, metricID, value)
	if err != nil {
		return fmt.Errorf("upserting metric value: %w", err)
	}
	return nil
}

// GetPlayerMetricValue returns one player's current value for a metric, or
// domain.ErrNotFound when nothing has been recorded.
func (r *Repository) GetPlayerMetricValue(ctx context.Context, metricID int, uuid string) (float64, error) {
	var value float64
	err := r.pool.QueryRow(ctx, `
		SELECT value FROM metric_values
		WHERE metric_id = $1 AND player_uuid = $2
	`, metricID, uuid).Scan(&value)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrNotFound
		}
		return 0, fmt.Errorf("getting player metric value: %w", err)
	}
	return value, nil
}

// GetMetricValues returns every recorded value for a metric across the known
// player population.
func (r *Repository) GetMetricValues(ctx context.Context, metricID int) ([]domain.MetricValue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT player_uuid, value FROM metric_values
		WHERE metric_id = $1
	`, metricID)
	if err != nil {
		return nil, fmt.Errorf("getting metric values: %w", err)
	}
	defer rows.Close()

	var values []domain.MetricValue
	for rows.Next() {
		var v domain.MetricValue
		if err := rows.Scan(&v.UUID, &v.Value); err != nil {
			return nil, fmt.Errorf("scanning metric value: %w", err)
		}
		values = append(values, v)
	}
	return values, nil
}
