package postgres

import (
	"context"
	"fmt"
)

// TelemetryEvent is one recorded request observation.
type TelemetryEvent struct {
	Path       string
	Provider   string
	StatusCode int
	LatencyMS  int
	CacheHit   *bool
}

// RecordTelemetryEvent appends one request observation. Invoked off the
// response path through the task queue.
func (r *Repository) RecordTelemetryEvent(ctx context.Context, event TelemetryEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO telemetry_events (path, provider, status_code, latency_ms, cache_hit)
		VALUES ($1, $2, $3, $4, $5)
	`, event.Path, event.Provider, event.StatusCode, event.LatencyMS, event.CacheHit)
	if err != nil {
		return fmt.Errorf("recording telemetry event: %w", err)
	}
	return nil
}
