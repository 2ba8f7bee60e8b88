package service

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/jellydator/ttlcache/v3"

	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
	"github.com/playerstats-api/internal/postgres"
)

// bucketCount is the number of log-scale histogram buckets.
const bucketCount = 6

// topPlayerCount caps the best-values list attached to each distribution.
const topPlayerCount = 5

// MetricsService records metric observations and computes on-demand
// distributions around a player. Metric definitions are static reference data,
// so they sit behind an in-process TTL cache instead of Redis.
type MetricsService struct {
	repo   *postgres.Repository
	defs   *ttlcache.Cache[string, *domain.MetricDefinition]
	logger *slog.Logger
}

// NewMetricsService creates a metrics service.
func NewMetricsService(repo *postgres.Repository, cfg *config.CacheConfig, logger *slog.Logger) *MetricsService {
	defs := ttlcache.New[string, *domain.MetricDefinition](
		ttlcache.WithTTL[string, *domain.MetricDefinition](cfg.MetricDefTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.MetricDefinition](),
	)
	go defs.Start()

	return &MetricsService{
		repo:   repo,
		defs:   defs,
		logger: logger,
	}
}

// Close stops the definition cache janitor.
func (s *MetricsService) Close() {
	s.defs.Stop()
}

// definition resolves a metric key through the in-process cache.
func (s *MetricsService) definition(ctx context.Context, key string) (*domain.MetricDefinition, error) {
	if item := s.defs.Get(key); item != nil {
		return item.Value(), nil
	}

	def, err := s.repo.GetMetricByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	s.defs.Set(key, def, ttlcache.DefaultTTL)
	return def, nil
}

// RecordObservation upserts one metric reading. Unknown metric keys are
// rejected with domain.ErrNotFound.
func (s *MetricsService) RecordObservation(ctx context.Context, obs domain.MetricObservation) error {
	def, err := s.definition(ctx, obs.MetricKey)
	if err != nil {
		return err
	}
	return s.repo.UpsertMetricValue(ctx, obs.PlayerUUID, def.ID, obs.Value)
}

// RecordObservations applies a batch; the first failure aborts the rest.
func (s *MetricsService) RecordObservations(ctx context.Context, batch []domain.MetricObservation) error {
	for _, obs := range batch {
		if err := s.RecordObservation(ctx, obs); err != nil {
			return err
		}
	}
	return nil
}

// Distribution computes the population histogram for one metric centered on
// one player. The player must have a recorded value for the metric.
func (s *MetricsService) Distribution(ctx context.Context, metricKey, uuid string) (*domain.Histogram, error) {
	normalized, err := domain.NormalizeUUID(uuid)
	if err != nil {
		return nil, err
	}

	def, err := s.definition(ctx, metricKey)
	if err != nil {
		return nil, err
	}

	playerValue, err := s.repo.GetPlayerMetricValue(ctx, def.ID, normalized)
	if err != nil {
		return nil, err
	}

	values, err := s.repo.GetMetricValues(ctx, def.ID)
	if err != nil {
		return nil, err
	}

	return buildHistogram(def, playerValue, values), nil
}

// buildHistogram computes the log-scale distribution, the player's percentile
// and rank, and the best recorded values. values is never empty here: the
// player's own value is among them.
func buildHistogram(def *domain.MetricDefinition, playerValue float64, values []domain.MetricValue) *domain.Histogram {
	mn, mx := values[0].Value, values[0].Value
	atOrBelow := 0
	better := 0
	for _, v := range values {
		if v.Value < mn {
			mn = v.Value
		}
		if v.Value > mx {
			mx = v.Value
		}
		if v.Value <= playerValue {
			atOrBelow++
		}
		if beats(def.HigherIsBetter, v.Value, playerValue) {
			better++
		}
	}

	h := &domain.Histogram{
		MetricKey:      def.Key,
		Unit:           def.Unit,
		HigherIsBetter: def.HigherIsBetter,
		PlayerValue:    playerValue,
		SampleSize:     len(values),
		MinValue:       mn,
		MaxValue:       mx,
		Percentile:     100 * float64(atOrBelow) / float64(len(values)),
		PlayerRank:     better + 1,
		TopPlayers:     topValues(def.HigherIsBetter, values),
	}

	if mx == mn {
		// Degenerate range: one bucket holding the whole population.
		h.Buckets = []float64{mn, mx}
		h.Counts = []int{len(values)}
		return h
	}

	logMn := math.Log10(mn + 1)
	logMx := math.Log10(mx + 1)

	edges := make([]float64, bucketCount+1)
	for i := 0; i <= bucketCount; i++ {
		edges[i] = math.Pow(10, logMn+(logMx-logMn)*float64(i)/bucketCount) - 1
	}
	// Pin the outer edges to the exact extremes so float rounding never
	// drops a boundary value out of range.
	edges[0] = mn
	edges[bucketCount] = mx

	counts := make([]int, bucketCount)
	span := logMx - logMn
	for _, v := range values {
		idx := int(float64(bucketCount) * (math.Log10(v.Value+1) - logMn) / span)
		if idx < 0 {
			idx = 0
		}
		if idx >= bucketCount {
			idx = bucketCount - 1
		}
		counts[idx]++
	}

	h.Buckets = edges
	h.Counts = counts
	return h
}

// beats reports whether a beats b in the metric's preferred direction.
func beats(higherIsBetter bool, a, b float64) bool {
	if higherIsBetter {
		return a > b
	}
	return a < b
}

// topValues returns the best recorded values, best first.
func topValues(higherIsBetter bool, values []domain.MetricValue) []domain.MetricValue {
	top := make([]domain.MetricValue, len(values))
	copy(top, values)
	sort.SliceStable(top, func(i, j int) bool {
		return beats(higherIsBetter, top[i].Value, top[j].Value)
	})
	if len(top) > topPlayerCount {
		top = top[:topPlayerCount]
	}
	return top
}
