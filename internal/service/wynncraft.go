package service

import (
	"context"
	"log/slog"

	"github.com/playerstats-api/internal/domain"
	"github.com/playerstats-api/internal/origin"
	"github.com/playerstats-api/internal/redis"
	"github.com/playerstats-api/internal/worker"
)

// WynncraftService resolves Wynncraft player summaries and guilds with a
// short-TTL snapshot cache in front of the origin.
type WynncraftService struct {
	cache     *redis.Cache
	wynncraft *origin.WynncraftClient
	metrics   *MetricsService
	queue     *worker.Queue
	logger    *slog.Logger
}

// NewWynncraftService creates a Wynncraft stats service.
func NewWynncraftService(
	cache *redis.Cache,
	wynncraft *origin.WynncraftClient,
	metrics *MetricsService,
	queue *worker.Queue,
	logger *slog.Logger,
) *WynncraftService {
	return &WynncraftService{
		cache:     cache,
		wynncraft: wynncraft,
		metrics:   metrics,
		queue:     queue,
		logger:    logger,
	}
}

// GetPlayer returns the player summary, cache first. Fresh origin snapshots
// with visible stats also feed the metric store off the request path.
func (s *WynncraftService) GetPlayer(ctx context.Context, uuid string) (*domain.WynncraftPlayer, error) {
	normalized, err := domain.NormalizeUUID(uuid)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.GetWynncraftPlayer(ctx, normalized)
	if err != nil {
		s.logger.Warn("wynncraft player cache read failed", "uuid", normalized, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	player, err := s.wynncraft.FetchPlayer(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetWynncraftPlayer(ctx, player); err != nil {
		s.logger.Warn("wynncraft player cache write failed", "uuid", normalized, "error", err)
	}

	if player.Stats != nil {
		s.enqueueMetrics(normalized, *player.Stats)
	}
	return player, nil
}

// GetGuild fetches a guild by prefix. Wynncraft guild responses are small and
// rarely requested twice in a window, so they go straight to the origin.
func (s *WynncraftService) GetGuild(ctx context.Context, prefix string) (*domain.Guild, error) {
	return s.wynncraft.FetchGuild(ctx, prefix)
}

func (s *WynncraftService) enqueueMetrics(uuid string, stats domain.WynncraftPlayerStats) {
	observations := []domain.MetricObservation{
		{PlayerUUID: uuid, MetricKey: "wynncraft_playtime_hours", Value: stats.PlaytimeHours},
		{PlayerUUID: uuid, MetricKey: "wynncraft_wars", Value: float64(stats.Wars)},
		{PlayerUUID: uuid, MetricKey: "wynncraft_mobs_killed", Value: float64(stats.MobsKilled)},
		{PlayerUUID: uuid, MetricKey: "wynncraft_chests_opened", Value: float64(stats.ChestsOpened)},
		{PlayerUUID: uuid, MetricKey: "wynncraft_dungeons_completed", Value: float64(stats.DungeonsCompleted)},
		{PlayerUUID: uuid, MetricKey: "wynncraft_raids_completed", Value: float64(stats.RaidsCompleted)},
	}
	s.queue.Submit(worker.Task{
		Name: "record-wynncraft-metrics",
		Run: func(ctx context.Context) error {
			return s.metrics.RecordObservations(ctx, observations)
		},
	})
}
