package service

import (
	"context"
	"log/slog"

	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
	"github.com/playerstats-api/internal/worker"
)

// hypixelCache is the snapshot-cache surface the service reads and writes.
// *redis.Cache satisfies it.
type hypixelCache interface {
	GetHypixelPlayer(ctx context.Context, uuid string) (*domain.HypixelPlayer, *string, error)
	SetHypixelPlayer(ctx context.Context, uuid string, player *domain.HypixelPlayer, guildID *string) error
	GetPlayerGuildID(ctx context.Context, uuid string) (string, error)
	GetGuild(ctx context.Context, guildID string) (*domain.Guild, error)
	SetGuild(ctx context.Context, guild *domain.Guild) error
}

// hypixelOrigin is the upstream API surface the cache falls back to.
// *origin.HypixelClient satisfies it.
type hypixelOrigin interface {
	FetchPlayer(ctx context.Context, uuid string) (*domain.HypixelPlayer, error)
	FetchGuildByPlayer(ctx context.Context, uuid string) (*domain.Guild, error)
	FetchGuildByID(ctx context.Context, guildID string) (*domain.Guild, error)
}

// HypixelService resolves player stats and guild data with a tiered cache in
// front of the Hypixel origin.
type HypixelService struct {
	cache    hypixelCache
	hypixel  hypixelOrigin
	identity *IdentityService
	metrics  *MetricsService
	config   *config.GuildConfig
	queue    *worker.Queue
	logger   *slog.Logger
}

// NewHypixelService creates a Hypixel stats service.
func NewHypixelService(
	cache hypixelCache,
	hypixel hypixelOrigin,
	identity *IdentityService,
	metrics *MetricsService,
	cfg *config.GuildConfig,
	queue *worker.Queue,
	logger *slog.Logger,
) *HypixelService {
	return &HypixelService{
		cache:    cache,
		hypixel:  hypixel,
		identity: identity,
		metrics:  metrics,
		config:   cfg,
		queue:    queue,
		logger:   logger,
	}
}

// GetFullStats returns a player's Hypixel snapshot with their guild attached.
// The resolution order is fixed: player cache, guild pointer, player origin,
// guild cache, guild origin. A valid player cache entry with no recorded guild
// id is trusted as definitively guildless and triggers no guild origin call.
func (s *HypixelService) GetFullStats(ctx context.Context, uuid string) (*domain.HypixelFullData, error) {
	normalized, err := domain.NormalizeUUID(uuid)
	if err != nil {
		return nil, err
	}

	player, guildID, err := s.cache.GetHypixelPlayer(ctx, normalized)
	if err != nil {
		s.logger.Warn("hypixel player cache read failed", "uuid", normalized, "error", err)
	}
	cacheValid := player != nil

	if guildID == nil {
		pointer, err := s.cache.GetPlayerGuildID(ctx, normalized)
		if err != nil {
			s.logger.Warn("player guild pointer read failed", "uuid", normalized, "error", err)
		}
		if pointer != "" {
			guildID = &pointer
		}
	}

	if player == nil {
		player, err = s.hypixel.FetchPlayer(ctx, normalized)
		if err != nil {
			return nil, err
		}
	}

	var guild *domain.Guild
	if guildID != nil {
		guild, err = s.cache.GetGuild(ctx, *guildID)
		if err != nil {
			s.logger.Warn("guild cache read failed", "guild_id", *guildID, "error", err)
			guild = nil
		}
	}

	if guild == nil {
		// A fresh player entry cached without a guild id means the guild
		// lookup already came back empty inside the freshness window.
		if cacheValid && guildID == nil {
			s.finishPlayer(ctx, normalized, player, nil)
			return &domain.HypixelFullData{Player: player}, nil
		}

		guild, err = s.hypixel.FetchGuildByPlayer(ctx, normalized)
		if domain.IsNotFound(err) {
			guild, err = nil, nil
		}
		if err != nil {
			return nil, err
		}
	}

	s.finishPlayer(ctx, normalized, player, guild)
	return &domain.HypixelFullData{Player: player, Guild: guild}, nil
}

// finishPlayer persists origin-sourced results and feeds the metric store.
func (s *HypixelService) finishPlayer(ctx context.Context, uuid string, player *domain.HypixelPlayer, guild *domain.Guild) {
	if guild != nil && guild.Source == domain.SourceOrigin {
		if err := s.cache.SetGuild(ctx, guild); err != nil {
			s.logger.Warn("guild cache write failed", "guild_id", guild.ID, "error", err)
		}
	}

	if player.Source != domain.SourceOrigin {
		return
	}

	var guildID *string
	if guild != nil {
		guildID = &guild.ID
	}
	if err := s.cache.SetHypixelPlayer(ctx, uuid, player, guildID); err != nil {
		s.logger.Warn("hypixel player cache write failed", "uuid", uuid, "error", err)
	}

	observations := []domain.MetricObservation{
		{PlayerUUID: uuid, MetricKey: "hypixel_network_level", Value: player.NetworkLevel},
		{PlayerUUID: uuid, MetricKey: "hypixel_karma", Value: float64(player.Karma)},
		{PlayerUUID: uuid, MetricKey: "hypixel_achievement_points", Value: float64(player.AchievementPoints)},
	}
	s.queue.Submit(worker.Task{
		Name: "record-hypixel-metrics",
		Run: func(ctx context.Context) error {
			return s.metrics.RecordObservations(ctx, observations)
		},
	})
}

// GetGuildByID returns a guild snapshot by id, cache first.
func (s *HypixelService) GetGuildByID(ctx context.Context, guildID string) (*domain.Guild, error) {
	guild, err := s.cache.GetGuild(ctx, guildID)
	if err != nil {
		s.logger.Warn("guild cache read failed", "guild_id", guildID, "error", err)
	}
	if guild != nil {
		return guild, nil
	}

	guild, err = s.hypixel.FetchGuildByID(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetGuild(ctx, guild); err != nil {
		s.logger.Warn("guild cache write failed", "guild_id", guild.ID, "error", err)
	}
	return guild, nil
}

// GuildRoster is one page of a guild's membership with identities attached.
type GuildRoster struct {
	Guild   *domain.Guild            `json:"guild"`
	Members []domain.GuildMemberFull `json:"members"`
	Total   int                      `json:"total"`
	Offset  int                      `json:"offset"`
}

// GetGuildRoster returns one roster page with member identities resolved in
// parallel. Roster order is preserved; members whose identity cannot be
// resolved are omitted from the page rather than failing it.
func (s *HypixelService) GetGuildRoster(ctx context.Context, guildID string, limit, offset int) (*GuildRoster, error) {
	guild, err := s.GetGuildByID(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	page := guild.Members
	if offset >= len(page) {
		page = nil
	} else {
		page = page[offset:]
	}
	if len(page) > limit {
		page = page[:limit]
	}

	uuids := make([]string, 0, len(page))
	for _, m := range page {
		uuids = append(uuids, m.UUID)
	}

	identities, err := s.identity.BulkLookup(ctx, uuids)
	if err != nil {
		return nil, err
	}

	byUUID := make(map[string]domain.Identity, len(identities))
	for _, id := range identities {
		byUUID[id.UUID] = id
	}

	members := make([]domain.GuildMemberFull, 0, len(page))
	for _, m := range page {
		normalized, err := domain.NormalizeUUID(m.UUID)
		if err != nil {
			normalized = m.UUID
		}
		id, ok := byUUID[normalized]
		if !ok {
			continue
		}
		members = append(members, domain.GuildMemberFull{
			UUID:     id.UUID,
			Username: id.Username,
			SkinURL:  id.SkinURL,
			Rank:     m.Rank,
			Joined:   m.Joined,
		})
	}

	return &GuildRoster{
		Guild:   guild,
		Members: members,
		Total:   guild.MemberCount,
		Offset:  offset,
	}, nil
}
