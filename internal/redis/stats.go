package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/playerstats-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Stats snapshots live under one short uniform TTL, so presence alone means
// valid: no cached_at bookkeeping, the Redis expiry is the freshness window.

// hypixelPlayerEntry wraps the player snapshot with the guild id known at
// caching time. A present entry with a nil guild id means the player was
// definitively guildless when cached.
type hypixelPlayerEntry struct {
	Data    hypixelPlayerPayload `json:"data"`
	GuildID *string              `json:"guild_id"`
}

type hypixelPlayerPayload struct {
	UUID              string  `json:"uuid"`
	Username          string  `json:"username"`
	NetworkLevel      float64 `json:"network_level"`
	Karma             int64   `json:"karma"`
	AchievementPoints int64   `json:"achievement_points"`
	FirstLogin        *int64  `json:"first_login,omitempty"`
	LastLogin         *int64  `json:"last_login,omitempty"`
}

// GetHypixelPlayer returns the cached player snapshot and the guild id it was
// cached with. Misses and corrupt payloads return a nil snapshot.
func (c *Cache) GetHypixelPlayer(ctx context.Context, uuid string) (*domain.HypixelPlayer, *string, error) {
	raw, err := c.client.Get(ctx, hypixelPlayerPrefix+uuid).Bytes()
	if err == redis.Nil {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading hypixel player cache: %w", err)
	}

	var entry hypixelPlayerEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("discarding corrupt hypixel player payload", "uuid", uuid, "error", err)
		return nil, nil, nil
	}

	player := &domain.HypixelPlayer{
		UUID:              entry.Data.UUID,
		Username:          entry.Data.Username,
		NetworkLevel:      entry.Data.NetworkLevel,
		Karma:             entry.Data.Karma,
		AchievementPoints: entry.Data.AchievementPoints,
		FirstLogin:        entry.Data.FirstLogin,
		LastLogin:         entry.Data.LastLogin,
		Source:            domain.SourceCache,
	}
	return player, entry.GuildID, nil
}

// SetHypixelPlayer caches the snapshot together with the known guild id and,
// when one exists, writes the player→guild pointer in the same pipeline.
func (c *Cache) SetHypixelPlayer(ctx context.Context, uuid string, player *domain.HypixelPlayer, guildID *string) error {
	payload, err := json.Marshal(hypixelPlayerEntry{
		Data: hypixelPlayerPayload{
			UUID:              player.UUID,
			Username:          player.Username,
			NetworkLevel:      player.NetworkLevel,
			Karma:             player.Karma,
			AchievementPoints: player.AchievementPoints,
			FirstLogin:        player.FirstLogin,
			LastLogin:         player.LastLogin,
		},
		GuildID: guildID,
	})
	if err != nil {
		return fmt.Errorf("encoding hypixel player: %w", err)
	}

	if guildID == nil {
		if err := c.client.Set(ctx, hypixelPlayerPrefix+uuid, payload, c.cfg.StatsTTL).Err(); err != nil {
			return fmt.Errorf("writing hypixel player cache: %w", err)
		}
		return nil
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, hypixelPlayerPrefix+uuid, payload, c.cfg.StatsTTL)
	pipe.Set(ctx, playerGuildPrefix+uuid, *guildID, c.cfg.StatsTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing hypixel player cache: %w", err)
	}
	return nil
}

// wynncraftPlayerPayload is the persisted Wynncraft summary snapshot.
type wynncraftPlayerPayload struct {
	UUID         string                       `json:"uuid"`
	Username     string                       `json:"username"`
	Online       bool                         `json:"online"`
	Server       *string                      `json:"server,omitempty"`
	Rank         string                       `json:"rank"`
	FirstLogin   *string                      `json:"first_login,omitempty"`
	LastLogin    *string                      `json:"last_login,omitempty"`
	GuildName    *string                      `json:"guild_name,omitempty"`
	GuildPrefix  *string                      `json:"guild_prefix,omitempty"`
	Stats        *domain.WynncraftPlayerStats `json:"player_stats,omitempty"`
	Restrictions domain.WynncraftRestrictions `json:"restrictions"`
}

// GetWynncraftPlayer returns the cached Wynncraft summary, or nil on miss.
func (c *Cache) GetWynncraftPlayer(ctx context.Context, uuid string) (*domain.WynncraftPlayer, error) {
	env, err := getEnvelope[wynncraftPlayerPayload](ctx, c, wynncraftPlayerPrefix+uuid)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, nil
	}

	p := env.Data
	return &domain.WynncraftPlayer{
		UUID:         p.UUID,
		Username:     p.Username,
		Online:       p.Online,
		Server:       p.Server,
		Rank:         p.Rank,
		FirstLogin:   p.FirstLogin,
		LastLogin:    p.LastLogin,
		GuildName:    p.GuildName,
		GuildPrefix:  p.GuildPrefix,
		Stats:        p.Stats,
		Restrictions: p.Restrictions,
		Source:       domain.SourceCache,
	}, nil
}

// SetWynncraftPlayer caches the summary under the uniform stats TTL.
func (c *Cache) SetWynncraftPlayer(ctx context.Context, player *domain.WynncraftPlayer) error {
	payload, err := marshalEnvelope(wynncraftPlayerPayload{
		UUID:         player.UUID,
		Username:     player.Username,
		Online:       player.Online,
		Server:       player.Server,
		Rank:         player.Rank,
		FirstLogin:   player.FirstLogin,
		LastLogin:    player.LastLogin,
		GuildName:    player.GuildName,
		GuildPrefix:  player.GuildPrefix,
		Stats:        player.Stats,
		Restrictions: player.Restrictions,
	})
	if err != nil {
		return fmt.Errorf("encoding wynncraft player: %w", err)
	}

	if err := c.client.Set(ctx, wynncraftPlayerPrefix+player.UUID, payload, c.cfg.StatsTTL).Err(); err != nil {
		return fmt.Errorf("writing wynncraft player cache: %w", err)
	}
	return nil
}
