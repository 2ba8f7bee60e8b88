package redis

import (
	"context"
	"fmt"

	"github.com/playerstats-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// guildPayload is the persisted shape of a Guild snapshot.
type guildPayload struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Tag         string               `json:"tag,omitempty"`
	Level       int                  `json:"level"`
	MemberCount int                  `json:"member_count"`
	Members     []domain.GuildMember `json:"members"`
}

// GetGuild returns a cached guild snapshot, or nil on miss.
func (c *Cache) GetGuild(ctx context.Context, guildID string) (*domain.Guild, error) {
	env, err := getEnvelope[guildPayload](ctx, c, hypixelGuildPrefix+guildID)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, nil
	}

	return &domain.Guild{
		ID:          env.Data.ID,
		Name:        env.Data.Name,
		Tag:         env.Data.Tag,
		Level:       env.Data.Level,
		MemberCount: env.Data.MemberCount,
		Members:     env.Data.Members,
		Source:      domain.SourceCache,
	}, nil
}

// SetGuild caches the guild snapshot and, in the same pipeline, one
// member→guild pointer per member with the same TTL. The pointers are a
// freshness hint only, never authoritative: a crash mid-pipeline leaving them
// out costs one redundant origin query, nothing more.
func (c *Cache) SetGuild(ctx context.Context, guild *domain.Guild) error {
	payload, err := marshalEnvelope(guildPayload{
		ID:          guild.ID,
		Name:        guild.Name,
		Tag:         guild.Tag,
		Level:       guild.Level,
		MemberCount: guild.MemberCount,
		Members:     guild.Members,
	})
	if err != nil {
		return fmt.Errorf("encoding guild: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, hypixelGuildPrefix+guild.ID, payload, c.cfg.StatsTTL)
	for _, member := range guild.Members {
		pipe.Set(ctx, playerGuildPrefix+member.UUID, guild.ID, c.cfg.StatsTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing guild cache: %w", err)
	}
	return nil
}

// GetPlayerGuildID reads the player→guild secondary pointer. An empty result
// means unknown, not guildless.
func (c *Cache) GetPlayerGuildID(ctx context.Context, uuid string) (string, error) {
	guildID, err := c.client.Get(ctx, playerGuildPrefix+uuid).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading player guild pointer: %w", err)
	}
	return guildID, nil
}
