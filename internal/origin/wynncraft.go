package origin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
)

// The Wynncraft API requires dashed uuids on every player endpoint.

// WynncraftClient fetches player summaries and guild data from the Wynncraft
// v3 API.
type WynncraftClient struct {
	client *resty.Client
	logger *slog.Logger
}

// NewWynncraftClient creates a Wynncraft origin adapter.
func NewWynncraftClient(cfg *config.ProvidersConfig, logger *slog.Logger) *WynncraftClient {
	client := newClient(&cfg.Wynncraft, *cfg).
		SetAuthToken(cfg.Wynncraft.Token)
	return &WynncraftClient{client: client, logger: logger}
}

type wynncraftPlayerResponse struct {
	Username        string  `json:"username"`
	UUID            string  `json:"uuid"`
	Online          bool    `json:"online"`
	Server          *string `json:"server"`
	ActiveCharacter *string `json:"activeCharacter"`
	Rank            string  `json:"rank"`
	SupportRank     *string `json:"supportRank"`
	FirstJoin       *string `json:"firstJoin"`
	LastJoin        *string `json:"lastJoin"`
	Playtime        float64 `json:"playtime"`
	Guild           *struct {
		Name   string `json:"name"`
		Prefix string `json:"prefix"`
	} `json:"guild"`
	GlobalData *struct {
		Wars        int `json:"wars"`
		MobsKilled  int `json:"mobsKilled"`
		ChestsFound int `json:"chestsFound"`
		Dungeons    struct {
			Total int `json:"total"`
		} `json:"dungeons"`
		Raids struct {
			Total int `json:"total"`
		} `json:"raids"`
	} `json:"globalData"`
	Restrictions struct {
		MainAccess          bool `json:"mainAccess"`
		CharacterDataAccess bool `json:"characterDataAccess"`
		OnlineStatus        bool `json:"onlineStatus"`
	} `json:"restrictions"`
}

// FetchPlayer returns the normalized account summary. Sections behind privacy
// restrictions come back nil rather than zeroed.
func (c *WynncraftClient) FetchPlayer(ctx context.Context, uuid string) (*domain.WynncraftPlayer, error) {
	dashed, err := domain.DashUUID(uuid)
	if err != nil {
		return nil, err
	}

	var body wynncraftPlayerResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("fullResult", "true").
		SetResult(&body).
		Get("/v3/player/" + dashed)
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	restrictions := domain.WynncraftRestrictions{
		MainAccess:          body.Restrictions.MainAccess,
		CharacterDataAccess: body.Restrictions.CharacterDataAccess,
		OnlineStatus:        body.Restrictions.OnlineStatus,
	}

	rank := body.Rank
	if rank == "Player" && body.SupportRank != nil {
		rank = *body.SupportRank
	}

	player := &domain.WynncraftPlayer{
		UUID:         body.UUID,
		Username:     body.Username,
		Online:       body.Online,
		Server:       body.Server,
		Rank:         rank,
		Restrictions: restrictions,
		Source:       domain.SourceOrigin,
	}

	if body.Guild != nil {
		player.GuildName = &body.Guild.Name
		player.GuildPrefix = &body.Guild.Prefix
	}

	// Online-status restriction hides both join timestamps; main-access
	// restriction additionally hides firstJoin and the global counters.
	if !restrictions.OnlineStatus {
		if !restrictions.MainAccess {
			player.FirstLogin = body.FirstJoin
		}
		player.LastLogin = body.LastJoin
	}

	if !restrictions.MainAccess && body.GlobalData != nil {
		player.Stats = &domain.WynncraftPlayerStats{
			Wars:              body.GlobalData.Wars,
			MobsKilled:        body.GlobalData.MobsKilled,
			ChestsOpened:      body.GlobalData.ChestsFound,
			DungeonsCompleted: body.GlobalData.Dungeons.Total,
			RaidsCompleted:    body.GlobalData.Raids.Total,
			PlaytimeHours:     body.Playtime,
		}
	}

	return player, nil
}

type wynncraftGuildResponse struct {
	UUID    string                     `json:"uuid"`
	Name    string                     `json:"name"`
	Prefix  string                     `json:"prefix"`
	Level   int                        `json:"level"`
	Members map[string]json.RawMessage `json:"members"`
}

type wynncraftGuildMember struct {
	UUID   string `json:"uuid"`
	Online bool   `json:"online"`
	Joined string `json:"joined"`
}

// FetchGuild fetches a guild by its prefix and flattens the per-rank member
// maps into one roster.
func (c *WynncraftClient) FetchGuild(ctx context.Context, prefix string) (*domain.Guild, error) {
	var body wynncraftGuildResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("identifier", "username").
		SetResult(&body).
		Get("/v3/guild/prefix/" + prefix)
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	var members []domain.GuildMember
	total := 0
	for rank, raw := range body.Members {
		if rank == "total" {
			if err := json.Unmarshal(raw, &total); err != nil {
				c.logger.Warn("unexpected guild member total", "guild", prefix, "error", err)
			}
			continue
		}

		var byName map[string]wynncraftGuildMember
		if err := json.Unmarshal(raw, &byName); err != nil {
			return nil, fmt.Errorf("%w: parsing guild members for rank %s", domain.ErrService, rank)
		}
		for _, m := range byName {
			members = append(members, domain.GuildMember{
				UUID:   m.UUID,
				Rank:   rank,
				Joined: m.Joined,
				Online: m.Online,
			})
		}
	}

	if total == 0 {
		total = len(members)
	}

	return &domain.Guild{
		ID:          body.UUID,
		Name:        body.Name,
		Tag:         body.Prefix,
		Level:       body.Level,
		MemberCount: total,
		Members:     members,
		Source:      domain.SourceOrigin,
	}, nil
}

// WynncraftPresence is the raw presence state the player endpoint reports.
type WynncraftPresence struct {
	Online          bool
	Server          *string
	ActiveCharacter *string
	Restricted      bool
}

// FetchStatus returns the player's current Wynncraft presence.
func (c *WynncraftClient) FetchStatus(ctx context.Context, uuid string) (*WynncraftPresence, error) {
	dashed, err := domain.DashUUID(uuid)
	if err != nil {
		return nil, err
	}

	var body wynncraftPlayerResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/v3/player/" + dashed)
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	return &WynncraftPresence{
		Online:          body.Online,
		Server:          body.Server,
		ActiveCharacter: body.ActiveCharacter,
		Restricted:      body.Restrictions.OnlineStatus,
	}, nil
}

// formatEpochMillis renders an epoch-milliseconds timestamp the way roster
// consumers expect joined dates.
func formatEpochMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
