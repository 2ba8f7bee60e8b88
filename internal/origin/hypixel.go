package origin

import (
	"context"
	"log/slog"
	"math"

	"github.com/go-resty/resty/v2"
	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
)

// HypixelClient fetches player stats, guild data and session status from the
// Hypixel API.
type HypixelClient struct {
	client *resty.Client
	logger *slog.Logger
}

// NewHypixelClient creates a Hypixel origin adapter.
func NewHypixelClient(cfg *config.ProvidersConfig, logger *slog.Logger) *HypixelClient {
	client := newClient(&cfg.Hypixel, *cfg).
		SetHeader("API-Key", cfg.Hypixel.Token)
	return &HypixelClient{client: client, logger: logger}
}

type hypixelPlayerResponse struct {
	Success bool `json:"success"`
	Player  *struct {
		UUID              string  `json:"uuid"`
		Displayname       string  `json:"displayname"`
		NetworkExp        float64 `json:"networkExp"`
		Karma             int64   `json:"karma"`
		AchievementPoints int64   `json:"achievementPoints"`
		FirstLogin        *int64  `json:"firstLogin"`
		LastLogin         *int64  `json:"lastLogin"`
	} `json:"player"`
}

// networkLevel converts raw network experience to the displayed level.
func networkLevel(exp float64) float64 {
	if exp <= 0 {
		return 1
	}
	return (math.Sqrt(2*exp+30625) / 50) - 2.5
}

// FetchPlayer returns the normalized player snapshot, tagged SourceOrigin.
func (c *HypixelClient) FetchPlayer(ctx context.Context, uuid string) (*domain.HypixelPlayer, error) {
	var body hypixelPlayerResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("uuid", uuid).
		SetResult(&body).
		Get("/v2/player")
	if err := classify(resp, err); err != nil {
		return nil, err
	}
	if body.Player == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.HypixelPlayer{
		UUID:              body.Player.UUID,
		Username:          body.Player.Displayname,
		NetworkLevel:      networkLevel(body.Player.NetworkExp),
		Karma:             body.Player.Karma,
		AchievementPoints: body.Player.AchievementPoints,
		FirstLogin:        body.Player.FirstLogin,
		LastLogin:         body.Player.LastLogin,
		Source:            domain.SourceOrigin,
	}, nil
}

type hypixelGuildResponse struct {
	Success bool `json:"success"`
	Guild   *struct {
		ID      string `json:"_id"`
		Name    string `json:"name"`
		Tag     string `json:"tag"`
		Members []struct {
			UUID   string `json:"uuid"`
			Rank   string `json:"rank"`
			Joined int64  `json:"joined"`
		} `json:"members"`
	} `json:"guild"`
}

// FetchGuildByPlayer resolves the guild a player belongs to. A null guild in
// the response body means the player is guildless: classified NotFound.
func (c *HypixelClient) FetchGuildByPlayer(ctx context.Context, uuid string) (*domain.Guild, error) {
	return c.fetchGuild(ctx, "player", uuid)
}

// FetchGuildByID fetches a guild snapshot by its id.
func (c *HypixelClient) FetchGuildByID(ctx context.Context, id string) (*domain.Guild, error) {
	return c.fetchGuild(ctx, "id", id)
}

func (c *HypixelClient) fetchGuild(ctx context.Context, param, value string) (*domain.Guild, error) {
	var body hypixelGuildResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam(param, value).
		SetResult(&body).
		Get("/v2/guild")
	if err := classify(resp, err); err != nil {
		return nil, err
	}
	if body.Guild == nil {
		return nil, domain.ErrNotFound
	}

	members := make([]domain.GuildMember, 0, len(body.Guild.Members))
	for _, m := range body.Guild.Members {
		members = append(members, domain.GuildMember{
			UUID:   m.UUID,
			Rank:   m.Rank,
			Joined: formatEpochMillis(m.Joined),
		})
	}

	return &domain.Guild{
		ID:          body.Guild.ID,
		Name:        body.Guild.Name,
		Tag:         body.Guild.Tag,
		MemberCount: len(members),
		Members:     members,
		Source:      domain.SourceOrigin,
	}, nil
}

// HypixelSession is the raw presence state the status endpoint reports.
type HypixelSession struct {
	Online   bool
	GameType *string
	Mode     *string
}

type hypixelStatusResponse struct {
	Success bool `json:"success"`
	Session struct {
		Online   bool    `json:"online"`
		GameType *string `json:"gameType"`
		Mode     *string `json:"mode"`
	} `json:"session"`
}

// FetchStatus returns the player's current Hypixel session.
func (c *HypixelClient) FetchStatus(ctx context.Context, uuid string) (*HypixelSession, error) {
	var body hypixelStatusResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("uuid", uuid).
		SetResult(&body).
		Get("/v2/status")
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	return &HypixelSession{
		Online:   body.Session.Online,
		GameType: body.Session.GameType,
		Mode:     body.Session.Mode,
	}, nil
}
