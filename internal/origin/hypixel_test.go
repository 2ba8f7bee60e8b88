package origin

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
)

func hypixelTestClient(t *testing.T, handler http.Handler) *HypixelClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.ProvidersConfig{
		Hypixel: config.ProviderConfig{BaseURL: server.URL, Token: "test-key"},
		Timeout: 5 * time.Second,
	}
	return NewHypixelClient(cfg, slog.Default())
}

func TestHypixelFetchPlayer(t *testing.T) {
	client := hypixelTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/player", r.URL.Path)
		assert.Equal(t, testUUID, r.URL.Query().Get("uuid"))
		assert.Equal(t, "test-key", r.Header.Get("API-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"player": {
				"uuid": "069a79f444e94726a5befca90e38aaf5",
				"displayname": "Notch",
				"networkExp": 10000,
				"karma": 12345,
				"achievementPoints": 678,
				"firstLogin": 1400000000000,
				"lastLogin": 1700000000000
			}
		}`))
	}))

	player, err := client.FetchPlayer(context.Background(), testUUID)
	require.NoError(t, err)

	assert.Equal(t, "Notch", player.Username)
	assert.InDelta(t, 2.0, player.NetworkLevel, 1e-9)
	assert.Equal(t, int64(12345), player.Karma)
	assert.Equal(t, domain.SourceOrigin, player.Source)
}

func TestHypixelFetchPlayerNullPlayer(t *testing.T) {
	client := hypixelTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "player": null}`))
	}))

	_, err := client.FetchPlayer(context.Background(), testUUID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHypixelFetchGuildNullGuildIsGuildless(t *testing.T) {
	client := hypixelTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/guild", r.URL.Path)
		assert.Equal(t, testUUID, r.URL.Query().Get("player"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "guild": null}`))
	}))

	_, err := client.FetchGuildByPlayer(context.Background(), testUUID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHypixelFetchGuildMembers(t *testing.T) {
	client := hypixelTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "guild-1", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"guild": {
				"_id": "guild-1",
				"name": "TestGuild",
				"tag": "TG",
				"members": [
					{"uuid": "aaa", "rank": "Guild Master", "joined": 1609459200000},
					{"uuid": "bbb", "rank": "Member", "joined": 1612137600000}
				]
			}
		}`))
	}))

	guild, err := client.FetchGuildByID(context.Background(), "guild-1")
	require.NoError(t, err)

	assert.Equal(t, "TestGuild", guild.Name)
	assert.Equal(t, 2, guild.MemberCount)
	require.Len(t, guild.Members, 2)
	assert.Equal(t, "Guild Master", guild.Members[0].Rank)
	assert.Equal(t, "2021-01-01T00:00:00Z", guild.Members[0].Joined)
}

func TestHypixelFetchStatus(t *testing.T) {
	client := hypixelTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/status", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"session": {"online": true, "gameType": "BEDWARS", "mode": "BEDWARS_EIGHT_ONE"}
		}`))
	}))

	session, err := client.FetchStatus(context.Background(), testUUID)
	require.NoError(t, err)

	assert.True(t, session.Online)
	require.NotNil(t, session.GameType)
	assert.Equal(t, "BEDWARS", *session.GameType)
}
