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

const testUUID = "069a79f444e94726a5befca90e38aaf5"

func wynncraftTestClient(t *testing.T, handler http.Handler) *WynncraftClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.ProvidersConfig{
		Wynncraft: config.ProviderConfig{BaseURL: server.URL, Token: "test-token"},
		Timeout:   5 * time.Second,
	}
	return NewWynncraftClient(cfg, slog.Default())
}

func TestWynncraftFetchPlayerUnrestricted(t *testing.T) {
	client := wynncraftTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/player/069a79f4-44e9-4726-a5be-fca90e38aaf5", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("fullResult"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"username": "Notch",
			"uuid": "069a79f4-44e9-4726-a5be-fca90e38aaf5",
			"online": true,
			"server": "WC7",
			"rank": "Player",
			"supportRank": "vip",
			"firstJoin": "2015-01-01T00:00:00.000Z",
			"lastJoin": "2024-06-01T00:00:00.000Z",
			"playtime": 123.5,
			"guild": {"name": "TestGuild", "prefix": "TG"},
			"globalData": {
				"wars": 10,
				"mobsKilled": 5000,
				"chestsFound": 300,
				"dungeons": {"total": 42},
				"raids": {"total": 7}
			},
			"restrictions": {"mainAccess": false, "characterDataAccess": false, "onlineStatus": false}
		}`))
	}))

	player, err := client.FetchPlayer(context.Background(), testUUID)
	require.NoError(t, err)

	assert.Equal(t, "Notch", player.Username)
	assert.Equal(t, domain.SourceOrigin, player.Source)
	assert.Equal(t, "vip", player.Rank)
	require.NotNil(t, player.FirstLogin)
	require.NotNil(t, player.LastLogin)
	require.NotNil(t, player.GuildName)
	assert.Equal(t, "TestGuild", *player.GuildName)

	require.NotNil(t, player.Stats)
	assert.Equal(t, 10, player.Stats.Wars)
	assert.Equal(t, 42, player.Stats.DungeonsCompleted)
	assert.Equal(t, 7, player.Stats.RaidsCompleted)
	assert.InDelta(t, 123.5, player.Stats.PlaytimeHours, 1e-9)
}

func TestWynncraftFetchPlayerMainAccessRestricted(t *testing.T) {
	client := wynncraftTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"username": "Hidden",
			"uuid": "069a79f4-44e9-4726-a5be-fca90e38aaf5",
			"rank": "Player",
			"firstJoin": "2015-01-01T00:00:00.000Z",
			"lastJoin": "2024-06-01T00:00:00.000Z",
			"playtime": 50,
			"globalData": {"wars": 1, "mobsKilled": 2, "chestsFound": 3, "dungeons": {"total": 4}, "raids": {"total": 5}},
			"restrictions": {"mainAccess": true, "characterDataAccess": false, "onlineStatus": false}
		}`))
	}))

	player, err := client.FetchPlayer(context.Background(), testUUID)
	require.NoError(t, err)

	// Main-access restriction hides firstJoin and the stat counters but not
	// the last join timestamp.
	assert.Nil(t, player.FirstLogin)
	assert.NotNil(t, player.LastLogin)
	assert.Nil(t, player.Stats)
	assert.True(t, player.Restrictions.MainAccess)
}

func TestWynncraftFetchPlayerOnlineStatusRestricted(t *testing.T) {
	client := wynncraftTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"username": "Private",
			"uuid": "069a79f4-44e9-4726-a5be-fca90e38aaf5",
			"rank": "Player",
			"firstJoin": "2015-01-01T00:00:00.000Z",
			"lastJoin": "2024-06-01T00:00:00.000Z",
			"restrictions": {"mainAccess": false, "characterDataAccess": false, "onlineStatus": true}
		}`))
	}))

	player, err := client.FetchPlayer(context.Background(), testUUID)
	require.NoError(t, err)

	assert.Nil(t, player.FirstLogin)
	assert.Nil(t, player.LastLogin)
	assert.True(t, player.Restrictions.OnlineStatus)
}

func TestWynncraftFetchPlayerRejectsBadUUID(t *testing.T) {
	client := wynncraftTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an invalid uuid")
	}))

	_, err := client.FetchPlayer(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrUnprocessable)
}

func TestWynncraftFetchGuildFlattensRanks(t *testing.T) {
	client := wynncraftTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/guild/prefix/TG", r.URL.Path)
		assert.Equal(t, "username", r.URL.Query().Get("identifier"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"uuid": "guild-uuid",
			"name": "TestGuild",
			"prefix": "TG",
			"level": 60,
			"members": {
				"total": 3,
				"owner": {
					"Alpha": {"uuid": "aaa", "online": true, "joined": "2020-01-01T00:00:00.000Z"}
				},
				"recruit": {
					"Bravo": {"uuid": "bbb", "online": false, "joined": "2021-01-01T00:00:00.000Z"},
					"Carol": {"uuid": "ccc", "online": false, "joined": "2022-01-01T00:00:00.000Z"}
				}
			}
		}`))
	}))

	guild, err := client.FetchGuild(context.Background(), "TG")
	require.NoError(t, err)

	assert.Equal(t, "TestGuild", guild.Name)
	assert.Equal(t, "TG", guild.Tag)
	assert.Equal(t, 60, guild.Level)
	assert.Equal(t, 3, guild.MemberCount)
	assert.Equal(t, domain.SourceOrigin, guild.Source)
	require.Len(t, guild.Members, 3)

	ranks := map[string]string{}
	for _, m := range guild.Members {
		ranks[m.UUID] = m.Rank
	}
	assert.Equal(t, "owner", ranks["aaa"])
	assert.Equal(t, "recruit", ranks["bbb"])
	assert.Equal(t, "recruit", ranks["ccc"])
}

func TestWynncraftFetchGuildNotFound(t *testing.T) {
	client := wynncraftTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.FetchGuild(context.Background(), "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWynncraftFetchStatus(t *testing.T) {
	client := wynncraftTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"username": "Notch",
			"uuid": "069a79f4-44e9-4726-a5be-fca90e38aaf5",
			"online": true,
			"server": "WC3",
			"activeCharacter": "char-9",
			"rank": "Player",
			"restrictions": {"mainAccess": false, "characterDataAccess": false, "onlineStatus": false}
		}`))
	}))

	presence, err := client.FetchStatus(context.Background(), testUUID)
	require.NoError(t, err)

	assert.True(t, presence.Online)
	require.NotNil(t, presence.Server)
	assert.Equal(t, "WC3", *presence.Server)
	require.NotNil(t, presence.ActiveCharacter)
	assert.Equal(t, "char-9", *presence.ActiveCharacter)
	assert.False(t, presence.Restricted)
}
