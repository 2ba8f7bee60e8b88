package origin

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playerstats-api/internal/domain"
)

func doRequest(t *testing.T, status int) error {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	client := resty.New().SetBaseURL(server.URL)
	resp, err := client.R().SetContext(context.Background()).Get("/")
	return classify(resp, err)
}

func TestClassifyStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"ok", http.StatusOK, nil},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"no content", http.StatusNoContent, domain.ErrNotFound},
		{"forbidden", http.StatusForbidden, domain.ErrForbidden},
		{"rate limited", http.StatusTooManyRequests, domain.ErrUpstreamError},
		{"bad gateway", http.StatusBadGateway, domain.ErrUpstreamError},
		{"client error", http.StatusBadRequest, domain.ErrUpstreamError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := doRequest(t, tt.status)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClassifyTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := resty.New().SetBaseURL(server.URL).SetTimeout(20 * time.Millisecond)
	resp, err := client.R().SetContext(context.Background()).Get("/")

	classified := classify(resp, err)
	require.Error(t, classified)
	assert.ErrorIs(t, classified, domain.ErrUpstreamTimeout)
}

func TestClassifyConnectionRefused(t *testing.T) {
	client := resty.New().SetBaseURL("http://127.0.0.1:1")
	resp, err := client.R().SetContext(context.Background()).Get("/")

	classified := classify(resp, err)
	require.Error(t, classified)
	assert.True(t, domain.IsUpstreamFailure(classified))
}

func TestNetworkLevel(t *testing.T) {
	assert.Equal(t, 1.0, networkLevel(0))
	assert.Equal(t, 1.0, networkLevel(-50))

	// 10000 exp: (sqrt(2*10000+30625)/50)-2.5
	assert.InDelta(t, 2.0, networkLevel(10000), 1e-9)
}

func TestFormatEpochMillis(t *testing.T) {
	assert.Equal(t, "", formatEpochMillis(0))
	assert.Equal(t, "2021-01-01T00:00:00Z", formatEpochMillis(1609459200000))
}

func TestDecodeTextures(t *testing.T) {
	payload := `{"textures":{"SKIN":{"url":"https://textures.minecraft.net/texture/abc"},"CAPE":{"url":"https://textures.minecraft.net/texture/def"}}}`
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))

	skin, cape, err := decodeTextures(encoded)
	require.NoError(t, err)
	require.NotNil(t, skin)
	require.NotNil(t, cape)
	assert.Equal(t, "https://textures.minecraft.net/texture/abc", *skin)
	assert.Equal(t, "https://textures.minecraft.net/texture/def", *cape)
}

func TestDecodeTexturesNoCape(t *testing.T) {
	payload := `{"textures":{"SKIN":{"url":"https://textures.minecraft.net/texture/abc"}}}`
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))

	skin, cape, err := decodeTextures(encoded)
	require.NoError(t, err)
	require.NotNil(t, skin)
	assert.Nil(t, cape)
}

func TestDecodeTexturesInvalidBase64(t *testing.T) {
	_, _, err := decodeTextures("%%%not-base64%%%")
	assert.Error(t, err)
}
