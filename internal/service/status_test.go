package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playerstats-api/internal/domain"
	"github.com/playerstats-api/internal/origin"
)

func strPtr(s string) *string { return &s }

func TestMergeStatusBothAbsent(t *testing.T) {
	status := mergeStatus(nil, nil)

	assert.False(t, status.WynncraftOnline)
	assert.False(t, status.HypixelOnline)
	assert.Nil(t, status.WynncraftServer)
	assert.Nil(t, status.HypixelGameType)
}

func TestMergeStatusWynncraftOnline(t *testing.T) {
	presence := &origin.WynncraftPresence{
		Online:          true,
		Server:          strPtr("WC12"),
		ActiveCharacter: strPtr("char-1"),
	}

	status := mergeStatus(nil, presence)

	assert.True(t, status.WynncraftOnline)
	require.NotNil(t, status.WynncraftServer)
	assert.Equal(t, "WC12", *status.WynncraftServer)
	require.NotNil(t, status.WynncraftCharacter)
	assert.Equal(t, "char-1", *status.WynncraftCharacter)
}

func TestMergeStatusRestrictedHidesPresence(t *testing.T) {
	presence := &origin.WynncraftPresence{
		Online:     true,
		Server:     strPtr("WC12"),
		Restricted: true,
	}

	status := mergeStatus(nil, presence)

	assert.True(t, status.WynncraftRestricted)
	assert.False(t, status.WynncraftOnline)
	assert.Nil(t, status.WynncraftServer)
}

func TestMergeStatusHypixelDisplayNames(t *testing.T) {
	session := &origin.HypixelSession{
		Online:   true,
		GameType: strPtr("BEDWARS"),
		Mode:     strPtr("BEDWARS_EIGHT_ONE"),
	}

	status := mergeStatus(session, nil)

	assert.True(t, status.HypixelOnline)
	require.NotNil(t, status.HypixelGameType)
	assert.Equal(t, "Bed Wars", *status.HypixelGameType)
	require.NotNil(t, status.HypixelMode)
	assert.Equal(t, "Solo", *status.HypixelMode)
}

func TestMergeStatusUnknownCodesPassThrough(t *testing.T) {
	session := &origin.HypixelSession{
		Online:   true,
		GameType: strPtr("SOME_NEW_GAME"),
	}

	status := mergeStatus(session, nil)

	require.NotNil(t, status.HypixelGameType)
	assert.Equal(t, "SOME_NEW_GAME", *status.HypixelGameType)
}

func TestMergeStatusOfflineSessionCarriesNoGame(t *testing.T) {
	session := &origin.HypixelSession{
		Online:   false,
		GameType: strPtr("BEDWARS"),
	}

	status := mergeStatus(session, nil)

	assert.False(t, status.HypixelOnline)
	assert.Nil(t, status.HypixelGameType)
}

func TestClassifyPresenceNotFoundIsData(t *testing.T) {
	assert.NoError(t, classifyPresence("hypixel", domain.ErrNotFound))
}

func TestClassifyPresenceUpstreamFailureIsFatal(t *testing.T) {
	err := classifyPresence("hypixel", fmt.Errorf("%w: status 502", domain.ErrUpstreamError))
	require.Error(t, err)
	assert.True(t, domain.IsUpstreamFailure(err))

	err = classifyPresence("wynncraft", domain.ErrUpstreamTimeout)
	require.Error(t, err)
	assert.True(t, domain.IsUpstreamFailure(err))
}

func TestClassifyPresenceUnexpectedBecomesServiceError(t *testing.T) {
	err := classifyPresence("wynncraft", errors.New("json decode failed"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrService))
}
