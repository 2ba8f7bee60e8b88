package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID("069a79f4-44e9-4726-a5be-fca90e38aaf5"))
	assert.True(t, IsUUID("069a79f444e94726a5befca90e38aaf5"))
	assert.False(t, IsUUID("Notch"))
	assert.False(t, IsUUID(""))
}

func TestNormalizeUUID(t *testing.T) {
	normalized, err := NormalizeUUID("069A79F4-44E9-4726-A5BE-FCA90E38AAF5")
	require.NoError(t, err)
	assert.Equal(t, "069a79f444e94726a5befca90e38aaf5", normalized)

	normalized, err = NormalizeUUID("069a79f444e94726a5befca90e38aaf5")
	require.NoError(t, err)
	assert.Equal(t, "069a79f444e94726a5befca90e38aaf5", normalized)

	_, err = NormalizeUUID("not-a-uuid")
	assert.ErrorIs(t, err, ErrUnprocessable)
}

func TestDashUUID(t *testing.T) {
	dashed, err := DashUUID("069a79f444e94726a5befca90e38aaf5")
	require.NoError(t, err)
	assert.Equal(t, "069a79f4-44e9-4726-a5be-fca90e38aaf5", dashed)

	_, err = DashUUID("xyz")
	assert.ErrorIs(t, err, ErrUnprocessable)
}
