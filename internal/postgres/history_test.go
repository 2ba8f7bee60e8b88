package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureHash(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "standard https url",
			url:  "https://textures.minecraft.net/texture/a1b2c3d4e5f6",
			want: "a1b2c3d4e5f6",
		},
		{
			name: "http scheme",
			url:  "http://textures.minecraft.net/texture/deadbeef",
			want: "deadbeef",
		},
		{
			name: "unknown host",
			url:  "https://example.com/texture/a1b2c3",
			want: "",
		},
		{
			name: "empty trailing segment",
			url:  "https://textures.minecraft.net/texture/",
			want: "",
		},
		{
			name: "extra path segments rejected",
			url:  "https://textures.minecraft.net/texture/abc/def",
			want: "",
		},
		{
			name: "empty url",
			url:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textureHash(tt.url))
		})
	}
}

// observeUsername mirrors reconcileUsername's row mutations against an
// in-memory ledger: the latest row is the last element, a bump rewrites only
// that element, anything else appends.
func observeUsername(rows []usernameRow, observed string) []usernameRow {
	var latest *usernameRow
	if len(rows) > 0 {
		latest = &rows[len(rows)-1]
	}
	if bumpCurrentRow(latest, observed) {
		latest.Username = observed
		return rows
	}
	return append(rows, usernameRow{ID: int64(len(rows) + 1), Username: observed})
}

func TestUsernameReconcileTransitions(t *testing.T) {
	var rows []usernameRow

	// First observation opens the series.
	rows = observeUsername(rows, "alice")
	require.Len(t, rows, 1)

	// Re-observing the same name bumps in place, no new row.
	rows = observeUsername(rows, "alice")
	require.Len(t, rows, 1)

	// A rename appends.
	rows = observeUsername(rows, "Bob")
	require.Len(t, rows, 2)

	// Renaming back to an earlier name appends again; the closed row from the
	// first period is never reopened.
	rows = observeUsername(rows, "alice")
	require.Len(t, rows, 3)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "Bob", rows[1].Username)
	assert.Equal(t, "alice", rows[2].Username)

	// A case-variant of the current name bumps only the latest row and keeps
	// the newest casing; the older "alice" row is untouched.
	rows = observeUsername(rows, "Alice")
	require.Len(t, rows, 3)
	assert.Equal(t, "alice", rows[0].Username)
	assert.Equal(t, "Alice", rows[2].Username)
}

func TestBumpCurrentRowDecision(t *testing.T) {
	assert.False(t, bumpCurrentRow(nil, "alice"))
	assert.True(t, bumpCurrentRow(&usernameRow{ID: 1, Username: "alice"}, "ALICE"))
	assert.False(t, bumpCurrentRow(&usernameRow{ID: 1, Username: "alice"}, "bob"))
}
