package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Source marks where a record was resolved from. It is attached on the way
// out and never persisted: cached payloads always strip it, reads from cache
// always re-attach SourceCache.
type Source string

const (
	SourceCache  Source = "cache"
	SourceOrigin Source = "origin"
)

// Identity is the canonical Mojang profile for a player. UUID is the stable
// primary key; Username is a point-in-time observation and rotates over time.
type Identity struct {
	UUID     string  `json:"uuid"`
	Username string  `json:"username"`
	SkinURL  *string `json:"skin_url,omitempty"`
	CapeURL  *string `json:"cape_url,omitempty"`
	Source   Source  `json:"source"`
}

// IsUUID reports whether term parses as a Mojang-style uuid, dashed or not.
func IsUUID(term string) bool {
	_, err := uuid.Parse(term)
	return err == nil
}

// NormalizeUUID returns the canonical undashed lowercase form.
func NormalizeUUID(term string) (string, error) {
	u, err := uuid.Parse(term)
	if err != nil {
		return "", ErrUnprocessable
	}
	return strings.ReplaceAll(u.String(), "-", ""), nil
}

// DashUUID returns the dashed form some origin APIs require.
func DashUUID(term string) (string, error) {
	u, err := uuid.Parse(term)
	if err != nil {
		return "", ErrUnprocessable
	}
	return u.String(), nil
}
