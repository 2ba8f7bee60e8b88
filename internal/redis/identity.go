package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/playerstats-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// identityPayload is the persisted shape of an Identity. Provenance is never
// stored; reads re-attach SourceCache.
type identityPayload struct {
	UUID     string  `json:"uuid"`
	Username string  `json:"username"`
	SkinURL  *string `json:"skin_url,omitempty"`
	CapeURL  *string `json:"cape_url,omitempty"`
}

func identityFromPayload(p identityPayload) *domain.Identity {
	return &domain.Identity{
		UUID:     p.UUID,
		Username: p.Username,
		SkinURL:  p.SkinURL,
		CapeURL:  p.CapeURL,
		Source:   domain.SourceCache,
	}
}

// GetIdentity resolves a search term (username or uuid) against the identity
// cache. Returns nil on any miss: unknown name, absent record, corrupt
// payload, or a record past the soft TTL when allowStale is false.
func (c *Cache) GetIdentity(ctx context.Context, term string, allowStale bool) (*domain.Identity, error) {
	uuid := term
	if !domain.IsUUID(term) {
		resolved, err := c.client.Get(ctx, usernameKeyPrefix+strings.ToLower(term)).Result()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolving username index: %w", err)
		}
		uuid = resolved
	} else {
		normalized, err := domain.NormalizeUUID(term)
		if err != nil {
			return nil, nil
		}
		uuid = normalized
	}

	env, err := getEnvelope[identityPayload](ctx, c, identityKeyPrefix+uuid)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, nil
	}

	if !allowStale && !c.fresh(env.CachedAt, c.cfg.IdentitySoftTTL) {
		return nil, nil
	}

	return identityFromPayload(env.Data), nil
}

// SetIdentity writes the primary record under the hard TTL and the lowercased
// username index under the soft TTL. Usernames rotate, so the index entry must
// expire before the record it points to or it becomes a misleading redirect.
func (c *Cache) SetIdentity(ctx context.Context, identity *domain.Identity) error {
	payload, err := marshalEnvelope(identityPayload{
		UUID:     identity.UUID,
		Username: identity.Username,
		SkinURL:  identity.SkinURL,
		CapeURL:  identity.CapeURL,
	})
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, usernameKeyPrefix+strings.ToLower(identity.Username), identity.UUID, c.cfg.IdentitySoftTTL)
	pipe.Set(ctx, identityKeyPrefix+identity.UUID, payload, c.cfg.IdentityHardTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("writing identity cache: %w", err)
	}
	return nil
}

// BulkGetIdentities multi-gets identity records by uuid, ignoring the soft TTL
// entirely: any stored record counts. Used by roster views where staleness is
// an acceptable trade against N origin calls. Every input uuid lands in
// exactly one of the returned lists.
func (c *Cache) BulkGetIdentities(ctx context.Context, uuids []string) ([]domain.Identity, []string, error) {
	if len(uuids) == 0 {
		return nil, nil, nil
	}

	normalized := make([]string, 0, len(uuids))
	keys := make([]string, 0, len(uuids))
	for _, u := range uuids {
		n, err := domain.NormalizeUUID(u)
		if err != nil {
			n = u
		}
		normalized = append(normalized, n)
		keys = append(keys, identityKeyPrefix+n)
	}

	raw, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("bulk reading identities: %w", err)
	}

	resolved, unresolved := partitionBulk(normalized, raw)
	return resolved, unresolved, nil
}

// partitionBulk splits MGet results into resolved identities and the uuids
// that missed or failed to decode.
func partitionBulk(uuids []string, raw []interface{}) ([]domain.Identity, []string) {
	var resolved []domain.Identity
	var unresolved []string

	for i, value := range raw {
		s, ok := value.(string)
		if !ok || s == "" {
			unresolved = append(unresolved, uuids[i])
			continue
		}

		env := decodeEnvelope[identityPayload](s)
		if env == nil || env.Data.UUID == "" {
			unresolved = append(unresolved, uuids[i])
			continue
		}

		resolved = append(resolved, *identityFromPayload(env.Data))
	}
	return resolved, unresolved
}
