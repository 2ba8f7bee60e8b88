package origin

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
)

// MojangClient resolves player identities against the Mojang profile and
// session endpoints.
type MojangClient struct {
	api     *resty.Client
	session *resty.Client
	logger  *slog.Logger
}

// NewMojangClient creates a Mojang origin adapter.
func NewMojangClient(cfg *config.ProvidersConfig, logger *slog.Logger) *MojangClient {
	return &MojangClient{
		api:     newClient(&cfg.Mojang, *cfg),
		session: newClient(&cfg.MojangSession, *cfg),
		logger:  logger,
	}
}

type mojangNameResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mojangProfileResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Properties []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"properties"`
}

// texturesProperty is the decoded "textures" profile property.
type texturesProperty struct {
	Textures struct {
		Skin *struct {
			URL string `json:"url"`
		} `json:"SKIN"`
		Cape *struct {
			URL string `json:"url"`
		} `json:"CAPE"`
	} `json:"textures"`
}

// FetchIdentity resolves a search term (username or uuid) to a full identity
// with texture references, tagged SourceOrigin.
func (c *MojangClient) FetchIdentity(ctx context.Context, term string) (*domain.Identity, error) {
	uuid := term
	if !domain.IsUUID(term) {
		var named mojangNameResponse
		resp, err := c.api.R().
			SetContext(ctx).
			SetResult(&named).
			Get("/users/profiles/minecraft/" + term)
		if err := classify(resp, err); err != nil {
			return nil, err
		}
		uuid = named.ID
	} else {
		normalized, err := domain.NormalizeUUID(term)
		if err != nil {
			return nil, err
		}
		uuid = normalized
	}

	var profile mojangProfileResponse
	resp, err := c.session.R().
		SetContext(ctx).
		SetResult(&profile).
		Get("/session/minecraft/profile/" + uuid)
	if err := classify(resp, err); err != nil {
		return nil, err
	}

	identity := &domain.Identity{
		UUID:     profile.ID,
		Username: profile.Name,
		Source:   domain.SourceOrigin,
	}

	for _, prop := range profile.Properties {
		if prop.Name != "textures" {
			continue
		}
		skin, cape, err := decodeTextures(prop.Value)
		if err != nil {
			c.logger.Warn("failed to decode textures property", "uuid", uuid, "error", err)
			continue
		}
		identity.SkinURL = skin
		identity.CapeURL = cape
	}

	return identity, nil
}

// decodeTextures unpacks the base64 textures property into skin/cape URLs.
func decodeTextures(encoded string) (*string, *string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding textures property: %w", err)
	}

	var prop texturesProperty
	if err := json.Unmarshal(raw, &prop); err != nil {
		return nil, nil, fmt.Errorf("parsing textures property: %w", err)
	}

	var skin, cape *string
	if prop.Textures.Skin != nil {
		skin = &prop.Textures.Skin.URL
	}
	if prop.Textures.Cape != nil {
		cape = &prop.Textures.Cape.URL
	}
	return skin, cape, nil
}
