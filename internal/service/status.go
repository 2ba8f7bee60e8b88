package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/playerstats-api/internal/domain"
	"github.com/playerstats-api/internal/origin"
)

// hypixelGameNames maps API game-type codes to display names.
var hypixelGameNames = map[string]string{
	"BEDWARS":        "Bed Wars",
	"SKYWARS":        "SkyWars",
	"SKYBLOCK":       "SkyBlock",
	"DUELS":          "Duels",
	"MURDER_MYSTERY": "Murder Mystery",
	"UHC":            "UHC Champions",
	"ARCADE":         "Arcade",
	"PIT":            "The Hypixel Pit",
	"PROTOTYPE":      "Prototype",
	"HOUSING":        "Housing",
	"TNTGAMES":       "TNT Games",
	"SURVIVAL_GAMES": "Blitz Survival Games",
	"BUILD_BATTLE":   "Build Battle",
	"MCGO":           "Cops and Crims",
	"MAIN":           "Main Lobby",
	"LIMBO":          "Limbo",
}

// hypixelModeNames maps session mode codes to display names where a stable
// mapping exists; unmapped modes pass through untouched.
var hypixelModeNames = map[string]string{
	"LOBBY":             "Lobby",
	"BEDWARS_FOUR_FOUR": "4v4v4v4",
	"BEDWARS_EIGHT_TWO": "Doubles",
	"BEDWARS_EIGHT_ONE": "Solo",
	"SOLO_NORMAL":       "Solo Normal",
	"SOLO_INSANE":       "Solo Insane",
	"TEAMS_NORMAL":      "Teams Normal",
	"TEAMS_INSANE":      "Teams Insane",
	"DYNAMIC":           "Private Island",
	"HUB":               "Hub",
}

// StatusService aggregates live presence across the two independent sources.
type StatusService struct {
	hypixel   *origin.HypixelClient
	wynncraft *origin.WynncraftClient
	logger    *slog.Logger
}

// NewStatusService creates a presence aggregation service.
func NewStatusService(hypixel *origin.HypixelClient, wynncraft *origin.WynncraftClient, logger *slog.Logger) *StatusService {
	return &StatusService{hypixel: hypixel, wynncraft: wynncraft, logger: logger}
}

// GetStatus queries both presence sources in parallel and merges the results.
// A source not knowing the player contributes offline defaults; an upstream
// failure on either source fails the whole aggregation.
func (s *StatusService) GetStatus(ctx context.Context, uuid string) (*domain.PlayerStatus, error) {
	normalized, err := domain.NormalizeUUID(uuid)
	if err != nil {
		return nil, err
	}

	var session *origin.HypixelSession
	var presence *origin.WynncraftPresence

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		result, err := s.hypixel.FetchStatus(gctx, normalized)
		if err != nil {
			return classifyPresence("hypixel", err)
		}
		session = result
		return nil
	})
	g.Go(func() error {
		result, err := s.wynncraft.FetchStatus(gctx, normalized)
		if err != nil {
			return classifyPresence("wynncraft", err)
		}
		presence = result
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeStatus(session, presence), nil
}

// classifyPresence decides whether one source's failure sinks the aggregate.
// Absence is data (the player just isn't known there); upstream failures and
// anything unexpected are fatal.
func classifyPresence(source string, err error) error {
	if domain.IsNotFound(err) {
		return nil
	}
	if domain.IsUpstreamFailure(err) {
		return err
	}
	return fmt.Errorf("%w: %s status: %v", domain.ErrService, source, err)
}

// mergeStatus folds both source results into one record. Either input may be
// nil, contributing only its offline defaults.
func mergeStatus(session *origin.HypixelSession, presence *origin.WynncraftPresence) *domain.PlayerStatus {
	status := &domain.PlayerStatus{}

	if presence != nil {
		status.WynncraftRestricted = presence.Restricted
		if !presence.Restricted {
			status.WynncraftOnline = presence.Online
			status.WynncraftServer = presence.Server
			status.WynncraftCharacter = presence.ActiveCharacter
		}
	}

	if session != nil && session.Online {
		status.HypixelOnline = true
		if session.GameType != nil {
			status.HypixelGameType = displayName(hypixelGameNames, *session.GameType)
		}
		if session.Mode != nil {
			status.HypixelMode = displayName(hypixelModeNames, *session.Mode)
		}
	}

	return status
}

func displayName(names map[string]string, code string) *string {
	if name, ok := names[code]; ok {
		return &name
	}
	return &code
}
