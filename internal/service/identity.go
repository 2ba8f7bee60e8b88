// Package service implements the read-through resolution flows on top of the
// cache, origin and repository layers.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
	"github.com/playerstats-api/internal/origin"
	"github.com/playerstats-api/internal/postgres"
	"github.com/playerstats-api/internal/redis"
	"github.com/playerstats-api/internal/worker"
)

// IdentityService resolves player identities with a cache-first strategy and
// feeds every origin-sourced observation into the history reconciler.
type IdentityService struct {
	cache          *redis.Cache
	mojang         *origin.MojangClient
	repo           *postgres.Repository
	queue          *worker.Queue
	resolveWorkers int
	logger         *slog.Logger
}

// NewIdentityService creates an identity service. The guild config bounds how
// many concurrent origin calls a bulk resolution may issue.
func NewIdentityService(
	cache *redis.Cache,
	mojang *origin.MojangClient,
	repo *postgres.Repository,
	queue *worker.Queue,
	cfg *config.GuildConfig,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		cache:          cache,
		mojang:         mojang,
		repo:           repo,
		queue:          queue,
		resolveWorkers: cfg.ResolveWorkers,
		logger:         logger,
	}
}

// Lookup resolves a username or uuid to a full identity. Cache read failures
// degrade to a miss rather than failing the request; the origin stays the
// fallback of last resort.
func (s *IdentityService) Lookup(ctx context.Context, term string, allowStale bool) (*domain.Identity, error) {
	cached, err := s.cache.GetIdentity(ctx, term, allowStale)
	if err != nil {
		s.logger.Warn("identity cache read failed", "term", term, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	identity, err := s.mojang.FetchIdentity(ctx, term)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetIdentity(ctx, identity); err != nil {
		s.logger.Warn("identity cache write failed", "uuid", identity.UUID, "error", err)
	}

	s.enqueueHistory(*identity)
	return identity, nil
}

// BulkLookup resolves a set of uuids roster-style: any stored cache record
// counts regardless of age, and only the remainder goes to the origin, with a
// bounded number of concurrent calls. Uuids that fail origin resolution are
// omitted, not fatal.
func (s *IdentityService) BulkLookup(ctx context.Context, uuids []string) ([]domain.Identity, error) {
	resolved, unresolved, err := s.cache.BulkGetIdentities(ctx, uuids)
	if err != nil {
		s.logger.Warn("bulk identity cache read failed", "count", len(uuids), "error", err)
		unresolved = uuids
		resolved = nil
	}

	if len(unresolved) == 0 {
		return resolved, nil
	}

	fetched := make([]*domain.Identity, len(unresolved))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.resolveWorkers)
	for i, uuid := range unresolved {
		i, uuid := i, uuid
		g.Go(func() error {
			identity, err := s.mojang.FetchIdentity(gctx, uuid)
			if err != nil {
				s.logger.Warn("skipping unresolvable roster member", "uuid", uuid, "error", err)
				return nil
			}
			if err := s.cache.SetIdentity(gctx, identity); err != nil {
				s.logger.Warn("identity cache write failed", "uuid", identity.UUID, "error", err)
			}
			s.enqueueHistory(*identity)
			fetched[i] = identity
			return nil
		})
	}
	g.Wait()

	for _, identity := range fetched {
		if identity != nil {
			resolved = append(resolved, *identity)
		}
	}
	return resolved, nil
}

// History returns the recorded username series for a player.
func (s *IdentityService) History(ctx context.Context, uuid string) ([]postgres.UsernameEntry, error) {
	normalized, err := domain.NormalizeUUID(uuid)
	if err != nil {
		return nil, err
	}
	return s.repo.UsernameHistory(ctx, normalized)
}

// enqueueHistory defers reconciliation of a fresh origin observation. Cache
// hits never reach the reconciler: they carry nothing new by definition.
func (s *IdentityService) enqueueHistory(identity domain.Identity) {
	if identity.Source != domain.SourceOrigin {
		return
	}
	s.queue.Submit(worker.Task{
		Name: "record-identity",
		Run: func(ctx context.Context) error {
			return s.repo.RecordIdentity(ctx, identity)
		},
	})
}
