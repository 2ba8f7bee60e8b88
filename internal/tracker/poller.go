package tracker

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/playerstats-api/internal/config"
	"github.com/playerstats-api/internal/domain"
)

// StatusFetcher aggregates presence for one player.
type StatusFetcher interface {
	GetStatus(ctx context.Context, uuid string) (*domain.PlayerStatus, error)
}

// Poller periodically fetches presence for every tracked player and pushes
// changes through the hub. Unchanged statuses are not rebroadcast.
type Poller struct {
	hub     *Hub
	status  StatusFetcher
	config  *config.TrackerConfig
	logger  *slog.Logger
	last    map[string]domain.PlayerStatus
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewPoller creates a presence poller.
func NewPoller(hub *Hub, status StatusFetcher, cfg *config.TrackerConfig, logger *slog.Logger) *Poller {
	return &Poller{
		hub:    hub,
		status: status,
		config: cfg,
		logger: logger,
		last:   make(map[string]domain.PlayerStatus),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the polling loop
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	p.logger.Info("status poller started", "interval", p.config.PollInterval)

	go p.run(ctx)
	return nil
}

// Stop stops the polling loop
func (p *Poller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)
	<-p.doneCh

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("status poller stopped")
	return nil
}

// run is the main polling loop
func (p *Poller) run(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollAll(ctx)
		}
	}
}

// pollAll fetches presence for every currently tracked player.
func (p *Poller) pollAll(ctx context.Context) {
	tracked := p.hub.TrackedPlayers()
	if len(tracked) == 0 {
		// Nothing watched; drop the memory of past statuses so a
		// resubscription always receives an initial update.
		p.last = make(map[string]domain.PlayerStatus)
		return
	}

	seen := make(map[string]bool, len(tracked))
	for _, uuid := range tracked {
		seen[uuid] = true

		status, err := p.status.GetStatus(ctx, uuid)
		if err != nil {
			p.logger.Warn("status poll failed", "uuid", uuid, "error", err)
			continue
		}

		if prev, ok := p.last[uuid]; ok && reflect.DeepEqual(prev, *status) {
			continue
		}
		p.last[uuid] = *status
		p.hub.BroadcastStatus(uuid, status)
	}

	for uuid := range p.last {
		if !seen[uuid] {
			delete(p.last, uuid)
		}
	}
}
