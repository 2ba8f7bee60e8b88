package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/playerstats-api/internal/domain"
	"github.com/playerstats-api/internal/postgres"
	"github.com/playerstats-api/internal/service"
	"github.com/playerstats-api/internal/tracker"
	"github.com/playerstats-api/internal/worker"
)

// Handler provides HTTP handlers for the player stats API
type Handler struct {
	identity  *service.IdentityService
	hypixel   *service.HypixelService
	wynncraft *service.WynncraftService
	status    *service.StatusService
	metrics   *service.MetricsService
	repo      *postgres.Repository
	hub       *tracker.Hub
	queue     *worker.Queue
	logger    *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identity *service.IdentityService,
	hypixel *service.HypixelService,
	wynncraft *service.WynncraftService,
	status *service.StatusService,
	metrics *service.MetricsService,
	repo *postgres.Repository,
	hub *tracker.Hub,
	queue *worker.Queue,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		identity:  identity,
		hypixel:   hypixel,
		wynncraft: wynncraft,
		status:    status,
		metrics:   metrics,
		repo:      repo,
		hub:       hub,
		queue:     queue,
		logger:    logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.telemetryMiddleware)

		r.Route("/players", func(r chi.Router) {
			r.Get("/mojang/{identifier}", h.GetMojangProfile)
			r.Get("/mojang/{identifier}/names", h.GetUsernameHistory)
			r.Get("/hypixel/{uuid}", h.GetHypixelStats)
			r.Get("/wynncraft/{uuid}", h.GetWynncraftStats)
			r.Get("/status/{uuid}", h.GetPlayerStatus)
		})

		r.Get("/hypixel/guilds/{guildID}", h.GetHypixelGuild)
		r.Get("/wynncraft/guilds/{prefix}", h.GetWynncraftGuild)

		r.Get("/metrics/{metricKey}/distribution/{uuid}", h.GetMetricDistribution)

		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// telemetryMiddleware records one event per API request, off the response
// path. Route patterns rather than raw paths keep cardinality bounded.
func (h *Handler) telemetryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		event := postgres.TelemetryEvent{
			Path:       chi.RouteContext(r.Context()).RoutePattern(),
			Provider:   providerForPath(r.URL.Path),
			StatusCode: ww.Status(),
			LatencyMS:  int(time.Since(start).Milliseconds()),
		}
		h.queue.Submit(worker.Task{
			Name: "record-telemetry",
			Run: func(ctx context.Context) error {
				return h.repo.RecordTelemetryEvent(ctx, event)
			},
		})
	})
}

func providerForPath(path string) string {
	switch {
	case strings.Contains(path, "/mojang/"):
		return "mojang"
	case strings.Contains(path, "/hypixel"):
		return "hypixel"
	case strings.Contains(path, "/wynncraft"):
		return "wynncraft"
	case strings.Contains(path, "/status/"):
		return "status"
	case strings.Contains(path, "/metrics/"):
		return "metrics"
	default:
		return "other"
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError maps a classified domain error to its status code. Unclassified
// errors are logged and masked as internal.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrUnprocessable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrUpstreamError):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrService):
	default:
		h.logger.Error("unclassified handler error", "error", err)
		err = domain.ErrService
	}

	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tracker.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetMojangProfile resolves a username or uuid to the player's identity.
// allow_stale=true accepts identity records past the freshness window.
func (h *Handler) GetMojangProfile(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	allowStale := r.URL.Query().Get("allow_stale") == "true"

	identity, err := h.identity.Lookup(r.Context(), identifier, allowStale)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSuccess(w, identity)
}

// GetUsernameHistory returns the recorded username series for a player
func (h *Handler) GetUsernameHistory(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	entries, err := h.identity.History(r.Context(), identifier)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSuccess(w, entries)
}

// GetHypixelStats returns a player's Hypixel snapshot with guild attached
func (h *Handler) GetHypixelStats(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	data, err := h.hypixel.GetFullStats(r.Context(), uuid)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSuccess(w, data)
}

// GetHypixelGuild returns one page of a guild roster with identities resolved
func (h *Handler) GetHypixelGuild(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	roster, err := h.hypixel.GetGuildRoster(r.Context(), guildID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSuccess(w, roster)
}

// GetWynncraftStats returns a player's Wynncraft summary
func (h *Handler) GetWynncraftStats(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	player, err := h.wynncraft.GetPlayer(r.Context(), uuid)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSuccess(w, player)
}

// GetWynncraftGuild returns a Wynncraft guild by prefix
func (h *Handler) GetWynncraftGuild(w http.ResponseWriter, r *http.Request) {
	prefix := chi.URLParam(r, "prefix")

	guild, err := h.wynncraft.GetGuild(r.Context(), prefix)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSuccess(w, guild)
}

// GetPlayerStatus returns merged live presence for a player
func (h *Handler) GetPlayerStatus(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")

	status, err := h.status.GetStatus(r.Context(), uuid)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSuccess(w, status)
}

// GetMetricDistribution returns the population histogram for one metric
// centered on one player
func (h *Handler) GetMetricDistribution(w http.ResponseWriter, r *http.Request) {
	metricKey := chi.URLParam(r, "metricKey")
	uuid := chi.URLParam(r, "uuid")

	histogram, err := h.metrics.Distribution(r.Context(), metricKey, uuid)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeSuccess(w, histogram)
}
