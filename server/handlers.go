package server

import (
	"net/http"
	"time"

	"orpheus/cache"
	"orpheus/config"
	"orpheus/core/event"
	"orpheus/core/ledger"
	"orpheus/core/registry"
	"orpheus/core/session"
	"orpheus/core/tracks"
	"orpheus/repository"
)

// APIHandler bundles the core components behind the HTTP surface.
type APIHandler struct {
	cfg         *config.Config
	registry    *registry.Registry
	ledger      *ledger.Ledger
	tracks      *tracks.Store
	sessions    *session.Coordinator
	bus         *event.Bus
	users       repository.UserRepository
	presenceTTL time.Duration
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	cfg *config.Config,
	reg *registry.Registry,
	led *ledger.Ledger,
	store *tracks.Store,
	sessions *session.Coordinator,
	bus *event.Bus,
	users repository.UserRepository,
) *APIHandler {
	return &APIHandler{
		cfg:         cfg,
		registry:    reg,
		ledger:      led,
		tracks:      store,
		sessions:    sessions,
		bus:         bus,
		users:       users,
		presenceTTL: cfg.PresenceTTL,
	}
}

// NewCoreComponents wires registry, ledger, track store, sessions and bus
// together with the given repositories. Repositories may be nil to run
// purely in memory.
func NewCoreComponents(
	cfg *config.Config,
	projectRepo repository.ProjectRepository,
	trackRepo repository.TrackRepository,
	presence *cache.PresenceCache,
) (*registry.Registry, *ledger.Ledger, *tracks.Store, *session.Coordinator, *event.Bus) {
	bus := event.NewBus()
	reg := registry.NewRegistry(projectRepo, bus, cfg.InvitePolicy)
	led := ledger.NewLedger(reg, projectRepo, bus)
	store := tracks.NewStore(reg, trackRepo, bus)
	sessions := session.NewCoordinator(store, presence, cfg.PresenceTTL)
	return reg, led, store, sessions, bus
}

// HealthHandler reports service liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "orpheus-ledger",
		"timestamp": time.Now().UTC(),
	})
}
