// internal/app/features/health/health.go
package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

var errNoDatabase = errors.New("database client not configured")

// Pinger is satisfied by *mongo.Client.
type Pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// Handler provides the welcome and health check endpoints.
type Handler struct {
	db      Pinger
	started time.Time
	logger  *zap.Logger
	now     func() time.Time
}

// NewHandler creates a new health check Handler. The process start time is
// taken as now and reported as uptime.
func NewHandler(mongoClient *mongo.Client, logger *zap.Logger) *Handler {
	var p Pinger
	if mongoClient != nil {
		p = mongoClient
	}
	return newHandler(p, logger)
}

func newHandler(p Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		db:      p,
		started: time.Now(),
		logger:  logger,
		now:     time.Now,
	}
}

// Response represents the health check response.
type Response struct {
	Status    string            `json:"status"`
	Uptime    float64           `json:"uptime"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds the welcome document and the probe aliases
// (/ready, /readyz, /livez) directly on the root router.
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/", h.Welcome)
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

// Welcome reports that the server is running.
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"message":   "Welcome to ViCAR Premium Mobility Backend API",
		"status":    "Server is running",
		"timestamp": h.timestamp(),
	})
}

// Check performs a full health check including database connectivity.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:    "ok",
		Uptime:    h.now().Sub(h.started).Seconds(),
		Timestamp: h.timestamp(),
		Services:  make(map[string]string),
	}

	if err := h.ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Services["mongodb"] = "unavailable"
		h.logger.Warn("health check: mongodb ping failed", zap.Error(err))
	} else {
		resp.Services["mongodb"] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	jsonutil.JSON(w, status, resp)
}

// Ready checks if the service is ready to accept requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		jsonutil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	jsonutil.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Live checks if the process is alive. It never touches the database.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	jsonutil.JSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *Handler) ping(parent context.Context) error {
	if h.db == nil {
		return errNoDatabase
	}
	ctx, cancel := context.WithTimeout(parent, timeouts.Ping())
	defer cancel()
	return h.db.Ping(ctx, readpref.Primary())
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339Nano)
}
