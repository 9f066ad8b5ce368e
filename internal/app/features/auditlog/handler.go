// Package auditlog serves the admin-only audit trail of sign-ins and
// account changes.
package auditlog

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	"github.com/vicarhk/vicarapi/internal/app/store/audit"
	"github.com/vicarhk/vicarapi/internal/app/system/jsonutil"
	"github.com/vicarhk/vicarapi/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler provides the audit log listing.
type Handler struct {
	store  *audit.Store
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new audit log Handler.
func NewHandler(store *audit.Store, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{store: store, errLog: errLog, logger: logger}
}

// MountRoutes attaches GET /audit-events behind requireAdmin.
func MountRoutes(r chi.Router, h *Handler, requireAdmin func(http.Handler) http.Handler) {
	r.With(requireAdmin).Get("/audit-events", h.List)
}

// List handles GET /audit-events.
//
// Query parameters: category, eventType, username, since (RFC 3339) and
// limit (1 to 500, default 100). Events come back newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.QueryFilter{
		Category:  q.Get("category"),
		EventType: q.Get("eventType"),
		Username:  q.Get("username"),
	}

	switch f.Category {
	case "", audit.CategoryAuth, audit.CategoryAdmin:
	default:
		jsonutil.BadRequest(w, "Invalid category", "Category must be auth or admin")
		return
	}

	if s := q.Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			jsonutil.BadRequest(w, "Invalid since", "since must be an RFC 3339 timestamp")
			return
		}
		f.Since = t
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 1 || n > audit.MaxLimit {
			jsonutil.BadRequest(w, "Invalid limit", "limit must be between 1 and "+strconv.Itoa(audit.MaxLimit))
			return
		}
		f.Limit = n
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list audit events")
	defer cancel()

	events, err := h.store.Query(ctx, f)
	if err != nil {
		h.errLog.Log(r, "failed to list audit events", err)
		jsonutil.InternalError(w, "Failed to load audit events")
		return
	}

	jsonutil.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(events),
		"data":    events,
	})
}
