package bannermedia

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the banner endpoints to r. Writes go through requireAdmin.
//
//   - POST /save-banner-media   (admin)
//   - POST /get-banner-media
//   - POST /delete-banner-media (admin)
//   - POST /set-banner-media-active (admin)
func MountRoutes(r chi.Router, h *Handler, requireAdmin func(http.Handler) http.Handler) {
	r.Post("/get-banner-media", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/save-banner-media", h.Save)
		r.Post("/delete-banner-media", h.Delete)
		r.Post("/set-banner-media-active", h.SetActive)
	})
}
