package media

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the media library endpoints to r.
//
//   - POST   /upload-media          (admin)
//   - POST   /upload-multiple-media (admin)
//   - GET    /media
//   - DELETE /media/{filename}      (admin)
func MountRoutes(r chi.Router, h *Handler, requireAdmin func(http.Handler) http.Handler) {
	r.Get("/media", h.List)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/upload-media", h.Upload)
		r.Post("/upload-multiple-media", h.UploadMultiple)
		r.Delete("/media/{filename}", h.Delete)
	})
}
