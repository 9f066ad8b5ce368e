package editor

import "github.com/go-chi/chi/v5"

// MountRoutes attaches the editor endpoints to r.
//
//   - POST /editor/parse
//   - POST /editor/render
//   - POST /editor/apply
func MountRoutes(r chi.Router, h *Handler) {
	r.Route("/editor", func(r chi.Router) {
		r.Post("/parse", h.Parse)
		r.Post("/render", h.Render)
		r.Post("/apply", h.Apply)
	})
}
