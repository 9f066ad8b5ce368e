package blogs

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the blog endpoints to r.
//
//   - POST   /load-all-blogs
//   - GET    /load-single-blogs/{id}
//   - GET    /search-blogs/{query}
//   - GET    /blogs-page/{page}
//   - POST   /create-blogs       (admin)
//   - PUT    /update-blogs/{id}  (admin)
//   - DELETE /delete-blogs/{id}  (admin)
func MountRoutes(r chi.Router, h *Handler, requireAdmin func(http.Handler) http.Handler) {
	r.Post("/load-all-blogs", h.LoadAll)
	r.Get("/load-single-blogs/{id}", h.LoadSingle)
	r.Get("/search-blogs/{query}", h.Search)
	r.Get("/blogs-page/{page}", h.Page)

	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Post("/create-blogs", h.Create)
		r.Put("/update-blogs/{id}", h.Update)
		r.Delete("/delete-blogs/{id}", h.Delete)
	})
}
