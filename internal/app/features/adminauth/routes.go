package adminauth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the account endpoints to r.
//
//   - POST /adminLogin
//   - POST /createAccount (admin)
func MountRoutes(r chi.Router, h *Handler, requireAdmin func(http.Handler) http.Handler) {
	r.Post("/adminLogin", h.Login)
	r.With(requireAdmin).Post("/createAccount", h.CreateAccount)
}
