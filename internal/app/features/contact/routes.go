package contact

import (
	"github.com/go-chi/chi/v5"
	"github.com/vicarhk/vicarapi/internal/app/system/throttle"
)

// MountRoutes attaches POST /contact-us-enquiry-form behind limiter.
func MountRoutes(r chi.Router, h *Handler, limiter *throttle.Limiter) {
	r.With(limiter.Middleware).Post("/contact-us-enquiry-form", h.Submit)
}
