package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the widget API and, when admin is non-nil, the admin API
// under /interactions.
func NewRouter(chatHandler, admin http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if admin != nil {
		r.Mount("/interactions", admin)
	}
	r.Mount("/", chatHandler)
	return r
}
