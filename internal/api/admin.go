package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/storage"
)

// InteractionStore is the read side of the interaction log.
type InteractionStore interface {
	ListInteractions(ctx context.Context, sessionID string, limit int) ([]storage.Interaction, error)
	GetInteraction(ctx context.Context, id string) (storage.Interaction, error)
	CountInteractions(ctx context.Context) (map[string]int, error)
}

// AdminDeps holds dependencies for the token-protected admin API.
type AdminDeps struct {
	Store InteractionStore
	Token string
}

// NewAdminHandler returns the interaction-log API behind bearer auth, with
// routes relative to its /interactions mount point. It returns nil when no
// token is configured, which leaves the routes unmounted.
func NewAdminHandler(deps AdminDeps) http.Handler {
	if deps.Token == "" {
		return nil
	}
	r := chi.NewRouter()
	r.Use(BearerAuth(deps.Token))

	r.Get("/", handleListInteractions(deps))
	r.Get("/stats", handleInteractionStats(deps))
	r.Get("/{id}", handleGetInteraction(deps))

	return r
}

func handleListInteractions(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 500)
		session := r.URL.Query().Get("session")

		interactions, err := deps.Store.ListInteractions(r.Context(), session, limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list interactions: %v", err)
			return
		}
		if interactions == nil {
			interactions = []storage.Interaction{}
		}
		writeJSON(w, http.StatusOK, interactions)
	}
}

func handleGetInteraction(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		interaction, err := deps.Store.GetInteraction(r.Context(), id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "interaction not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get interaction: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, interaction)
	}
}

func handleInteractionStats(deps AdminDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := deps.Store.CountInteractions(r.Context())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count interactions: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
