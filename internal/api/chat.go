package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	"github.com/kalambet/folio/internal/chat"
	"github.com/kalambet/folio/internal/docset"
)

const maxRequestBodySize = 64 << 10 // 64KB

// maxMessageLength caps a single user message, in bytes.
const maxMessageLength = 2000

// DocLister returns the document set currently served to the widget.
type DocLister interface {
	Docs(ctx context.Context) []docset.Document
}

// ChatDeps holds dependencies for the public widget API.
type ChatDeps struct {
	Sessions    *chat.Manager
	Docs        DocLister
	Suggestions []string
	Limiter     *rate.Limiter // optional; nil disables rate limiting
}

type sessionResponse struct {
	ID       string         `json:"id"`
	Messages []chat.Message `json:"messages"`
}

type messageRequest struct {
	Content string `json:"content"`
}

// NewChatHandler returns an http.Handler serving the widget API: the
// document set, quick suggestions and chat sessions.
func NewChatHandler(deps ChatDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/chat/index.json", handleIndex(deps))
	r.Get("/chat/suggestions", handleSuggestions(deps))

	r.Route("/chat/sessions", func(r chi.Router) {
		r.Post("/", handleCreateSession(deps))
		r.Get("/{id}/messages", handleListMessages(deps))
		r.With(RateLimit(deps.Limiter)).Post("/{id}/messages", handlePostMessage(deps))
		r.Delete("/{id}", handleDeleteSession(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleIndex(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs := []docset.Document{}
		if deps.Docs != nil {
			if d := deps.Docs.Docs(r.Context()); d != nil {
				docs = d
			}
		}
		writeJSON(w, http.StatusOK, docs)
	}
}

func handleSuggestions(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		suggestions := deps.Suggestions
		if suggestions == nil {
			suggestions = []string{}
		}
		writeJSON(w, http.StatusOK, suggestions)
	}
}

func handleCreateSession(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := deps.Sessions.Create()
		writeJSON(w, http.StatusCreated, sessionResponse{ID: s.ID, Messages: s.Messages()})
	}
}

func handleListMessages(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(w, r, deps.Sessions)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{ID: s.ID, Messages: s.Messages()})
	}
}

func handlePostMessage(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(w, r, deps.Sessions)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Content) > maxMessageLength {
			httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "message exceeds %d bytes", maxMessageLength)
			return
		}

		msg, err := s.Submit(r.Context(), req.Content)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		case errors.Is(err, chat.ErrBusy):
			httpError(w, http.StatusConflict, "conflict_error", "a reply is still being generated")
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "submitting message: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteSession(deps ChatDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := deps.Sessions.Delete(id); errors.Is(err, chat.ErrSessionNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func lookupSession(w http.ResponseWriter, r *http.Request, sessions *chat.Manager) (*chat.Session, bool) {
	s, err := sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
		return nil, false
	}
	return s, true
}

// RateLimit rejects requests with 429 when l has no token available. A nil
// limiter lets everything through.
func RateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				slog.Debug("rate limited", "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				httpError(w, http.StatusTooManyRequests, "rate_limit_error", "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLimiter builds the per-server turn limiter from requests per second and
// burst. A non-positive rate disables limiting.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": strings.TrimSpace(msg),
			"type":    errType,
		},
	})
}
