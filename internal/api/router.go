package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	// BasePath mounts the chat routes under a prefix such as /api.
	BasePath string
	// MaxRequestSize caps request bodies; zero disables the cap.
	MaxRequestSize int64
}

// NewRouter wires the handlers. Routes accept every method so that each
// handler can reject the wrong one with a JSON 405.
func NewRouter(h *Handler, logger *zap.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recoverer(logger))
	if opts.MaxRequestSize > 0 {
		r.Use(middleware.RequestSize(opts.MaxRequestSize))
	}

	r.NotFound(h.NotFound)
	r.HandleFunc("/health", h.Health)

	routes := func(r chi.Router) {
		r.HandleFunc("/predict/", h.Predict)
		r.HandleFunc("/sessions/", h.ListSessions)
		r.HandleFunc("/sessions/{sessionID}/", h.GetHistory)
		r.HandleFunc("/sessions/{sessionID}/delete/", h.DeleteSession)
	}

	base := "/" + strings.Trim(opts.BasePath, "/")
	if base == "/" {
		routes(r)
	} else {
		r.Route(base, routes)
	}

	return r
}
