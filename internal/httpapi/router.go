// Package httpapi serves clipboard history over plain HTTP/JSON with a
// server-sent event stream for change notifications.
package httpapi

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"go.klb.dev/recall/internal/notify"
	"go.klb.dev/recall/internal/transport"
)

// Querier is the history surface the API exposes.
type Querier interface {
	ListHistory(ctx context.Context, limit *int) ([]transport.Item, error)
	SearchHistory(ctx context.Context, q string, limit *int) ([]transport.Item, error)
	ListHistoryByDate(ctx context.Context, start, end int64, limit *int) ([]transport.Item, error)
	SearchHistoryByDate(ctx context.Context, q string, start, end int64, limit *int) ([]transport.Item, error)
	SetClipboard(ctx context.Context, id int64) error
}

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Query Querier
	Hub   *notify.Hub
	// Token enables bearer auth on /api when non-empty.
	Token string
}

// NewRouter creates the HTTP handler.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h := &handler{q: deps.Query, hub: deps.Hub}

	r.Get("/healthz", h.health)

	r.Route("/api", func(r chi.Router) {
		if deps.Token != "" {
			r.Use(bearerAuth(deps.Token))
		}
		r.Get("/history", h.history)
		r.Post("/history/{id}/restore", h.restore)
		r.Get("/events", h.events)
	})

	return r
}

// requestLogger logs one line per request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			slog.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid or missing token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
