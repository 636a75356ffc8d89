package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/notify"
	"go.klb.dev/recall/internal/query"
	"go.klb.dev/recall/internal/transport"
)

type handler struct {
	q   Querier
	hub *notify.Hub
}

type errorResponse struct {
	Error string `json:"error"`
}

type historyResponse struct {
	Items []transport.Item `json:"items"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// history serves GET /api/history?q=&start=&end=&limit=.
func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	var limit *int
	if s := params.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = &n
	}

	start, err := parseMillis(params.Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "start: "+err.Error())
		return
	}
	end, err := parseMillis(params.Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "end: "+err.Error())
		return
	}
	if (start == nil) != (end == nil) {
		writeError(w, http.StatusBadRequest, "start and end must be given together")
		return
	}

	q := params.Get("q")
	var items []transport.Item
	if start != nil {
		if *start > *end {
			writeError(w, http.StatusBadRequest, "start is after end")
			return
		}
		items, err = h.q.SearchHistoryByDate(r.Context(), q, *start, *end, limit)
	} else {
		items, err = h.q.SearchHistory(r.Context(), q, limit)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{Items: items})
}

// restore serves POST /api/history/{id}/restore.
func (h *handler) restore(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	if err := h.q.SetClipboard(r.Context(), id); err != nil {
		slog.Warn("restore failed", "id", id, "err", err)
		writeServiceError(w, err)
		return
	}
	slog.Info("clipboard restored", "id", id, "source", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

// events streams one server-sent event per stored record until the client
// goes away.
func (h *handler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := h.hub.Subscribe("http/"+r.RemoteAddr, 0)
	defer h.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: {}\n\n", ev.Name); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func parseMillis(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.New("must be milliseconds since the epoch")
	}
	return &n, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, query.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, query.ErrNothingToWrite):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, clip.ErrUnavailable):
		code = http.StatusServiceUnavailable
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}
