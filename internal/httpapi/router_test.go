package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/notify"
	"go.klb.dev/recall/internal/query"
	"go.klb.dev/recall/internal/transport"
)

type call struct {
	method     string
	q          string
	start, end int64
	limit      *int
}

type fakeQuerier struct {
	mu       sync.Mutex
	calls    []call
	restored []int64
	err      error
}

func (f *fakeQuerier) record(c call) ([]transport.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	if f.err != nil {
		return nil, f.err
	}
	return []transport.Item{{ID: 1, Format: history.FormatText, Text: history.Ptr("hi")}}, nil
}

func (f *fakeQuerier) ListHistory(_ context.Context, limit *int) ([]transport.Item, error) {
	return f.record(call{method: "list", limit: limit})
}

func (f *fakeQuerier) SearchHistory(_ context.Context, q string, limit *int) ([]transport.Item, error) {
	return f.record(call{method: "search", q: q, limit: limit})
}

func (f *fakeQuerier) ListHistoryByDate(_ context.Context, start, end int64, limit *int) ([]transport.Item, error) {
	return f.record(call{method: "listByDate", start: start, end: end, limit: limit})
}

func (f *fakeQuerier) SearchHistoryByDate(_ context.Context, q string, start, end int64, limit *int) ([]transport.Item, error) {
	return f.record(call{method: "searchByDate", q: q, start: start, end: end, limit: limit})
}

func (f *fakeQuerier) SetClipboard(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.restored = append(f.restored, id)
	return nil
}

func newTestRouter(q Querier, token string) (http.Handler, *notify.Hub) {
	h := notify.New()
	return NewRouter(&Deps{Query: q, Hub: h, Token: token}), h
}

func do(t *testing.T, h http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(&fakeQuerier{}, "secret")
	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHistoryQueryParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   call
	}{
		{"plain list", "/api/history", call{method: "search"}},
		{"search with limit", "/api/history?q=foo&limit=5", call{method: "search", q: "foo", limit: history.Ptr(5)}},
		{"date range", "/api/history?start=100&end=200", call{method: "searchByDate", start: 100, end: 200}},
		{"search in range", "/api/history?q=x&start=1&end=2&limit=3", call{method: "searchByDate", q: "x", start: 1, end: 2, limit: history.Ptr(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fq := &fakeQuerier{}
			h, _ := newTestRouter(fq, "")
			rec := do(t, h, http.MethodGet, tt.target, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Len(t, fq.calls, 1)
			assert.Equal(t, tt.want, fq.calls[0])

			var resp historyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Len(t, resp.Items, 1)
			assert.Equal(t, "hi", *resp.Items[0].Text)
		})
	}
}

func TestHistoryBadRequest(t *testing.T) {
	for _, target := range []string{
		"/api/history?limit=abc",
		"/api/history?start=1",
		"/api/history?end=1",
		"/api/history?start=x&end=2",
		"/api/history?start=5&end=2",
	} {
		fq := &fakeQuerier{}
		h, _ := newTestRouter(fq, "")
		rec := do(t, h, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"error"`, target)
		assert.Empty(t, fq.calls, target)
	}
}

func TestRestore(t *testing.T) {
	fq := &fakeQuerier{}
	h, _ := newTestRouter(fq, "")

	rec := do(t, h, http.MethodPost, "/api/history/42/restore", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{42}, fq.restored)

	rec = do(t, h, http.MethodPost, "/api/history/abc/restore", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRestoreNotFound(t *testing.T) {
	fq := &fakeQuerier{err: fmt.Errorf("%w: id 9", query.ErrNotFound)}
	h, _ := newTestRouter(fq, "")

	rec := do(t, h, http.MethodPost, "/api/history/9/restore", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "not found")
}

func TestBearerAuth(t *testing.T) {
	h, _ := newTestRouter(&fakeQuerier{}, "secret")

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/history", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/history",
		map[string]string{"Authorization": "Bearer nope"}).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/history",
		map[string]string{"Authorization": "Bearer secret"}).Code)
}

func TestEventsStream(t *testing.T) {
	h, hub := newTestRouter(&fakeQuerier{}, "")
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(notify.Event{Name: history.UpdatedEvent}))

	var lines []string
	for len(lines) < 3 {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) == "" && len(lines) == 0 {
			continue
		}
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"event: " + history.UpdatedEvent + "\n", "data: {}\n", "\n"}, lines)
}
