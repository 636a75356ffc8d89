package grpcservice

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/notify"
	"go.klb.dev/recall/internal/query"
	"go.klb.dev/recall/internal/store"
)

type fakeWriter struct {
	texts  []string
	panics bool
}

func (w *fakeWriter) WriteText(s string) error {
	if w.panics {
		panic("clipboard exploded")
	}
	w.texts = append(w.texts, s)
	return nil
}

func (w *fakeWriter) WriteImage([]byte) error              { return nil }
func (w *fakeWriter) WriteHTML(_ string, alt string) error { w.texts = append(w.texts, alt); return nil }

type fixture struct {
	client *Client
	store  *store.Store
	hub    *notify.Hub
	writer *fakeWriter
}

func newFixture(t *testing.T, token string, callerToken string) *fixture {
	t.Helper()

	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	w := &fakeWriter{}
	h := notify.New()
	t.Cleanup(h.Close)

	srv := grpc.NewServer(ServerOptions()...)
	Register(srv, New(query.NewService(st, w), h, Options{
		Token:    token,
		Version:  "test",
		Strategy: "poll",
		Counter:  st,
	}))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	opts := []grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if callerToken != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(&Credentials{Token: callerToken, Source: "test"}))
	}
	conn, err := grpc.NewClient("passthrough:///bufnet", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &fixture{client: NewClient(conn), store: st, hub: h, writer: w}
}

func (f *fixture) insert(t *testing.T, text string, createdAt int64) int64 {
	t.Helper()
	id, err := f.store.Insert(context.Background(), &history.Record{
		Format:    history.FormatText,
		Category:  history.CategoryText,
		Text:      history.Ptr(text),
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return id
}

func TestListAndSearch(t *testing.T) {
	f := newFixture(t, "", "")
	ctx := context.Background()
	f.insert(t, "foo", 100)
	f.insert(t, "foo", 200)
	f.insert(t, "bar", 300)

	resp, err := f.client.List(ctx, &HistoryRequest{Query: "ignored"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, int64(300), resp.Items[0].CreatedAt)

	resp, err = f.client.Search(ctx, &HistoryRequest{Query: "foo", Limit: history.Ptr(1)})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(200), resp.Items[0].CreatedAt)

	resp, err = f.client.Search(ctx, &HistoryRequest{Query: "foo", Start: history.Ptr[int64](150), End: history.Ptr[int64](250)})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(200), resp.Items[0].CreatedAt)
}

func TestSearchRejectsHalfRange(t *testing.T) {
	f := newFixture(t, "", "")
	_, err := f.client.Search(context.Background(), &HistoryRequest{Start: history.Ptr[int64](1)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = f.client.List(context.Background(), &HistoryRequest{Start: history.Ptr[int64](5), End: history.Ptr[int64](1)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRestore(t *testing.T) {
	f := newFixture(t, "", "")
	id := f.insert(t, "paste me", 100)

	_, err := f.client.Restore(context.Background(), &RestoreRequest{ID: id})
	require.NoError(t, err)
	assert.Equal(t, []string{"paste me"}, f.writer.texts)

	_, err = f.client.Restore(context.Background(), &RestoreRequest{ID: id + 100})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestStatus(t *testing.T) {
	f := newFixture(t, "", "")
	f.insert(t, "a", 1)
	f.insert(t, "b", 2)

	resp, err := f.client.Status(context.Background(), &StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Items)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "poll", resp.Strategy)
}

func TestAuth(t *testing.T) {
	f := newFixture(t, "secret", "")
	_, err := f.client.Status(context.Background(), &StatusRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	f = newFixture(t, "secret", "wrong")
	_, err = f.client.Status(context.Background(), &StatusRequest{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	f = newFixture(t, "secret", "secret")
	_, err = f.client.Status(context.Background(), &StatusRequest{})
	assert.NoError(t, err)
}

func TestTokenMatches(t *testing.T) {
	assert.True(t, tokenMatches("secret", "secret"))
	assert.False(t, tokenMatches("secret", "Secret"))
	assert.False(t, tokenMatches("secre", "secret"))
	assert.False(t, tokenMatches("", "secret"))
}

func TestHandlerPanicIsContained(t *testing.T) {
	f := newFixture(t, "", "")
	id := f.insert(t, "boom", 100)
	f.writer.panics = true

	_, err := f.client.Restore(context.Background(), &RestoreRequest{ID: id})
	assert.Equal(t, codes.Internal, status.Code(err))

	resp, err := f.client.Status(context.Background(), &StatusRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Items)
}

func TestWatch(t *testing.T) {
	f := newFixture(t, "", "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := f.client.Watch(ctx, &WatchRequest{})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, f.hub.Publish(notify.Event{Name: history.UpdatedEvent}))

	ev, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, history.UpdatedEvent, ev.Event)
	assert.NotZero(t, ev.Time)

	cancel()
	require.Eventually(t, func() bool { return f.hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}
