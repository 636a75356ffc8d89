package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/recall/internal/history"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func textRecord(text string, createdAt int64) *history.Record {
	return &history.Record{
		Format:    history.FormatText,
		Category:  history.CategoryText,
		Text:      history.Ptr(text),
		CreatedAt: createdAt,
	}
}

func insertAll(t *testing.T, s *Store, recs ...*history.Record) {
	t.Helper()
	for _, r := range recs {
		_, err := s.Insert(context.Background(), r)
		require.NoError(t, err)
	}
}

func createdAts(recs []history.Record) []int64 {
	out := make([]int64, len(recs))
	for i, r := range recs {
		out[i] = r.CreatedAt
	}
	return out
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	var journalMode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var table string
	require.NoError(t, s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='clipboard_items'",
	).Scan(&table))
	assert.Equal(t, "clipboard_items", table)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	insertAll(t, s, textRecord("keep", 1))
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpenMigrationFailure(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })
	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestInsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	recs := []*history.Record{
		textRecord("hello", 100),
		{
			Format:    history.FormatHTML,
			Category:  history.CategoryText,
			Text:      history.Ptr("bold"),
			HTML:      history.Ptr("<b>bold</b>"),
			CreatedAt: 101,
		},
		{
			Format:    history.FormatFile,
			Category:  history.CategoryFile,
			Text:      history.Ptr("/etc/hosts"),
			FilePath:  history.Ptr("/etc/hosts"),
			CreatedAt: 102,
		},
		{
			Format:    history.FormatColor,
			Category:  history.CategoryText,
			Text:      history.Ptr("#abc"),
			Color:     history.Ptr("#abc"),
			CreatedAt: 103,
		},
		{
			Format:      history.FormatImage,
			Category:    history.CategoryImage,
			Image:       []byte{1, 2, 3, 4, 5, 6, 7, 8},
			ImageWidth:  history.Ptr[int64](2),
			ImageHeight: history.Ptr[int64](1),
			CreatedAt:   104,
		},
	}

	for _, want := range recs {
		id, err := s.Insert(ctx, want)
		require.NoError(t, err)
		assert.Equal(t, id, want.ID)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestInsertRejectsInvalidRecord(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Insert(context.Background(), &history.Record{
		Format:   history.FormatImage,
		Category: history.CategoryImage,
		Image:    []byte{1},
	})
	assert.ErrorIs(t, err, history.ErrInvalidRecord)
}

func TestInsertRejectsEmptyImage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, &history.Record{
		Format:      history.FormatImage,
		Category:    history.CategoryImage,
		Image:       []byte{},
		ImageWidth:  history.Ptr[int64](2),
		ImageHeight: history.Ptr[int64](2),
		CreatedAt:   100,
	})
	require.ErrorIs(t, err, history.ErrInvalidRecord)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRecentOrdering(t *testing.T) {
	s := openTestStore(t)
	insertAll(t, s, textRecord("a", 100), textRecord("b", 300), textRecord("c", 200))

	got, err := s.ListRecent(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 200, 100}, createdAts(got))

	got, err = s.ListRecent(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 200}, createdAts(got))
}

func TestListRecentTieBreaksOnID(t *testing.T) {
	s := openTestStore(t)
	first, second := textRecord("first", 100), textRecord("second", 100)
	insertAll(t, s, first, second)

	got, err := s.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
}

func TestSearch(t *testing.T) {
	s := openTestStore(t)
	insertAll(t, s,
		textRecord("Hello World", 100),
		&history.Record{Format: history.FormatHTML, Category: history.CategoryText, HTML: history.Ptr("<p>world</p>"), CreatedAt: 200},
		&history.Record{Format: history.FormatFile, Category: history.CategoryFile, FilePath: history.Ptr("/tmp/worldmap.png"), CreatedAt: 300},
		&history.Record{Format: history.FormatColor, Category: history.CategoryText, Color: history.Ptr("#ff0000"), CreatedAt: 400},
		textRecord("unrelated", 500),
	)
	ctx := context.Background()

	got, err := s.Search(ctx, "world", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 200, 100}, createdAts(got))

	got, err = s.Search(ctx, "ff00", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{400}, createdAts(got))

	got, err = s.Search(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestSearchEscapesWildcards(t *testing.T) {
	s := openTestStore(t)
	insertAll(t, s, textRecord("500", 100), textRecord("50%", 200), textRecord("a_b", 300), textRecord("axb", 400))
	ctx := context.Background()

	got, err := s.Search(ctx, "50%", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{200}, createdAts(got))

	got, err = s.Search(ctx, "a_b", 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{300}, createdAts(got))
}

func TestDateRange(t *testing.T) {
	s := openTestStore(t)
	insertAll(t, s, textRecord("foo", 100), textRecord("foo", 200), textRecord("foo", 300), textRecord("bar", 250))
	ctx := context.Background()

	got, err := s.SearchByDateRange(ctx, "foo", 150, 250, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{200}, createdAts(got))

	got, err = s.ListByDateRange(ctx, 200, 300, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 250, 200}, createdAts(got))

	got, err = s.SearchByDateRange(ctx, "", 100, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, createdAts(got))
}
