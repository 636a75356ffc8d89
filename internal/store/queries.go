package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.klb.dev/recall/internal/history"
)

// ErrNotFound is returned by Get when no row has the requested id.
var ErrNotFound = errors.New("clipboard item not found")

const selectColumns = `
	SELECT id, format, category, text, html, file_path, color,
		image, image_width, image_height, created_at
	FROM clipboard_items
`

const orderAndLimit = ` ORDER BY created_at DESC, id DESC LIMIT ?`

const searchClause = `(text LIKE ? ESCAPE '\' OR html LIKE ? ESCAPE '\'
	OR file_path LIKE ? ESCAPE '\' OR color LIKE ? ESCAPE '\')`

// Insert appends rec and sets rec.ID.
func (s *Store) Insert(ctx context.Context, rec *history.Record) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO clipboard_items (
			format, category, text, html, file_path, color,
			image, image_width, image_height, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		string(rec.Format), string(rec.Category),
		toNullString(rec.Text), toNullString(rec.HTML),
		toNullString(rec.FilePath), toNullString(rec.Color),
		toNullBlob(rec.Image), toNullInt64(rec.ImageWidth), toNullInt64(rec.ImageHeight),
		rec.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert clipboard item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert clipboard item: %w", err)
	}
	rec.ID = id
	return id, nil
}

// Get returns the record with the given id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (*history.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get clipboard item %d: %w", id, err)
	}
	return rec, nil
}

// ListRecent returns up to limit records, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]history.Record, error) {
	return s.list(ctx, selectColumns+orderAndLimit, limit)
}

// Search returns records whose text, html, file path or color contains q.
// Matching is ASCII case-insensitive. An empty q lists recent records.
func (s *Store) Search(ctx context.Context, q string, limit int) ([]history.Record, error) {
	if q == "" {
		return s.ListRecent(ctx, limit)
	}
	p := likePattern(q)
	return s.list(ctx, selectColumns+" WHERE "+searchClause+orderAndLimit, p, p, p, p, limit)
}

// ListByDateRange returns records created within [start, end], both
// inclusive, in milliseconds since the epoch.
func (s *Store) ListByDateRange(ctx context.Context, start, end int64, limit int) ([]history.Record, error) {
	return s.list(ctx, selectColumns+" WHERE created_at BETWEEN ? AND ?"+orderAndLimit, start, end, limit)
}

// SearchByDateRange combines Search and ListByDateRange.
func (s *Store) SearchByDateRange(ctx context.Context, q string, start, end int64, limit int) ([]history.Record, error) {
	if q == "" {
		return s.ListByDateRange(ctx, start, end, limit)
	}
	p := likePattern(q)
	query := selectColumns + " WHERE created_at BETWEEN ? AND ? AND " + searchClause + orderAndLimit
	return s.list(ctx, query, start, end, p, p, p, p, limit)
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clipboard_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("count clipboard items: %w", err)
	}
	return n, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]history.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clipboard items: %w", err)
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clipboard item: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clipboard items: %w", err)
	}
	return out, nil
}

// likePattern wraps q in % after escaping LIKE metacharacters so they match
// literally.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*history.Record, error) {
	var (
		rec      history.Record
		format   string
		category string
		text     sql.NullString
		html     sql.NullString
		filePath sql.NullString
		color    sql.NullString
		image    []byte
		width    sql.NullInt64
		height   sql.NullInt64
	)

	err := row.Scan(
		&rec.ID, &format, &category, &text, &html, &filePath, &color,
		&image, &width, &height, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Format = history.Format(format)
	rec.Category = history.Category(category)
	rec.Text = fromNullString(text)
	rec.HTML = fromNullString(html)
	rec.FilePath = fromNullString(filePath)
	rec.Color = fromNullString(color)
	rec.Image = image
	rec.ImageWidth = fromNullInt64(width)
	rec.ImageHeight = fromNullInt64(height)

	return &rec, nil
}

// toNullString converts *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

// toNullBlob keeps a nil slice NULL rather than an empty blob.
func toNullBlob(b []byte) any {
	if b == nil {
		return nil
	}
	return b
}

func toNullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func fromNullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}
