// Package query is the read and write-back surface over stored history.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.klb.dev/recall/internal/classify"
	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/store"
	"go.klb.dev/recall/internal/transport"
)

const (
	DefaultLimit = 200
	MinLimit     = 1
	MaxLimit     = 1000
)

// ErrNotFound is returned by SetClipboard for an unknown id.
var ErrNotFound = store.ErrNotFound

// ErrNothingToWrite is returned by SetClipboard when the record carries no
// payload that fits its format.
var ErrNothingToWrite = errors.New("record has no content to write")

// Store is the subset of *store.Store the service reads from.
type Store interface {
	Get(ctx context.Context, id int64) (*history.Record, error)
	ListRecent(ctx context.Context, limit int) ([]history.Record, error)
	Search(ctx context.Context, q string, limit int) ([]history.Record, error)
	ListByDateRange(ctx context.Context, start, end int64, limit int) ([]history.Record, error)
	SearchByDateRange(ctx context.Context, q string, start, end int64, limit int) ([]history.Record, error)
}

type Service struct {
	store  Store
	writer clip.Writer
}

func NewService(s Store, w clip.Writer) *Service {
	return &Service{store: s, writer: w}
}

// ClampLimit returns DefaultLimit for nil and clamps everything else to
// [MinLimit, MaxLimit].
func ClampLimit(limit *int) int {
	if limit == nil {
		return DefaultLimit
	}
	return min(max(*limit, MinLimit), MaxLimit)
}

func (s *Service) ListHistory(ctx context.Context, limit *int) ([]transport.Item, error) {
	recs, err := s.store.ListRecent(ctx, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return transport.FromRecords(recs), nil
}

// SearchHistory trims q; a blank query lists recent history.
func (s *Service) SearchHistory(ctx context.Context, q string, limit *int) ([]transport.Item, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.ListHistory(ctx, limit)
	}
	recs, err := s.store.Search(ctx, q, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return transport.FromRecords(recs), nil
}

func (s *Service) ListHistoryByDate(ctx context.Context, start, end int64, limit *int) ([]transport.Item, error) {
	recs, err := s.store.ListByDateRange(ctx, start, end, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return transport.FromRecords(recs), nil
}

func (s *Service) SearchHistoryByDate(ctx context.Context, q string, start, end int64, limit *int) ([]transport.Item, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.ListHistoryByDate(ctx, start, end, limit)
	}
	recs, err := s.store.SearchByDateRange(ctx, q, start, end, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	return transport.FromRecords(recs), nil
}

// SetClipboard writes the stored payload of id back to the clipboard.
func (s *Service) SetClipboard(ctx context.Context, id int64) error {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.write(rec); err != nil {
		return fmt.Errorf("failed to set clipboard from item %d: %w", id, err)
	}
	return nil
}

func (s *Service) write(rec *history.Record) error {
	switch rec.Format {
	case history.FormatImage:
		encoded, ok := transport.EncodePNG(*rec)
		if !ok {
			return fmt.Errorf("%w: image data is missing or malformed", ErrNothingToWrite)
		}
		return s.writer.WriteImage(encoded)

	case history.FormatHTML:
		if rec.HTML != nil {
			alt := ""
			if rec.Text != nil {
				alt = *rec.Text
			} else {
				alt = classify.StripHTML(*rec.HTML)
			}
			return s.writer.WriteHTML(*rec.HTML, alt)
		}
		if rec.Text != nil {
			return s.writer.WriteText(*rec.Text)
		}
		return ErrNothingToWrite
	}

	for _, v := range []*string{rec.Text, rec.FilePath, rec.Color} {
		if v != nil {
			return s.writer.WriteText(*v)
		}
	}
	return ErrNothingToWrite
}
