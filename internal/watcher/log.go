package watcher

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"go.klb.dev/recall/internal/history"
)

const previewRunes = 120

// logStored logs a stored record at INFO (id, format, category) and at
// DEBUG a short preview of its content, or pixel dimensions for images.
func logStored(id int64, rec *history.Record) {
	slog.Info("clipboard item stored", "id", id, "format", rec.Format, "category", rec.Category)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	if rec.Format == history.FormatImage {
		slog.Debug("clipboard item", "id", id, "width", deref(rec.ImageWidth), "height", deref(rec.ImageHeight), "size_bytes", len(rec.Image))
		return
	}
	slog.Debug("clipboard item", "id", id, "preview", previewOf(rec))
}

func previewOf(rec *history.Record) string {
	var s string
	for _, p := range []*string{rec.Text, rec.FilePath, rec.Color, rec.HTML} {
		if p != nil {
			s = *p
			break
		}
	}
	if utf8.RuneCountInString(s) > previewRunes {
		s = string([]rune(s)[:previewRunes]) + "…"
	}
	return s
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
