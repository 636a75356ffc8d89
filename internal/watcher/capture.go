// Package watcher turns clipboard changes into stored history records.
//
// A Strategy produces Candidates, the Watcher drops repeats by comparing
// content hashes, and a Dispatcher persists the survivors and announces
// them on the notification hub.
package watcher

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/draw"
	_ "image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"go.klb.dev/recall/internal/classify"
	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/history"
)

// Candidate is a captured payload that has not been deduplicated yet.
type Candidate struct {
	Record history.Record
	Hash   uint64
}

// Capture reads the clipboard once. It reports false when the clipboard is
// empty, holds only whitespace, or cannot be read.
func Capture(r clip.Reader, now func() time.Time) (Candidate, bool) {
	content, err := r.Read()
	if err != nil {
		slog.Debug("clipboard read failed", "err", err)
		return Candidate{}, false
	}

	created := history.NowMillis(now())

	if len(content.Image) > 0 {
		if c, ok := imageCandidate(content.Image, created); ok {
			return c, true
		}
	}

	if content.Text == nil {
		return Candidate{}, false
	}
	trimmed := strings.TrimSpace(string(content.Text))
	if trimmed == "" {
		return Candidate{}, false
	}
	return textCandidate(trimmed, created), true
}

func textCandidate(trimmed string, created int64) Candidate {
	res := classify.Classify(trimmed)
	return Candidate{
		Record: history.Record{
			Format:    res.Format,
			Category:  res.Category,
			Text:      history.Ptr(trimmed),
			Color:     res.Color,
			FilePath:  res.FilePath,
			CreatedAt: created,
		},
		Hash: xxhash.Sum64String(trimmed),
	}
}

func imageCandidate(encoded []byte, created int64) (Candidate, bool) {
	img, _, err := image.Decode(bytes.NewReader(encoded))
	if err != nil {
		slog.Debug("clipboard image decode failed", "err", err)
		return Candidate{}, false
	}
	b := img.Bounds()
	if b.Empty() {
		return Candidate{}, false
	}

	px := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(px, px.Bounds(), img, b.Min, draw.Src)

	w, h := int64(b.Dx()), int64(b.Dy())
	return Candidate{
		Record: history.Record{
			Format:      history.FormatImage,
			Category:    history.CategoryImage,
			Image:       px.Pix,
			ImageWidth:  history.Ptr(w),
			ImageHeight: history.Ptr(h),
			CreatedAt:   created,
		},
		Hash: ImageHash(px.Pix, w, h),
	}, true
}

// ImageHash hashes pixels followed by the little-endian width and height,
// so two buffers with the same bytes but different shapes differ.
func ImageHash(pix []byte, w, h int64) uint64 {
	d := xxhash.New()
	_, _ = d.Write(pix)
	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[:8], uint64(w))
	binary.LittleEndian.PutUint64(dims[8:], uint64(h))
	_, _ = d.Write(dims[:])
	return d.Sum64()
}
