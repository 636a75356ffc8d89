// Package transport projects stored records into the shape served to
// clients: text fields pass through and image pixels become base64 PNG.
package transport

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"math"

	"go.klb.dev/recall/internal/history"
)

// Item is the client-facing view of a history.Record.
type Item struct {
	ID          int64            `json:"id"`
	Format      history.Format   `json:"format"`
	Category    history.Category `json:"category"`
	Text        *string          `json:"text,omitempty"`
	HTML        *string          `json:"html,omitempty"`
	FilePath    *string          `json:"filePath,omitempty"`
	Color       *string          `json:"color,omitempty"`
	ImageBase64 *string          `json:"imageBase64,omitempty"`
	ImageWidth  *int64           `json:"imageWidth,omitempty"`
	ImageHeight *int64           `json:"imageHeight,omitempty"`
	CreatedAt   int64            `json:"createdAt"`
}

// FromRecord never fails. Image fields are dropped when the pixel buffer
// does not match the recorded dimensions.
func FromRecord(r history.Record) Item {
	it := Item{
		ID:        r.ID,
		Format:    r.Format,
		Category:  r.Category,
		Text:      r.Text,
		HTML:      r.HTML,
		FilePath:  r.FilePath,
		Color:     r.Color,
		CreatedAt: r.CreatedAt,
	}
	if encoded, ok := EncodePNG(r); ok {
		it.ImageBase64 = history.Ptr(base64.StdEncoding.EncodeToString(encoded))
		it.ImageWidth = history.Ptr(*r.ImageWidth)
		it.ImageHeight = history.Ptr(*r.ImageHeight)
	}
	return it
}

// FromRecords maps FromRecord over recs. The result is never nil.
func FromRecords(recs []history.Record) []Item {
	out := make([]Item, 0, len(recs))
	for _, r := range recs {
		out = append(out, FromRecord(r))
	}
	return out
}

// maxDim bounds each image dimension so the pixel geometry fits an int on
// every platform.
const maxDim = math.MaxInt32

// EncodePNG encodes the record's pixels, 4 bytes per pixel, as PNG.
func EncodePNG(r history.Record) ([]byte, bool) {
	if !r.HasImage() {
		return nil, false
	}
	w, h := *r.ImageWidth, *r.ImageHeight
	if !validGeometry(len(r.Image), w, h) {
		return nil, false
	}

	img := &image.NRGBA{
		Pix:    r.Image,
		Stride: int(w) * 4,
		Rect:   image.Rect(0, 0, int(w), int(h)),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// validGeometry reports whether n bytes hold exactly w*h NRGBA pixels. The
// product is never formed, so huge dimensions cannot wrap around.
func validGeometry(n int, w, h int64) bool {
	if w <= 0 || h <= 0 || w > maxDim || h > maxDim || n%4 != 0 {
		return false
	}
	pixels := int64(n / 4)
	return pixels%w == 0 && pixels/w == h
}
