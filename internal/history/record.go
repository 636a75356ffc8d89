// Package history defines the clipboard history record shared by the
// watcher, the store and the query surface.
package history

import (
	"errors"
	"fmt"
	"time"
)

// Format is the concrete payload kind of a record.
type Format string

const (
	FormatText  Format = "text"
	FormatColor Format = "color"
	FormatFile  Format = "file"
	FormatHTML  Format = "html"
	FormatImage Format = "image"
)

// Category is the coarse kind used for filtering in the UI.
type Category string

const (
	CategoryText  Category = "text"
	CategoryLink  Category = "link"
	CategoryFile  Category = "file"
	CategoryImage Category = "image"
)

// UpdatedEvent is the name of the signal raised once per stored record.
const UpdatedEvent = "clipboard-history-updated"

// Record is one captured clipboard payload. Rows are immutable once stored.
type Record struct {
	ID       int64
	Format   Format
	Category Category

	Text     *string
	HTML     *string
	FilePath *string
	Color    *string

	// Image holds raw RGBA pixels; ImageWidth and ImageHeight are set together with it.
	Image       []byte
	ImageWidth  *int64
	ImageHeight *int64

	// CreatedAt is milliseconds since the Unix epoch.
	CreatedAt int64
}

// ErrInvalidRecord is returned by Validate.
var ErrInvalidRecord = errors.New("invalid record")

// Validate checks that image bytes and both dimensions are present together
// and that dimensions are positive. An empty image buffer counts as absent.
func (r *Record) Validate() error {
	if r.Format == "" || r.Category == "" {
		return fmt.Errorf("%w: format and category are required", ErrInvalidRecord)
	}
	hasImage := len(r.Image) > 0
	hasW := r.ImageWidth != nil
	hasH := r.ImageHeight != nil
	if hasImage != hasW || hasImage != hasH {
		return fmt.Errorf("%w: image, image_width and image_height must be set together", ErrInvalidRecord)
	}
	if hasImage && (*r.ImageWidth <= 0 || *r.ImageHeight <= 0) {
		return fmt.Errorf("%w: image dimensions must be positive", ErrInvalidRecord)
	}
	return nil
}

// HasImage reports whether all three image fields are populated.
func (r *Record) HasImage() bool {
	return len(r.Image) > 0 && r.ImageWidth != nil && r.ImageHeight != nil
}

// NowMillis returns t as milliseconds since the Unix epoch.
func NowMillis(t time.Time) int64 { return t.UnixMilli() }

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
