// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_system.go       darwin, linux, windows via golang.design/x/clipboard
//	clip_other.go        headless stub everywhere else
//	listener_windows.go  AddClipboardFormatListener change notifications
//	listener_other.go    no change notifications, callers poll
package clip

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned by writes on a backend without a clipboard.
	ErrUnavailable = errors.New("clipboard unavailable")

	// ErrListenerUnavailable wraps failures to register for change notifications.
	ErrListenerUnavailable = errors.New("clipboard change listener unavailable")
)

// Content is a single snapshot of the clipboard. Either field may be nil.
type Content struct {
	Text []byte
	// Image is PNG-encoded, as handed out by the clipboard library.
	Image []byte
}

// Reader reads the current clipboard contents.
type Reader interface {
	// Read returns an empty Content when the clipboard holds nothing
	// supported.
	Read() (Content, error)
}

// Writer replaces the clipboard contents.
type Writer interface {
	WriteText(text string) error
	// WriteImage takes a PNG-encoded image.
	WriteImage(png []byte) error
	// WriteHTML stores an HTML payload with a plain-text alternative.
	WriteHTML(html, alt string) error
}

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	Reader
	Writer

	// Name returns a human-readable name for the backend.
	Name() string

	// Close releases any resources held by the backend.
	Close()
}

// Listener delivers OS clipboard change notifications.
type Listener interface {
	// Listen registers with the OS and signals changed (non-blocking) on
	// every clipboard update until ctx is done. Registration failures are
	// returned wrapped in ErrListenerUnavailable.
	Listen(ctx context.Context, changed chan<- struct{}) error
}
