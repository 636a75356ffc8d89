//go:build darwin || linux || windows

package clip

import (
	"log/slog"
	"runtime"

	"golang.design/x/clipboard"
)

type systemBackend struct{}

// New returns the system clipboard backend, or a headless no-op backend if
// the display environment is unavailable (e.g. a headless server without X11
// or Wayland). clipboard.Init is called here rather than in init() so that
// CLI sub-commands that never construct a Backend don't log spurious warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return &headlessBackend{}
	}
	return &systemBackend{}
}

func (b *systemBackend) Name() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS NSPasteboard"
	case "windows":
		return "Windows clipboard"
	default:
		return "Linux clipboard"
	}
}

func (b *systemBackend) Read() (Content, error) {
	return Content{
		Text:  clipboard.Read(clipboard.FmtText),
		Image: clipboard.Read(clipboard.FmtImage),
	}, nil
}

func (b *systemBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (b *systemBackend) WriteImage(png []byte) error {
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

// WriteHTML falls back to alt: golang.design/x/clipboard has no HTML format.
func (b *systemBackend) WriteHTML(_, alt string) error {
	return b.WriteText(alt)
}

func (b *systemBackend) Close() {}
