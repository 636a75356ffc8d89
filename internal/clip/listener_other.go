//go:build !windows

package clip

// NewListener returns nil: only Windows exposes a clipboard change
// notification the watcher can block on. Callers fall back to polling.
func NewListener() Listener { return nil }
