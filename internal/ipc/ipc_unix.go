//go:build !windows

package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
)

func socketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "recall.sock")
	}
	return filepath.Join(os.TempDir(), "recall.sock")
}

func listenIPC(path string) (net.Listener, error) {
	// Remove stale socket from a previous (crashed) run.
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	_ = os.Chmod(path, 0o600)
	return ln, nil
}

func dialIPC(ctx context.Context, path string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", path)
}
