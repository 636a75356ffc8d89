// Package ipc locates and opens the local channel CLI commands use to reach
// a running recall daemon: a Unix domain socket, or a named pipe on Windows.
//
// The daemon serves the same gRPC and HTTP surfaces on it as on TCP, without
// TLS or token auth; access is limited by filesystem permissions.
package ipc

import (
	"context"
	"net"
	"os"
	"time"
)

// EnvSocket overrides the socket path.
const EnvSocket = "RECALL_SOCKET"

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - $RECALL_SOCKET when set
//   - Linux / macOS: $XDG_RUNTIME_DIR/recall.sock, else $TMPDIR/recall.sock
//   - Windows:       \\.\pipe\recall
func SocketPath() string {
	if s := os.Getenv(EnvSocket); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a daemon appears to be listening on the IPC
// socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := Dial(ctx)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates a listener on the IPC socket path.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// Dial connects to the IPC socket.
func Dial(ctx context.Context) (net.Conn, error) {
	return dialIPC(ctx, SocketPath())
}
