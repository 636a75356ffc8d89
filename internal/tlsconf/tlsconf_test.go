package tlsconf

import (
	"crypto/tls"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// handshake runs both ends over loopback TCP; net.Pipe is unbuffered and
// can stall the TLS 1.3 ticket exchange.
func handshake(t *testing.T, server, client *tls.Config) (serverErr, clientErr error) {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", server)
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			done <- err
			return
		}
		defer conn.Close()
		done <- conn.(*tls.Conn).Handshake()
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	c := tls.Client(conn, client)
	clientErr = c.Handshake()
	c.Close()
	return <-done, clientErr
}

func TestDeriveIsDeterministic(t *testing.T) {
	k1, err := deriveKey("hunter2")
	require.NoError(t, err)
	k2, err := deriveKey("hunter2")
	require.NoError(t, err)
	k3, err := deriveKey("other")
	require.NoError(t, err)

	assert.Zero(t, k1.D.Cmp(k2.D))
	assert.NotZero(t, k1.D.Cmp(k3.D))
}

func TestHandshakeSamePassphrase(t *testing.T) {
	server, err := Derive("hunter2")
	require.NoError(t, err)
	client, err := Derive("hunter2")
	require.NoError(t, err)

	serverErr, clientErr := handshake(t, server.Server, client.Client)
	assert.NoError(t, serverErr)
	assert.NoError(t, clientErr)
}

func TestHandshakeDifferentPassphrase(t *testing.T) {
	server, err := Derive("hunter2")
	require.NoError(t, err)
	client, err := Derive("wrong")
	require.NoError(t, err)

	_, clientErr := handshake(t, server.Server, client.Client)
	assert.ErrorIs(t, clientErr, ErrKeyMismatch)
}

func TestDeriveEmptyUsesDefault(t *testing.T) {
	server, err := Derive("")
	require.NoError(t, err)
	client, err := Derive(DefaultPassphrase)
	require.NoError(t, err)

	_, clientErr := handshake(t, server.Server, client.Client)
	assert.NoError(t, clientErr)
	assert.NotNil(t, client.GRPCCredentials())
}
