// Package tlsconf derives matching TLS server and client configurations
// from a shared token, so a recall daemon can be reached over TCP without
// any certificate distribution.
//
// The private key is derived deterministically via HKDF so both sides produce
// the same key from the same passphrase. The certificate itself is random;
// clients verify the server's public key rather than the certificate.
//
// Key derivation:
//
//	HKDF-SHA256(ikm=passphrase, salt="recall-tls-v1", info="private-key")
//	→ 64 bytes → reduced mod curve order → deterministic ECDSA P-256 key
package tlsconf

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"golang.org/x/crypto/hkdf"
	"google.golang.org/grpc/credentials"
)

// DefaultPassphrase is used when no token is configured.
const DefaultPassphrase = "recall"

const serverName = "recall"

// ErrKeyMismatch is returned by the client verifier when the server's key
// was derived from a different passphrase.
var ErrKeyMismatch = errors.New("tlsconf: server public key does not match passphrase")

// Pair holds the two ends of a passphrase-derived TLS setup.
type Pair struct {
	// Server serves both h2 (gRPC) and http/1.1 via ALPN.
	Server *tls.Config
	// Client accepts only a server holding the derived key.
	Client *tls.Config
}

// Derive builds a Pair from passphrase. An empty passphrase selects
// DefaultPassphrase.
func Derive(passphrase string) (*Pair, error) {
	if passphrase == "" {
		passphrase = DefaultPassphrase
	}
	key, err := deriveKey(passphrase)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: derive key: %w", err)
	}

	certPEM, err := selfSignedCert(key)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: cert: %w", err)
	}
	keyPEM, err := marshalKey(key)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: marshal key: %w", err)
	}
	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: key pair: %w", err)
	}

	expectedPub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("tlsconf: marshal pubkey: %w", err)
	}

	return &Pair{
		Server: &tls.Config{
			Certificates: []tls.Certificate{tlsCert},
			NextProtos:   []string{"h2", "http/1.1"},
			MinVersion:   tls.VersionTLS13,
		},
		Client: &tls.Config{
			// Chain verification is replaced by the public key check below.
			InsecureSkipVerify:    true, //nolint:gosec
			ServerName:            serverName,
			MinVersion:            tls.VersionTLS13,
			VerifyPeerCertificate: pinnedKey(expectedPub),
		},
	}, nil
}

// GRPCCredentials returns gRPC transport credentials for the client side.
func (p *Pair) GRPCCredentials() credentials.TransportCredentials {
	return credentials.NewTLS(p.Client.Clone())
}

func pinnedKey(expected []byte) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("tlsconf: server presented no certificate")
		}
		cert, err := x509.ParseCertificate(rawCerts[0])
		if err != nil {
			return fmt.Errorf("tlsconf: parse server cert: %w", err)
		}
		pub, err := x509.MarshalPKIXPublicKey(cert.PublicKey)
		if err != nil {
			return fmt.Errorf("tlsconf: marshal server pubkey: %w", err)
		}
		if !bytes.Equal(pub, expected) {
			return ErrKeyMismatch
		}
		return nil
	}
}

// deriveKey derives a deterministic ECDSA P-256 private key from passphrase.
func deriveKey(passphrase string) (*ecdsa.PrivateKey, error) {
	r := hkdf.New(sha256.New, []byte(passphrase), []byte("recall-tls-v1"), []byte("private-key"))
	buf := make([]byte, 64)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("hkdf read: %w", err)
	}

	curve := elliptic.P256()
	n := curve.Params().N
	k := new(big.Int).SetBytes(buf)
	k.Mod(k, new(big.Int).Sub(n, big.NewInt(1)))
	k.Add(k, big.NewInt(1)) // k ∈ [1, N-1]

	key := new(ecdsa.PrivateKey)
	key.PublicKey.Curve = curve
	key.D = k
	key.PublicKey.X, key.PublicKey.Y = curve.ScalarBaseMult(k.Bytes())
	return key, nil
}

func selfSignedCert(key *ecdsa.PrivateKey) ([]byte, error) {
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: serverName},
		DNSNames:              []string{serverName},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(100 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), nil
}

func marshalKey(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}
