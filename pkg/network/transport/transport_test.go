package transport_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/raffle/pkg/network/cert"
	"github.com/eigerco/raffle/pkg/network/transport"
)

type stubHandler struct {
	reject error
}

func (h *stubHandler) OnConnection(*transport.Conn) error { return nil }

func (h *stubHandler) GetProtocols() []string { return []string{"raffle/0"} }

func (h *stubHandler) ValidateConnection(tls.ConnectionState) error { return h.reject }

func newTransport(t *testing.T, listen string, handler transport.ConnectionHandler) *transport.Transport {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	tlsCert, err := cert.NewGenerator(cert.Config{PrivateKey: priv, CertValidityPeriod: time.Hour}).GenerateCertificate()
	require.NoError(t, err)

	tr, err := transport.NewTransport(transport.Config{
		TLSCert:       tlsCert,
		ListenAddr:    listen,
		CertValidator: cert.NewValidator(),
		Handler:       handler,
	})
	require.NoError(t, err)
	return tr
}

func TestConnectAfterStop(t *testing.T) {
	tr := newTransport(t, "", &stubHandler{})
	require.NoError(t, tr.Stop())

	_, err := tr.Connect(context.Background(), "127.0.0.1:1")
	assert.ErrorIs(t, err, transport.ErrStopped)
}

func TestConnectRejectsProtocol(t *testing.T) {
	server := newTransport(t, "127.0.0.1:0", &stubHandler{})
	require.NoError(t, server.Start())
	defer server.Stop() //nolint:errcheck

	client := newTransport(t, "", &stubHandler{reject: errors.New("unsupported version")})
	defer client.Stop() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Connect(ctx, server.Addr().String())
	assert.ErrorIs(t, err, transport.ErrProtocolRejected)
}

func TestConnectUnreachable(t *testing.T) {
	client := newTransport(t, "", &stubHandler{})
	defer client.Stop() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := client.Connect(ctx, "127.0.0.1:1")
	assert.ErrorIs(t, err, transport.ErrDialFailed)
}
