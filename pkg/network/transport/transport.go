// Package transport runs mutually authenticated QUIC connections between
// raffle peers.
package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/eigerco/raffle/pkg/log"
)

// MaxIdleTimeout defines the maximum duration a connection can be idle before timing out
const MaxIdleTimeout = 5 * time.Minute

// CertValidator performs TLS certificate validation and public key extraction
type CertValidator interface {
	ValidateCertificate(cert *x509.Certificate) error
	ExtractPublicKey(cert *x509.Certificate) (ed25519.PublicKey, error)
}

// ConnectionHandler processes new connections and validates their protocols
type ConnectionHandler interface {
	// OnConnection is called when a new connection is established
	OnConnection(conn *Conn) error
	// GetProtocols returns supported ALPN protocol strings
	GetProtocols() []string
	// ValidateConnection verifies TLS connection parameters
	ValidateConnection(tlsState tls.ConnectionState) error
}

// Config contains all configuration parameters for a Transport
type Config struct {
	TLSCert       *tls.Certificate  // TLS certificate
	ListenAddr    string            // Address to listen on, unused when only dialing
	CertValidator CertValidator     // Certificate validator
	Handler       ConnectionHandler // Connection handler
}

// Transport manages QUIC connections and their lifecycles
type Transport struct {
	config   Config
	listener *quic.Listener
	mu       sync.RWMutex
	conns    map[string]*Conn // Active connections mapped by peer key
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{} // For clean shutdown of accept loop
}

// NewTransport creates and configures a new transport instance.
// Returns an error if any required configuration is missing or invalid.
func NewTransport(config Config) (*Transport, error) {
	if config.TLSCert == nil {
		return nil, fmt.Errorf("TLS certificate required")
	}
	if config.CertValidator == nil {
		return nil, fmt.Errorf("certificate validator required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("connection handler required")
	}
	if err := config.CertValidator.ValidateCertificate(config.TLSCert.Leaf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCertificate, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Transport{
		config: config,
		conns:  make(map[string]*Conn),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (t *Transport) quicConfig() *quic.Config {
	return &quic.Config{
		MaxIdleTimeout:  MaxIdleTimeout,
		KeepAlivePeriod: MaxIdleTimeout / 3,
	}
}

// Start opens the listener and begins accepting connections.
func (t *Transport) Start() error {
	tlsConfig := &tls.Config{
		Certificates:       []tls.Certificate{*t.config.TLSCert},
		NextProtos:         t.config.Handler.GetProtocols(),
		ClientAuth:         tls.RequireAnyClientCert,
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		VerifyConnection: func(cs tls.ConnectionState) error {
			if len(cs.PeerCertificates) == 0 {
				return fmt.Errorf("%w: no peer certificate provided", ErrInvalidCertificate)
			}
			if err := t.config.CertValidator.ValidateCertificate(cs.PeerCertificates[0]); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			if err := t.config.Handler.ValidateConnection(cs); err != nil {
				return fmt.Errorf("%w: %v", ErrProtocolRejected, err)
			}
			return nil
		},
	}

	listener, err := quic.ListenAddr(t.config.ListenAddr, tlsConfig, t.quicConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}

	t.listener = listener
	t.done = make(chan struct{})
	go func() {
		t.acceptLoop()
		close(t.done)
	}()
	log.Network.Info().Stringer("addr", listener.Addr()).Msg("listening")
	return nil
}

// Addr is the bound listen address, nil before Start.
func (t *Transport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Stop closes every connection and the listener, then waits for the accept
// loop to finish.
func (t *Transport) Stop() error {
	t.cancel()

	t.mu.Lock()
	conns := t.conns
	t.conns = make(map[string]*Conn)
	t.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			log.Network.Debug().Err(err).Msg("close connection")
		}
	}

	if t.listener != nil {
		if err := t.listener.Close(); err != nil {
			return fmt.Errorf("failed to close listener: %w", err)
		}
		<-t.done
	}
	return nil
}

// Connect dials a remote peer and completes the handshake. It fails with
// ErrStopped once Stop has been called.
func (t *Transport) Connect(ctx context.Context, addr string) (*Conn, error) {
	if t.ctx.Err() != nil {
		return nil, ErrStopped
	}
	tlsConf := &tls.Config{
		Certificates:       []tls.Certificate{*t.config.TLSCert},
		NextProtos:         t.config.Handler.GetProtocols(),
		MinVersion:         tls.VersionTLS13,
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return fmt.Errorf("%w: no peer certificate provided", ErrInvalidCertificate)
			}
			c, err := x509.ParseCertificate(rawCerts[0])
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			if err := t.config.CertValidator.ValidateCertificate(c); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
			}
			return nil
		},
	}

	quicConn, err := quic.DialAddr(ctx, addr, tlsConf, t.quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDialFailed, err)
	}

	if err := t.config.Handler.ValidateConnection(quicConn.ConnectionState().TLS); err != nil {
		_ = quicConn.CloseWithError(0, ErrProtocolRejected.Error())
		return nil, fmt.Errorf("%w: %v", ErrProtocolRejected, err)
	}

	conn, err := t.handleConnection(quicConn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnFailed, err)
	}
	return conn, nil
}

// GetConnection retrieves an active connection by peer key.
func (t *Transport) GetConnection(peerKey ed25519.PublicKey) (*Conn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conn, ok := t.conns[string(peerKey)]
	return conn, ok
}

func (t *Transport) acceptLoop() {
	for {
		qConn, err := t.listener.Accept(t.ctx)
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			log.Network.Warn().Err(err).Msg("accept connection")
			continue
		}
		go func() {
			if _, err := t.handleConnection(qConn); err != nil {
				log.Network.Warn().Err(err).Stringer("remote", qConn.RemoteAddr()).Msg("reject connection")
			}
		}()
	}
}

func (t *Transport) handleConnection(qConn quic.Connection) (*Conn, error) {
	peerCerts := qConn.ConnectionState().TLS.PeerCertificates
	if len(peerCerts) == 0 {
		_ = qConn.CloseWithError(0, ErrInvalidCertificate.Error())
		return nil, ErrInvalidCertificate
	}
	peerKey, err := t.config.CertValidator.ExtractPublicKey(peerCerts[0])
	if err != nil {
		_ = qConn.CloseWithError(0, fmt.Sprintf("%s: %v", ErrInvalidCertificate, err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	conn := t.manageConnection(peerKey, qConn)
	if err := t.config.Handler.OnConnection(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// manageConnection keeps one connection per peer, closing an older one.
func (t *Transport) manageConnection(peerKey ed25519.PublicKey, qConn quic.Connection) *Conn {
	conn := newConn(qConn, t, peerKey)

	t.mu.Lock()
	existing, exists := t.conns[string(peerKey)]
	t.conns[string(peerKey)] = conn
	t.mu.Unlock()

	if exists {
		log.Network.Debug().Msg("replacing existing connection")
		if err := existing.Close(); err != nil {
			log.Network.Debug().Err(err).Msg("close replaced connection")
		}
	}
	return conn
}

// forget drops conn from the registry unless it was already replaced.
func (t *Transport) forget(conn *Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current, ok := t.conns[string(conn.peerKey)]; ok && current == conn {
		delete(t.conns, string(conn.peerKey))
	}
}
