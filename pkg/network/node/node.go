// Package node serves a raffle to peers over QUIC.
package node

import (
	"crypto/ed25519"
	"fmt"
	"net"
	"time"

	"github.com/eigerco/raffle/pkg/log"
	"github.com/eigerco/raffle/pkg/network/cert"
	"github.com/eigerco/raffle/pkg/network/handlers"
	"github.com/eigerco/raffle/pkg/network/protocol"
	"github.com/eigerco/raffle/pkg/network/transport"
)

// Config describes the node's identity and where it listens.
type Config struct {
	ListenAddr   string
	PrivateKey   ed25519.PrivateKey
	CertValidity time.Duration
	// OracleKey is the only peer allowed to deliver random words. When
	// empty, fulfilment over the network is disabled.
	OracleKey ed25519.PublicKey
}

// Node accepts peer connections and answers raffle streams.
type Node struct {
	ProtocolManager *protocol.Manager
	transport       *transport.Transport
}

// New builds a node serving r. The listener is opened by Start.
func New(cfg Config, r handlers.Raffle) (*Node, error) {
	// Create TLS certificate using the node's Ed25519 key pair
	certGen := cert.NewGenerator(cert.Config{
		PrivateKey:         cfg.PrivateKey,
		CertValidityPeriod: cfg.CertValidity,
	})
	tlsCert, err := certGen.GenerateCertificate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate: %w", err)
	}

	protoManager := protocol.NewManager()
	handlers.Register(protoManager.Registry, r, cfg.OracleKey)

	tr, err := transport.NewTransport(transport.Config{
		TLSCert:       tlsCert,
		ListenAddr:    cfg.ListenAddr,
		CertValidator: cert.NewValidator(),
		Handler:       protoManager,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	if len(cfg.OracleKey) == 0 {
		log.Network.Warn().Msg("no oracle key configured, remote fulfilment disabled")
	}
	return &Node{
		ProtocolManager: protoManager,
		transport:       tr,
	}, nil
}

func (n *Node) Start() error {
	return n.transport.Start()
}

func (n *Node) Stop() error {
	return n.transport.Stop()
}

// Addr is the bound address once Start has returned.
func (n *Node) Addr() net.Addr {
	return n.transport.Addr()
}
