// Package client talks to a raffle node. Every call runs on its own stream
// of one shared connection.
package client

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/randomness"
	"github.com/eigerco/raffle/internal/state"
	"github.com/eigerco/raffle/pkg/network/cert"
	"github.com/eigerco/raffle/pkg/network/handlers"
	"github.com/eigerco/raffle/pkg/network/protocol"
	"github.com/eigerco/raffle/pkg/network/transport"
)

type Client struct {
	transport *transport.Transport
	conn      *protocol.ProtocolConn
	requester *handlers.RaffleRequester
	address   crypto.Address
}

// Dial connects to the node at addr, authenticating with priv.
func Dial(ctx context.Context, addr string, priv ed25519.PrivateKey, certValidity time.Duration) (*Client, error) {
	tlsCert, err := cert.NewGenerator(cert.Config{
		PrivateKey:         priv,
		CertValidityPeriod: certValidity,
	}).GenerateCertificate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate certificate: %w", err)
	}

	manager := protocol.NewManager()
	tr, err := transport.NewTransport(transport.Config{
		TLSCert:       tlsCert,
		CertValidator: cert.NewValidator(),
		Handler:       manager,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	conn, err := tr.Connect(ctx, addr)
	if err != nil {
		_ = tr.Stop()
		return nil, err
	}

	pub, _ := priv.Public().(ed25519.PublicKey)
	return &Client{
		transport: tr,
		conn:      protocol.NewProtocolConn(conn, manager.Registry),
		requester: &handlers.RaffleRequester{},
		address:   crypto.AddressFromPublicKey(pub),
	}, nil
}

// Address is where the node records this client's entries and pays its
// winnings.
func (c *Client) Address() crypto.Address {
	return c.address
}

// NodeKey is the public key the node authenticated with.
func (c *Client) NodeKey() ed25519.PublicKey {
	return c.conn.TConn.PeerKey()
}

func (c *Client) Enter(ctx context.Context, fee decimal.Decimal) (crypto.Address, decimal.Decimal, error) {
	stream, err := c.conn.OpenStream(ctx, protocol.StreamKindEnter)
	if err != nil {
		return crypto.Address{}, decimal.Decimal{}, err
	}
	return c.requester.Enter(ctx, stream, fee)
}

func (c *Client) Status(ctx context.Context) (*handlers.Status, error) {
	stream, err := c.conn.OpenStream(ctx, protocol.StreamKindStatus)
	if err != nil {
		return nil, err
	}
	return c.requester.Status(ctx, stream)
}

func (c *Client) CheckUpkeep(ctx context.Context) (bool, error) {
	stream, err := c.conn.OpenStream(ctx, protocol.StreamKindCheckUpkeep)
	if err != nil {
		return false, err
	}
	return c.requester.CheckUpkeep(ctx, stream)
}

func (c *Client) PerformUpkeep(ctx context.Context) (state.RequestID, error) {
	stream, err := c.conn.OpenStream(ctx, protocol.StreamKindPerformUpkeep)
	if err != nil {
		return 0, err
	}
	return c.requester.PerformUpkeep(ctx, stream)
}

// Fulfill delivers words for request id. The node only accepts this from
// its configured oracle key.
func (c *Client) Fulfill(ctx context.Context, id state.RequestID, words []randomness.Word) error {
	stream, err := c.conn.OpenStream(ctx, protocol.StreamKindFulfill)
	if err != nil {
		return err
	}
	return c.requester.Fulfill(ctx, stream, id, words)
}

func (c *Client) Close() error {
	return c.transport.Stop()
}
