package protocol

import (
	"fmt"
	"strings"
)

const (
	protocolPrefix = "raffle"

	// Current protocol version
	currentVersion = "0"
)

// ProtocolID represents a complete ALPN protocol identifier.
// Format: raffle/<version>
type ProtocolID struct {
	Version string
}

func NewProtocolID() *ProtocolID {
	return &ProtocolID{Version: currentVersion}
}

func (p *ProtocolID) String() string {
	return protocolPrefix + "/" + p.Version
}

// ParseProtocolID parses an ALPN protocol string into a ProtocolID.
func ParseProtocolID(protocol string) (*ProtocolID, error) {
	parts := strings.Split(protocol, "/")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid protocol format: %s", protocol)
	}
	if parts[0] != protocolPrefix {
		return nil, fmt.Errorf("invalid protocol prefix: %s", parts[0])
	}
	if parts[1] != currentVersion {
		return nil, fmt.Errorf("unsupported protocol version: %s", parts[1])
	}
	return &ProtocolID{Version: parts[1]}, nil
}

// ValidateALPNProtocol is ParseProtocolID without the result.
func ValidateALPNProtocol(protocol string) error {
	_, err := ParseProtocolID(protocol)
	return err
}

func AcceptableProtocols() []string {
	return []string{NewProtocolID().String()}
}
