package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const AddressSize = 20

var ErrInvalidAddress = errors.New("invalid address")

// Address identifies a participant. It is the last 20 bytes of the
// Keccak-256 hash of the participant's Ed25519 public key.
type Address [AddressSize]byte

// AddressFromPublicKey derives the address owned by an Ed25519 key.
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	h := KeccakData(pub)
	var a Address
	copy(a[:], h[HashSize-AddressSize:])
	return a
}

// ParseAddress accepts a 40 character hex string with or without 0x prefix.
func ParseAddress(s string) (Address, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(b), AddressSize)
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler so addresses render as hex in JSON.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
