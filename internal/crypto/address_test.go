package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeccakEmptyInput(t *testing.T) {
	// Well known Keccak-256 of the empty string
	h := KeccakData()
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", hex.EncodeToString(h[:]))
}

func TestKeccakConcatenates(t *testing.T) {
	assert.Equal(t, KeccakData([]byte("ab")), KeccakData([]byte("a"), []byte("b")))
}

func TestAddressFromPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	a := AddressFromPublicKey(pub)
	h := KeccakData(pub)
	assert.Equal(t, h[12:], a[:])
	assert.False(t, a.IsZero())
	assert.Equal(t, a, AddressFromPublicKey(pub))
}

func TestParseAddress(t *testing.T) {
	a := Address{0xde, 0xad, 19: 0x01}

	parsed, err := ParseAddress(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	parsed, err = ParseAddress("dead000000000000000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseAddress("0x1234")
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ParseAddress("0xzz")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddressJSON(t *testing.T) {
	a := Address{1}
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"0x0100000000000000000000000000000000000000"`, string(b))

	var decoded Address
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, a, decoded)
}
