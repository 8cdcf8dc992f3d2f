package crypto

import (
	"golang.org/x/crypto/sha3"
)

const HashSize = 32

type Hash [HashSize]byte

// KeccakData hashes the concatenation of the inputs using Keccak-256
func KeccakData(data ...[]byte) Hash {
	hash := sha3.NewLegacyKeccak256()
	for _, d := range data {
		hash.Write(d)
	}

	var result Hash
	copy(result[:], hash.Sum(nil))
	return result
}
