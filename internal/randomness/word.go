// Package randomness tracks the single in-flight request for random words
// and the words themselves.
package randomness

import (
	"encoding/binary"
	"encoding/hex"
	"math/big"
)

// WordSize is the width of one random word in bytes.
const WordSize = 32

// Word is an unsigned 256-bit big-endian random value.
type Word [WordSize]byte

// WordFromUint64 places v in the low 8 bytes of a word.
func WordFromUint64(v uint64) Word {
	var w Word
	binary.BigEndian.PutUint64(w[WordSize-8:], v)
	return w
}

// WordFromBig truncates v to its low 256 bits.
func WordFromBig(v *big.Int) Word {
	var w Word
	b := v.Bytes()
	if len(b) > WordSize {
		b = b[len(b)-WordSize:]
	}
	copy(w[WordSize-len(b):], b)
	return w
}

// Int returns the word as a non-negative integer.
func (w Word) Int() *big.Int {
	return new(big.Int).SetBytes(w[:])
}

func (w Word) String() string {
	return "0x" + hex.EncodeToString(w[:])
}
