// Package selection maps a random word to one entrant.
package selection

import (
	"errors"
	"math/big"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/internal/randomness"
)

var ErrEmptyEntrantSet = errors.New("no entrants to select from")

// Select returns entrants[w mod len(entrants)] and that index. The word is
// reduced as is, with no further hashing, so the result can be replayed by
// anyone holding the same inputs.
func Select(entrants []crypto.Address, w randomness.Word) (crypto.Address, int, error) {
	if len(entrants) == 0 {
		return crypto.Address{}, 0, ErrEmptyEntrantSet
	}
	n := big.NewInt(int64(len(entrants)))
	index := int(new(big.Int).Mod(w.Int(), n).Int64())
	return entrants[index], index, nil
}
