// Package wallet keeps balances of payout recipients.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/eigerco/raffle/internal/crypto"
	"github.com/eigerco/raffle/pkg/log"
)

var (
	ErrRecipientRejects = errors.New("recipient does not accept transfers")
	ErrNegativeAmount   = errors.New("negative amount")
)

// Accounts credits payouts to recipients. Recipients marked with Reject
// refuse every transfer, which is how an account unable to receive value
// shows up.
type Accounts struct {
	mu       sync.RWMutex
	balances map[crypto.Address]decimal.Decimal
	rejects  map[crypto.Address]struct{}
}

func NewAccounts() *Accounts {
	return &Accounts{
		balances: make(map[crypto.Address]decimal.Decimal),
		rejects:  make(map[crypto.Address]struct{}),
	}
}

// Transfer credits amount to to, or changes nothing at all.
func (a *Accounts) Transfer(ctx context.Context, to crypto.Address, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.rejects[to]; ok {
		return fmt.Errorf("%w: %s", ErrRecipientRejects, to)
	}
	a.balances[to] = a.balances[to].Add(amount)

	log.Raffle.Debug().Stringer("to", to).Stringer("amount", amount).Msg("transfer")
	return nil
}

// Reject makes every later transfer to addr fail.
func (a *Accounts) Reject(addr crypto.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejects[addr] = struct{}{}
}

// Accept undoes Reject.
func (a *Accounts) Accept(addr crypto.Address) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.rejects, addr)
}

func (a *Accounts) Balance(addr crypto.Address) decimal.Decimal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.balances[addr]
}
