// Package ledger implements the per-block temporary balance ledger (§4.3):
// a lazily-fetched, mutated-in-place view of account balances that lets the
// policy engine reason about intra-block state without re-querying the
// chain source for every event.
package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

type accountCurrency struct {
	account chain.Account
	token   chain.Currency
}

// Ledger is constructed fresh at the start of each block (§4.3: per-block,
// not per-transaction, so that intra-block miner fee accumulation persists
// across the block's transactions while each currency's on-chain balance is
// only ever fetched once). It is not safe for concurrent use; the engine is
// single-threaded per propagation job (§5).
type Ledger struct {
	src     chain.Source
	block   uint64
	deltas  map[accountCurrency]*big.Int
	fetched map[accountCurrency]struct{}
}

// New constructs a Ledger scoped to block. src.GetBalance/BalanceOf are used
// to seed a currency's first read.
func New(src chain.Source, block uint64) *Ledger {
	return &Ledger{
		src:     src,
		block:   block,
		deltas:  make(map[accountCurrency]*big.Int),
		fetched: make(map[accountCurrency]struct{}),
	}
}

func (l *Ledger) key(a chain.Account, c chain.Currency) accountCurrency {
	return accountCurrency{account: a, token: c}
}

// Increase adds amount to (a, c)'s delta. amount may be nil (treated as
// zero) or negative.
func (l *Ledger) Increase(a chain.Account, c chain.Currency, amount *big.Int) {
	if chain.ZeroAmount(amount) {
		return
	}
	k := l.key(a, c)
	cur := l.deltas[k]
	if cur == nil {
		cur = big.NewInt(0)
	}
	l.deltas[k] = new(big.Int).Add(cur, amount)
}

// Decrease subtracts amount from (a, c)'s delta.
func (l *Ledger) Decrease(a chain.Account, c chain.Currency, amount *big.Int) {
	if chain.ZeroAmount(amount) {
		return
	}
	l.Increase(a, c, new(big.Int).Neg(amount))
}

// GetTempBalance returns (a, c)'s current temporary balance: the on-chain
// balance at the ledger's block, fetched and cached on first access per
// currency, plus whatever deltas have since been applied (§4.3).
func (l *Ledger) GetTempBalance(ctx context.Context, a chain.Account, c chain.Currency) (*big.Int, error) {
	k := l.key(a, c)
	if _, ok := l.fetched[k]; !ok {
		onChain, err := l.fetchBalance(ctx, a, c)
		if err != nil {
			return nil, fmt.Errorf("ledger: fetch balance %s/%s at block %d: %w", a.Hex(), c, l.block, err)
		}
		cur := l.deltas[k]
		if cur == nil {
			cur = big.NewInt(0)
		}
		l.deltas[k] = new(big.Int).Add(onChain, cur)
		l.fetched[k] = struct{}{}
	}
	v := l.deltas[k]
	if v == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(v), nil
}

func (l *Ledger) fetchBalance(ctx context.Context, a chain.Account, c chain.Currency) (*big.Int, error) {
	if c.IsNative() {
		return l.src.GetBalance(ctx, a, l.block)
	}
	v, err := l.src.BalanceOf(ctx, c, a, l.block)
	if err != nil {
		if err == chain.ErrNoOutput || err == chain.ErrUnsupportedCall {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return v, nil
}
