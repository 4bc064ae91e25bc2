// Package sanity implements the post-termination invariant check (§4.7):
// blacklist values must not exceed live balances, and the null address
// must never be blacklisted. Both are reported as warnings, never as
// failures (§3, §7).
package sanity

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/log"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// Warning is one mismatch the sanity check found.
type Warning struct {
	Account  chain.Account
	Currency chain.Currency
	Blacklisted *big.Int
	Balance     *big.Int
}

// Check fetches, at block+1, the live balance of every (account, currency)
// the store currently blacklists (skipping the reserved "all" key) and
// reports every case where the blacklisted value exceeds it, plus an
// unconditional warning if the null address carries any taint.
func Check(ctx context.Context, src chain.Source, store blacklist.Store, block uint64) []Warning {
	var warnings []Warning

	if store.IsBlacklisted(chain.NullAddress, "") {
		log.Warn("sanity: null address is blacklisted", "block", block)
		warnings = append(warnings, Warning{Account: chain.NullAddress})
	}

	for _, a := range store.Accounts() {
		for _, c := range store.Currencies(a) {
			blacklisted := store.Value(a, c)
			if blacklisted.Sign() == 0 {
				continue
			}
			balance, err := fetchBalance(ctx, src, a, c, block+1)
			if err != nil {
				log.Warn("sanity: could not fetch balance for check", "account", a, "currency", c, "err", err)
				continue
			}
			if blacklisted.Cmp(balance) > 0 {
				log.Warn("sanity: blacklisted value exceeds balance",
					"account", a, "currency", c, "blacklisted", blacklisted, "balance", balance)
				warnings = append(warnings, Warning{Account: a, Currency: c, Blacklisted: blacklisted, Balance: balance})
			}
		}
	}
	return warnings
}

func fetchBalance(ctx context.Context, src chain.Source, a chain.Account, c chain.Currency, block uint64) (*big.Int, error) {
	if c.IsNative() {
		return src.GetBalance(ctx, a, block)
	}
	v, err := src.BalanceOf(ctx, c, a, block)
	if err != nil {
		if err == chain.ErrNoOutput || err == chain.ErrUnsupportedCall {
			return big.NewInt(0), nil
		}
		return nil, err
	}
	return v, nil
}
