package policy

import (
	"context"
	"math/big"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/ledger"
)

// fifoTransfer implements Fifo's transfer_taint (§4.5.5): the queue-of-
// inflows variant. An account's "untracked" balance (temp balance minus
// what the FIFO queue still accounts for) is assumed untainted and is
// subtracted from amountSent before consuming the queue, so that
// untainted inflows the queue never recorded (e.g. balance the account
// already held before the queue recorded its first inflow) do not get
// treated as taint sources.
func (e *Engine) fifoTransfer(ctx context.Context, lg *ledger.Ledger, from, to chain.Account, amountSent *big.Int, currencyIn, currencyOut chain.Currency) (*big.Int, error) {
	if chain.ZeroAmount(amountSent) {
		return zero(), nil
	}
	transferred, err := e.fifoConsume(ctx, lg, from, amountSent, currencyIn)
	if err != nil {
		return nil, err
	}

	lg.Decrease(from, currencyIn, amountSent)
	lg.Increase(to, currencyOut, amountSent)

	if transferred.Sign() > 0 {
		e.store.IncrCounter(from, blacklist.CounterOutgoing)
	}
	if transferred.Sign() == 0 {
		return zero(), nil
	}
	if to == chain.NullAddress {
		return transferred, nil
	}
	// The receiver's FIFO queue records this send as one inflow with its
	// full gross amount, so future consumption on the receiving side
	// proportions correctly against the whole transfer, not just its
	// tainted slice.
	e.store.Add(to, currencyOut, transferred, amountSent)
	e.store.IncrCounter(to, blacklist.CounterIncoming)
	return transferred, nil
}

// fifoConsume is the taint-bookkeeping core shared by fifoTransfer and
// fifoGasFee: it decides how much of amountSent leaving from in currencyIn
// is tainted and drains the FIFO queue accordingly, without touching the
// ledger's real-balance deltas or the tainted-transaction counters (both
// differ between an ordinary transfer and a gas-fee split).
func (e *Engine) fifoConsume(ctx context.Context, lg *ledger.Ledger, from chain.Account, amountSent *big.Int, currencyIn chain.Currency) (*big.Int, error) {
	if e.IsPermanentlyTainted(from) {
		e.store.Remove(from, amountSent, currencyIn)
		return new(big.Int).Set(amountSent), nil
	}
	if !e.store.IsBlacklisted(from, currencyIn) {
		return zero(), nil
	}
	x, err := lg.GetTempBalance(ctx, from, currencyIn)
	if err != nil {
		return nil, err
	}
	tracked := e.store.TrackedValue(from, currencyIn)
	untracked := new(big.Int).Sub(x, tracked)
	trackedAmount := new(big.Int).Sub(amountSent, untracked)
	if trackedAmount.Sign() <= 0 {
		return zero(), nil
	}
	return e.store.Remove(from, trackedAmount, currencyIn), nil
}

// fifoGasFee implements Fifo's gas-fee rule (§4.5.5): the miner's tip
// moves taint via the same queue-consumption rule as an ordinary transfer;
// the burned remainder is removed as taint sent to nobody
// (transfer_taint(sender, None, burned, ETH)).
func (e *Engine) fifoGasFee(ctx context.Context, lg *ledger.Ledger, sender, miner chain.Account, totalFee, minerFee *big.Int) error {
	burned := new(big.Int).Sub(totalFee, minerFee)

	// Each component computes its taint against the ledger's temp balance
	// before that component's own real-value debit, exactly as
	// fifoTransfer does for an ordinary transfer. Debiting the full
	// totalFee up front before either component runs would shrink the
	// untracked-headroom calculation for both, corrupting it.
	if minerFee.Sign() > 0 {
		transferred, err := e.fifoConsume(ctx, lg, sender, minerFee, chain.NativeCurrency)
		if err != nil {
			return err
		}
		lg.Decrease(sender, chain.NativeCurrency, minerFee)
		lg.Increase(miner, chain.NativeCurrency, minerFee)
		if transferred.Sign() > 0 {
			e.store.IncrCounter(sender, blacklist.CounterOutgoingFee)
			e.store.Add(miner, chain.NativeCurrency, transferred, minerFee)
			e.store.IncrCounter(miner, blacklist.CounterIncomingFee)
		}
	}

	if burned.Sign() > 0 {
		transferred, err := e.fifoConsume(ctx, lg, sender, burned, chain.NativeCurrency)
		if err != nil {
			return err
		}
		lg.Decrease(sender, chain.NativeCurrency, burned)
		if transferred.Sign() > 0 {
			e.store.IncrCounter(sender, blacklist.CounterOutgoingFee)
		}
	}
	return nil
}
