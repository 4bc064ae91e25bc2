package policy

import (
	"context"
	"math/big"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/ledger"
)

// reversedSeniorityTransfer implements Reversed Seniority's transfer_taint
// (§4.5.4): newest taint leaves first, so an untainted inflow shields older
// taint. Only the portion of amountSent that would drop the remaining
// balance below the currently tainted amount counts as taint.
func (e *Engine) reversedSeniorityTransfer(ctx context.Context, lg *ledger.Ledger, from, to chain.Account, amountSent *big.Int, currencyIn, currencyOut chain.Currency) (*big.Int, error) {
	if chain.ZeroAmount(amountSent) {
		return zero(), nil
	}
	tainted := e.store.IsBlacklisted(from, currencyIn) || e.IsPermanentlyTainted(from)

	var transferred *big.Int
	if tainted {
		b := e.store.Value(from, currencyIn)
		x, err := lg.GetTempBalance(ctx, from, currencyIn)
		if err != nil {
			return nil, err
		}
		if e.IsPermanentlyTainted(from) {
			transferred = new(big.Int).Set(amountSent)
		} else {
			transferred = reversedShare(b, x, amountSent)
		}
	} else {
		transferred = zero()
	}

	lg.Decrease(from, currencyIn, amountSent)
	lg.Increase(to, currencyOut, amountSent)

	if transferred.Sign() == 0 {
		return zero(), nil
	}

	e.store.Remove(from, transferred, currencyIn)
	e.store.IncrCounter(from, blacklist.CounterOutgoing)
	if to == chain.NullAddress {
		return transferred, nil
	}
	e.store.Add(to, currencyOut, transferred, nil)
	e.store.IncrCounter(to, blacklist.CounterIncoming)
	return transferred, nil
}

// reversedShare computes max(0, b - (x - amountSent)).
func reversedShare(b, x, amountSent *big.Int) *big.Int {
	remaining := new(big.Int).Sub(x, amountSent)
	share := new(big.Int).Sub(b, remaining)
	if share.Sign() < 0 {
		return zero()
	}
	return share
}

// reversedSeniorityGasFee implements Reversed Seniority's gas-fee rule
// (§4.5.4): the same shielding computation applied to totalFee, with the
// miner's share capped at min(minerFee, transferred).
func (e *Engine) reversedSeniorityGasFee(ctx context.Context, lg *ledger.Ledger, sender, miner chain.Account, totalFee, minerFee *big.Int) error {
	tainted := e.store.IsBlacklisted(sender, chain.NativeCurrency) || e.IsPermanentlyTainted(sender)

	var transferred *big.Int
	if tainted {
		b := e.store.Value(sender, chain.NativeCurrency)
		x, err := lg.GetTempBalance(ctx, sender, chain.NativeCurrency)
		if err != nil {
			return err
		}
		if e.IsPermanentlyTainted(sender) {
			transferred = new(big.Int).Set(totalFee)
		} else {
			transferred = reversedShare(b, x, totalFee)
		}
	} else {
		transferred = zero()
	}

	lg.Decrease(sender, chain.NativeCurrency, totalFee)
	lg.Increase(miner, chain.NativeCurrency, minerFee)

	if transferred.Sign() == 0 {
		return nil
	}
	e.store.Remove(sender, transferred, chain.NativeCurrency)
	e.store.IncrCounter(sender, blacklist.CounterOutgoingFee)

	minerShare := minBig(minerFee, transferred)
	if minerShare.Sign() > 0 {
		e.store.Add(miner, chain.NativeCurrency, minerShare, nil)
		e.store.IncrCounter(miner, blacklist.CounterIncomingFee)
	}
	return nil
}
