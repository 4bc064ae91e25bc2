package policy

import (
	"context"
	"math/big"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/ledger"
)

// haircutTransfer implements Haircut's transfer_taint (§4.5.2): a
// proportional policy. The tainted share of amountSent is computed as
// floor(amountSent * T / S), where T is from's current tainted balance and
// S is from's full temp balance read before this transfer's real value
// movement is applied.
func (e *Engine) haircutTransfer(ctx context.Context, lg *ledger.Ledger, from, to chain.Account, amountSent *big.Int, currencyIn, currencyOut chain.Currency) (*big.Int, error) {
	if chain.ZeroAmount(amountSent) {
		return zero(), nil
	}
	tainted := e.store.IsBlacklisted(from, currencyIn) || e.IsPermanentlyTainted(from)

	var transferred *big.Int
	if tainted {
		t := e.store.Value(from, currencyIn)
		s, err := lg.GetTempBalance(ctx, from, currencyIn)
		if err != nil {
			return nil, err
		}
		if e.IsPermanentlyTainted(from) {
			transferred = new(big.Int).Set(amountSent)
		} else {
			transferred = haircutShare(amountSent, t, s)
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
		return transferred, nil // burned
	}
	e.store.Add(to, currencyOut, transferred, nil)
	e.store.IncrCounter(to, blacklist.CounterIncoming)
	return transferred, nil
}

// haircutShare computes floor(amount * t / s), the exact-integer rule
// §9 requires to avoid overflow/drift. s == 0 yields 0 (nothing to
// proportion against).
func haircutShare(amount, t, s *big.Int) *big.Int {
	if s.Sign() == 0 {
		return zero()
	}
	num := new(big.Int).Mul(amount, t)
	return new(big.Int).Div(num, s)
}

// haircutGasFee implements Haircut's gas-fee rule (§4.5.2): the same
// proportional share is applied once to totalFee (burned rule) and once to
// minerFee (credited to miner), both against the sender's pre-debit T/S
// (§9 open question: this can over-credit the miner relative to what is
// removed from the sender; the specification preserves this).
func (e *Engine) haircutGasFee(ctx context.Context, lg *ledger.Ledger, sender, miner chain.Account, totalFee, minerFee *big.Int) error {
	tainted := e.store.IsBlacklisted(sender, chain.NativeCurrency) || e.IsPermanentlyTainted(sender)
	if !tainted {
		lg.Decrease(sender, chain.NativeCurrency, totalFee)
		lg.Increase(miner, chain.NativeCurrency, minerFee)
		return nil
	}

	t := e.store.Value(sender, chain.NativeCurrency)
	s, err := lg.GetTempBalance(ctx, sender, chain.NativeCurrency)
	if err != nil {
		return err
	}

	var removedShare, minerShare *big.Int
	if e.IsPermanentlyTainted(sender) {
		removedShare = new(big.Int).Set(totalFee)
		minerShare = new(big.Int).Set(minerFee)
	} else {
		removedShare = haircutShare(totalFee, t, s)
		minerShare = haircutShare(minerFee, t, s)
	}

	lg.Decrease(sender, chain.NativeCurrency, totalFee)
	lg.Increase(miner, chain.NativeCurrency, minerFee)

	if removedShare.Sign() > 0 {
		e.store.Remove(sender, removedShare, chain.NativeCurrency)
		e.store.IncrCounter(sender, blacklist.CounterOutgoingFee)
	}
	if minerShare.Sign() > 0 {
		e.store.Add(miner, chain.NativeCurrency, minerShare, nil)
		e.store.IncrCounter(miner, blacklist.CounterIncomingFee)
	}
	return nil
}
