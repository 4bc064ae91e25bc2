package policy

import (
	"math/big"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// seniorityTransfer implements Seniority's transfer_taint (§4.5.3): oldest
// taint leaves first, modeled simply as "taint cannot exceed the tainted
// balance". No temp-balance maintenance is needed (§9): the rule only
// reads the blacklist's own Value, never the real account balance.
func (e *Engine) seniorityTransfer(from, to chain.Account, amountSent *big.Int, currencyIn, currencyOut chain.Currency) (*big.Int, error) {
	if chain.ZeroAmount(amountSent) || (!e.store.IsBlacklisted(from, currencyIn) && !e.IsPermanentlyTainted(from)) {
		return zero(), nil
	}
	b := e.store.Value(from, currencyIn)
	var transferred *big.Int
	if e.IsPermanentlyTainted(from) {
		transferred = new(big.Int).Set(amountSent)
	} else {
		transferred = minBig(amountSent, b)
	}
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

// seniorityGasFee implements Seniority's gas-fee rule (§4.5.3): the
// sender-side debit and the miner-side credit are both computed against
// the same pre-debit tainted balance B, so the miner's credited share is
// not necessarily a strict subset of what leaves the sender (§9 open
// question).
func (e *Engine) seniorityGasFee(sender, miner chain.Account, totalFee, minerFee *big.Int) error {
	if !e.store.IsBlacklisted(sender, chain.NativeCurrency) && !e.IsPermanentlyTainted(sender) {
		return nil
	}
	b := e.store.Value(sender, chain.NativeCurrency)

	var removed, credited *big.Int
	if e.IsPermanentlyTainted(sender) {
		removed = new(big.Int).Set(totalFee)
		credited = new(big.Int).Set(minerFee)
	} else {
		removed = minBig(totalFee, b)
		credited = minBig(minerFee, b)
	}

	if removed.Sign() > 0 {
		e.store.Remove(sender, removed, chain.NativeCurrency)
		e.store.IncrCounter(sender, blacklist.CounterOutgoingFee)
	}
	if credited.Sign() > 0 {
		e.store.Add(miner, chain.NativeCurrency, credited, nil)
		e.store.IncrCounter(miner, blacklist.CounterIncomingFee)
	}
	return nil
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
