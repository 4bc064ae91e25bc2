package policy

import (
	"math/big"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// poisonTransfer implements Poison's transfer_taint (§4.5.1): taint is
// all-or-nothing membership, not an amount. The temporary ledger is
// unused; totals are computed at report time by summing live balances of
// every tainted account.
func (e *Engine) poisonTransfer(from, to chain.Account, amountSent *big.Int) (*big.Int, error) {
	if !e.store.IsBlacklisted(from, "") {
		return zero(), nil
	}
	if to == chain.NullAddress {
		return zero(), nil
	}
	alreadyTainted := e.store.IsBlacklisted(to, "")
	e.store.Add(to, "", nil, nil)
	e.store.IncrCounter(from, blacklist.CounterOutgoing)
	if !alreadyTainted {
		e.store.IncrCounter(to, blacklist.CounterIncoming)
	}
	return big.NewInt(1), nil
}

// poisonGasFee implements Poison's process_gas_fee (§4.5.1): a tainted
// sender poisons the miner who included their transaction.
func (e *Engine) poisonGasFee(sender, miner chain.Account) error {
	if !e.store.IsBlacklisted(sender, "") {
		return nil
	}
	e.store.IncrCounter(sender, blacklist.CounterOutgoingFee)
	if e.store.IsBlacklisted(miner, "") {
		return nil
	}
	e.store.Add(miner, "", nil, nil)
	e.store.IncrCounter(miner, blacklist.CounterIncomingFee)
	return nil
}
