package blacklist

import "github.com/RaphaelK77/EthereumBlacklisting/internal/chain"

// counterTable is the shared tainted-transaction-counter bookkeeping
// embedded by every Store variant; it is not part of a policy's taint
// state and is never read by transfer_taint/process_gas_fee (§3).
type counterTable struct {
	counters map[chain.Account]Counters
}

func newCounterTable() counterTable {
	return counterTable{counters: make(map[chain.Account]Counters)}
}

func (t *counterTable) get(a chain.Account) Counters {
	return t.counters[a]
}

func (t *counterTable) incr(a chain.Account, field CounterField) {
	c := t.counters[a]
	switch field {
	case CounterIncoming:
		c.Incoming++
	case CounterOutgoing:
		c.Outgoing++
	case CounterIncomingFee:
		c.IncomingFee++
	case CounterOutgoingFee:
		c.OutgoingFee++
	}
	t.counters[a] = c
}
