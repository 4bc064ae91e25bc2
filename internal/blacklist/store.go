// Package blacklist implements the three blacklist-store variants the
// specification names (§4.4): Set, Dict, and FIFO. All three satisfy the
// same Store interface so the policy engine and propagator never need to
// know which variant backs a given run.
package blacklist

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// errUnsupportedSnapshot is returned by a variant's Load when handed a
// snapshot value of the wrong concrete type (a checkpoint built for a
// different policy's store variant).
var errUnsupportedSnapshot = errors.New("blacklist: snapshot type does not match store variant")

// Counters is the secondary, report-only tally of tainted transfers into
// and out of an account (§3, "Tainted-transaction counter"). It is never
// consulted by a policy's transfer_taint/process_gas_fee rule.
type Counters struct {
	Incoming     uint64
	Outgoing     uint64
	IncomingFee  uint64
	OutgoingFee  uint64
}

// Store is the interface all blacklist-store variants implement (§4.4).
// Amount is returned/accepted as *big.Int throughout since tainted values
// are unbounded non-negative integers (§3).
type Store interface {
	// Add records amount of currency c as tainted for account a. totalAmount
	// is only meaningful for the FIFO variant (the gross inflow the tainted
	// portion belongs to); other variants ignore it.
	Add(a chain.Account, c chain.Currency, amount, totalAmount *big.Int)

	// Remove consumes up to amount of tainted currency c from a and returns
	// the amount actually removed. The Set variant returns the sentinel -1
	// (see RemovedSentinel) since it has no per-currency value to consume.
	Remove(a chain.Account, amount *big.Int, c chain.Currency) *big.Int

	// IsBlacklisted reports whether a carries any taint at all (c == "") or
	// specifically in currency c.
	IsBlacklisted(a chain.Account, c chain.Currency) bool

	// Value returns the current tainted amount of (a, c). For Set this is
	// always 0 (structurally undefined; see RemovedSentinel doc).
	Value(a chain.Account, c chain.Currency) *big.Int

	// TrackedValue returns the FIFO-only notion of total gross inflow still
	// tracked for (a, c); other variants return Value(a, c).
	TrackedValue(a chain.Account, c chain.Currency) *big.Int

	// MarkFullyTainted records that c has been wholesale-snapshotted for a
	// (§4.5.7); IsFullyTainted reports it back.
	MarkFullyTainted(a chain.Account, c chain.Currency)
	IsFullyTainted(a chain.Account, c chain.Currency) bool

	// Accounts returns every account that has an entry in the store, for
	// sanity checks and reporting: for Set every member, for Dict every
	// account with a nonzero value, for FIFO every account with a non-empty
	// queue (which may hold only untainted inflows). An account that has
	// only a fully-tainted marker is listed by Set but not by Dict or FIFO.
	Accounts() []chain.Account

	// Currencies returns the currencies carrying taint for a (excluding the
	// reserved "all" bookkeeping key).
	Currencies(a chain.Account) []chain.Currency

	// Metrics returns (unique tainted accounts, unique tainted currencies)
	// across the whole store.
	Metrics() (uniqueAccounts, uniqueCurrencies int)

	// TopAccounts returns the top n accounts by summed tainted value across
	// currencies, restricted to the given currencies.
	TopAccounts(n int, currencies []chain.Currency) []AccountSum

	// Counters returns the tainted-transaction tally for a, and IncrCounter
	// bumps one of its four fields.
	Counters(a chain.Account) Counters
	IncrCounter(a chain.Account, field CounterField)

	// Snapshot/Load serialize and restore the store's taint state, in the
	// shape §6 names per variant. Tainted-transaction counters are not part
	// of the snapshot. The Set variant's snapshot holds only its member
	// accounts; its fully-tainted markers are not kept.
	Snapshot() any
	Load(snapshot any) error
}

// CounterField names one of Counters' four fields, for IncrCounter.
type CounterField int

const (
	CounterIncoming CounterField = iota
	CounterOutgoing
	CounterIncomingFee
	CounterOutgoingFee
)

// AccountSum pairs an account with its summed tainted value, for
// TopAccounts/reporting.
type AccountSum struct {
	Account chain.Account
	Sum     *big.Int
}

// RemovedSentinel is Set.Remove's return value: the Set variant has no
// per-currency amount to report, and callers must not treat this as a
// numeric taint (§4.4, §9).
var RemovedSentinel = big.NewInt(-1)

// allKey is the reserved per-account key holding the set of currencies
// already fully-tainted wholesale (§3).
const allKey = chain.Currency("all")

func zero() *big.Int { return big.NewInt(0) }

func validAccount(a chain.Account) bool {
	return a != chain.NullAddress
}

// accountKey/accountFromKey convert between chain.Account and the hex
// string used as a JSON object key in snapshot/checkpoint encodings.
func accountKey(a chain.Account) string { return a.Hex() }

func accountFromKey(s string) (chain.Account, bool) {
	if !common.IsHexAddress(s) {
		return chain.Account{}, false
	}
	return common.HexToAddress(s), true
}
