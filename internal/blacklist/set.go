package blacklist

import (
	"math/big"
	"sort"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// Set is the Poison-policy variant: it tracks only the set of tainted
// accounts, with no per-currency amounts (§4.4). get_blacklisted_amount is
// structurally undefined here; Poison totals are computed by the caller by
// summing live balances of every account Accounts() returns.
type Set struct {
	accounts map[chain.Account]struct{}
	fullyOn  map[chain.Account]map[chain.Currency]struct{}
	counterTable
}

// NewSet constructs an empty Set store.
func NewSet() *Set {
	return &Set{
		accounts:     make(map[chain.Account]struct{}),
		fullyOn:      make(map[chain.Account]map[chain.Currency]struct{}),
		counterTable: newCounterTable(),
	}
}

func (s *Set) Add(a chain.Account, _ chain.Currency, _, _ *big.Int) {
	if !validAccount(a) {
		return
	}
	s.accounts[a] = struct{}{}
}

// Remove erases a from the set and returns RemovedSentinel, per §4.4: the
// Set variant has no numeric value to report.
func (s *Set) Remove(a chain.Account, _ *big.Int, _ chain.Currency) *big.Int {
	delete(s.accounts, a)
	return RemovedSentinel
}

func (s *Set) IsBlacklisted(a chain.Account, _ chain.Currency) bool {
	_, ok := s.accounts[a]
	return ok
}

// Value always returns 0 for Set (§4.4).
func (s *Set) Value(chain.Account, chain.Currency) *big.Int { return zero() }

func (s *Set) TrackedValue(a chain.Account, c chain.Currency) *big.Int { return s.Value(a, c) }

func (s *Set) MarkFullyTainted(a chain.Account, c chain.Currency) {
	if !validAccount(a) {
		return
	}
	s.accounts[a] = struct{}{}
	if s.fullyOn[a] == nil {
		s.fullyOn[a] = make(map[chain.Currency]struct{})
	}
	s.fullyOn[a][c] = struct{}{}
}

func (s *Set) IsFullyTainted(a chain.Account, c chain.Currency) bool {
	_, ok := s.fullyOn[a][c]
	return ok
}

func (s *Set) Accounts() []chain.Account {
	out := make([]chain.Account, 0, len(s.accounts))
	for a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

// Currencies always returns nil for Set: currency is not tracked, only
// membership.
func (s *Set) Currencies(chain.Account) []chain.Currency { return nil }

func (s *Set) Metrics() (uniqueAccounts, uniqueCurrencies int) {
	return len(s.accounts), 0
}

// TopAccounts is not meaningful for Set since there is no per-account
// amount; it returns every tainted account with a zero sum, preserving
// the interface for a propagator that logs top-5 regardless of policy.
func (s *Set) TopAccounts(n int, _ []chain.Currency) []AccountSum {
	accounts := s.Accounts()
	if n < len(accounts) {
		accounts = accounts[:n]
	}
	out := make([]AccountSum, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountSum{Account: a, Sum: zero()})
	}
	return out
}

func (s *Set) Counters(a chain.Account) Counters          { return s.get(a) }
func (s *Set) IncrCounter(a chain.Account, f CounterField) { s.incr(a, f) }

// setSnapshot is the §6 Set snapshot shape: a plain array of accounts.
type setSnapshot []chain.Account

func (s *Set) Snapshot() any {
	return setSnapshot(s.Accounts())
}

func (s *Set) Load(snapshot any) error {
	accounts, ok := snapshot.(setSnapshot)
	if !ok {
		return errUnsupportedSnapshot
	}
	s.accounts = make(map[chain.Account]struct{}, len(accounts))
	for _, a := range accounts {
		s.accounts[a] = struct{}{}
	}
	return nil
}
