package blacklist

import (
	"encoding/json"
	"math/big"
	"sort"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// Pair is one tainted-inflow entry in a FIFO queue: Tainted is the portion
// of Total considered tainted (§4.4). 0 ≤ Tainted ≤ Total, Total > 0.
type Pair struct {
	Tainted *big.Int
	Total   *big.Int
}

// MarshalJSON renders Pair as the §6 [tainted, total] two-element array.
func (p Pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]*big.Int{p.Tainted, p.Total})
}

// UnmarshalJSON parses a [tainted, total] two-element array into p.
func (p *Pair) UnmarshalJSON(data []byte) error {
	var pair [2]*big.Int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.Tainted, p.Total = pair[0], pair[1]
	return nil
}

// FIFO is the FIFO-policy variant: an ordered queue of tainted-inflow pairs
// per (account, currency), consumed from the head on send (§4.4).
type FIFO struct {
	queues  map[chain.Account]map[chain.Currency][]Pair
	fullyOn map[chain.Account]map[chain.Currency]struct{}
	counterTable
}

// NewFIFO constructs an empty FIFO store.
func NewFIFO() *FIFO {
	return &FIFO{
		queues:       make(map[chain.Account]map[chain.Currency][]Pair),
		fullyOn:      make(map[chain.Account]map[chain.Currency]struct{}),
		counterTable: newCounterTable(),
	}
}

// Add appends a [tainted, total] pair to (a, c)'s queue. A zero-tainted
// pair is coalesced into the existing tail if the tail is also
// zero-tainted, collapsing runs of untainted inflows into one entry
// (§4.4).
func (f *FIFO) Add(a chain.Account, c chain.Currency, tainted, total *big.Int) {
	if !validAccount(a) || total == nil || total.Sign() <= 0 {
		return
	}
	if tainted == nil {
		tainted = zero()
	}
	m := f.queues[a]
	if m == nil {
		m = make(map[chain.Currency][]Pair)
		f.queues[a] = m
	}
	q := m[c]
	if tainted.Sign() == 0 && len(q) > 0 && q[len(q)-1].Tainted.Sign() == 0 {
		last := q[len(q)-1]
		q[len(q)-1] = Pair{Tainted: zero(), Total: new(big.Int).Add(last.Total, total)}
		return
	}
	m[c] = append(q, Pair{Tainted: new(big.Int).Set(tainted), Total: new(big.Int).Set(total)})
}

// Remove consumes from the head of (a, c)'s queue until amount is
// exhausted or the queue empties, returning the total tainted portion
// removed (§4.4).
func (f *FIFO) Remove(a chain.Account, amount *big.Int, c chain.Currency) *big.Int {
	m := f.queues[a]
	q := m[c]
	removed := zero()
	remaining := new(big.Int).Set(amount)

	i := 0
	for i < len(q) && remaining.Sign() > 0 {
		pair := q[i]
		consumed := new(big.Int).Set(remaining)
		if consumed.Cmp(pair.Total) > 0 {
			consumed.Set(pair.Total)
		}
		newTotal := new(big.Int).Sub(pair.Total, consumed)
		capTainted := new(big.Int).Sub(pair.Total, consumed)
		if capTainted.Cmp(pair.Tainted) > 0 {
			capTainted.Set(pair.Tainted)
		}
		removed = new(big.Int).Add(removed, new(big.Int).Sub(pair.Tainted, capTainted))
		q[i] = Pair{Tainted: capTainted, Total: newTotal}
		remaining = new(big.Int).Sub(remaining, consumed)
		if newTotal.Sign() == 0 {
			i++
		} else {
			break
		}
	}
	q = q[i:]
	if len(q) == 0 {
		if m != nil {
			delete(m, c)
			if len(m) == 0 {
				delete(f.queues, a)
			}
		}
	} else if m != nil {
		m[c] = q
	}
	return removed
}

func (f *FIFO) IsBlacklisted(a chain.Account, c chain.Currency) bool {
	m, ok := f.queues[a]
	if !ok {
		return false
	}
	if c == "" {
		for _, q := range m {
			if sumTainted(q).Sign() > 0 {
				return true
			}
		}
		return false
	}
	return sumTainted(m[c]).Sign() > 0
}

func (f *FIFO) Value(a chain.Account, c chain.Currency) *big.Int {
	return sumTainted(f.queues[a][c])
}

// TrackedValue returns the sum of Total across (a, c)'s queue: the FIFO
// variant's "balance still tracked" figure, used by Fifo's
// untracked-balance check (§4.5.5).
func (f *FIFO) TrackedValue(a chain.Account, c chain.Currency) *big.Int {
	q := f.queues[a][c]
	total := zero()
	for _, p := range q {
		total = new(big.Int).Add(total, p.Total)
	}
	return total
}

func sumTainted(q []Pair) *big.Int {
	total := zero()
	for _, p := range q {
		total = new(big.Int).Add(total, p.Tainted)
	}
	return total
}

func (f *FIFO) MarkFullyTainted(a chain.Account, c chain.Currency) {
	if !validAccount(a) {
		return
	}
	if f.fullyOn[a] == nil {
		f.fullyOn[a] = make(map[chain.Currency]struct{})
	}
	f.fullyOn[a][c] = struct{}{}
}

func (f *FIFO) IsFullyTainted(a chain.Account, c chain.Currency) bool {
	_, ok := f.fullyOn[a][c]
	return ok
}

func (f *FIFO) Accounts() []chain.Account {
	out := make([]chain.Account, 0, len(f.queues))
	for a := range f.queues {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

func (f *FIFO) Currencies(a chain.Account) []chain.Currency {
	m := f.queues[a]
	out := make([]chain.Currency, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}

func (f *FIFO) Metrics() (uniqueAccounts, uniqueCurrencies int) {
	seen := make(map[chain.Currency]struct{})
	for _, m := range f.queues {
		for c := range m {
			seen[c] = struct{}{}
		}
	}
	return len(f.queues), len(seen)
}

func (f *FIFO) TopAccounts(n int, currencies []chain.Currency) []AccountSum {
	sums := make([]AccountSum, 0, len(f.queues))
	for a, m := range f.queues {
		total := zero()
		for _, c := range currencies {
			total = new(big.Int).Add(total, sumTainted(m[c]))
		}
		if total.Sign() > 0 {
			sums = append(sums, AccountSum{Account: a, Sum: total})
		}
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].Sum.Cmp(sums[j].Sum) > 0 })
	if n < len(sums) {
		sums = sums[:n]
	}
	return sums
}

func (f *FIFO) Counters(a chain.Account) Counters          { return f.get(a) }
func (f *FIFO) IncrCounter(a chain.Account, fld CounterField) { f.incr(a, fld) }

// fifoSnapshot is the §6 FIFO snapshot shape:
// {account: {currency: [[tainted, total], ...]}}.
type fifoSnapshot struct {
	Queues  map[chain.Account]map[chain.Currency][]Pair   `json:"queues"`
	FullyOn map[chain.Account]map[chain.Currency]struct{} `json:"all"`
}

func (f *FIFO) Snapshot() any {
	out := fifoSnapshot{
		Queues:  make(map[chain.Account]map[chain.Currency][]Pair, len(f.queues)),
		FullyOn: make(map[chain.Account]map[chain.Currency]struct{}, len(f.fullyOn)),
	}
	for a, m := range f.queues {
		cp := make(map[chain.Currency][]Pair, len(m))
		for c, q := range m {
			qq := make([]Pair, len(q))
			for i, p := range q {
				qq[i] = Pair{Tainted: new(big.Int).Set(p.Tainted), Total: new(big.Int).Set(p.Total)}
			}
			cp[c] = qq
		}
		out.Queues[a] = cp
	}
	for a, m := range f.fullyOn {
		cp := make(map[chain.Currency]struct{}, len(m))
		for c := range m {
			cp[c] = struct{}{}
		}
		out.FullyOn[a] = cp
	}
	return out
}

func (f *FIFO) Load(snapshot any) error {
	s, ok := snapshot.(fifoSnapshot)
	if !ok {
		return errUnsupportedSnapshot
	}
	f.queues = s.Queues
	if f.queues == nil {
		f.queues = make(map[chain.Account]map[chain.Currency][]Pair)
	}
	f.fullyOn = s.FullyOn
	if f.fullyOn == nil {
		f.fullyOn = make(map[chain.Account]map[chain.Currency]struct{})
	}
	return nil
}

// MarshalJSON renders the §6 FIFO snapshot shape exactly:
// {account: {currency: [[tainted, total], ...]}}, with "all" reserved
// inside each account's map for its wholesale-tainted currencies.
func (s fifoSnapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]json.RawMessage, len(s.Queues))
	entry := func(a chain.Account) map[string]json.RawMessage {
		m := out[accountKey(a)]
		if m == nil {
			m = make(map[string]json.RawMessage)
			out[accountKey(a)] = m
		}
		return m
	}
	for a, m := range s.Queues {
		e := entry(a)
		for c, q := range m {
			raw, err := json.Marshal(q)
			if err != nil {
				return nil, err
			}
			e[string(c)] = raw
		}
	}
	for a, m := range s.FullyOn {
		currencies := make([]chain.Currency, 0, len(m))
		for c := range m {
			currencies = append(currencies, c)
		}
		raw, err := json.Marshal(currencies)
		if err != nil {
			return nil, err
		}
		entry(a)["all"] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the §6 FIFO snapshot shape back into s.
func (s *fifoSnapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Queues = make(map[chain.Account]map[chain.Currency][]Pair, len(raw))
	s.FullyOn = make(map[chain.Account]map[chain.Currency]struct{}, len(raw))
	for hex, m := range raw {
		a, ok := accountFromKey(hex)
		if !ok {
			continue
		}
		queues := make(map[chain.Currency][]Pair)
		for k, v := range m {
			if k == "all" {
				var currencies []chain.Currency
				if err := json.Unmarshal(v, &currencies); err != nil {
					return err
				}
				fullyOn := make(map[chain.Currency]struct{}, len(currencies))
				for _, c := range currencies {
					fullyOn[c] = struct{}{}
				}
				s.FullyOn[a] = fullyOn
				continue
			}
			var q []Pair
			if err := json.Unmarshal(v, &q); err != nil {
				return err
			}
			queues[chain.Currency(k)] = q
		}
		s.Queues[a] = queues
	}
	return nil
}
