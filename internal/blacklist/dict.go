package blacklist

import (
	"encoding/json"
	"math/big"
	"sort"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// Dict is the Haircut/Seniority/Reversed-Seniority variant: a plain integer
// accumulator per (account, currency) (§4.4).
type Dict struct {
	values  map[chain.Account]map[chain.Currency]*big.Int
	fullyOn map[chain.Account]map[chain.Currency]struct{}
	counterTable
}

// NewDict constructs an empty Dict store.
func NewDict() *Dict {
	return &Dict{
		values:       make(map[chain.Account]map[chain.Currency]*big.Int),
		fullyOn:      make(map[chain.Account]map[chain.Currency]struct{}),
		counterTable: newCounterTable(),
	}
}

func (d *Dict) Add(a chain.Account, c chain.Currency, amount, _ *big.Int) {
	if !validAccount(a) || amount == nil || amount.Sign() == 0 {
		return
	}
	m := d.values[a]
	if m == nil {
		m = make(map[chain.Currency]*big.Int)
		d.values[a] = m
	}
	cur := m[c]
	if cur == nil {
		cur = zero()
	}
	m[c] = new(big.Int).Add(cur, amount)
}

// Remove subtracts up to amount from (a, c) and returns the amount actually
// removed: min(amount, value(a, c)). The entry is purged on reaching zero
// (§3, purge invariant).
func (d *Dict) Remove(a chain.Account, amount *big.Int, c chain.Currency) *big.Int {
	cur := d.Value(a, c)
	removed := new(big.Int).Set(amount)
	if removed.Cmp(cur) > 0 {
		removed.Set(cur)
	}
	remaining := new(big.Int).Sub(cur, removed)
	d.set(a, c, remaining)
	return removed
}

func (d *Dict) set(a chain.Account, c chain.Currency, v *big.Int) {
	m := d.values[a]
	if v.Sign() == 0 {
		if m != nil {
			delete(m, c)
			d.purgeIfEmpty(a)
		}
		return
	}
	if m == nil {
		m = make(map[chain.Currency]*big.Int)
		d.values[a] = m
	}
	m[c] = v
}

func (d *Dict) purgeIfEmpty(a chain.Account) {
	m := d.values[a]
	if len(m) == 0 {
		delete(d.values, a)
	}
}

func (d *Dict) IsBlacklisted(a chain.Account, c chain.Currency) bool {
	m, ok := d.values[a]
	if !ok {
		return false
	}
	if c == "" {
		return len(m) > 0
	}
	v, ok := m[c]
	return ok && v.Sign() > 0
}

func (d *Dict) Value(a chain.Account, c chain.Currency) *big.Int {
	m, ok := d.values[a]
	if !ok {
		return zero()
	}
	v, ok := m[c]
	if !ok {
		return zero()
	}
	return new(big.Int).Set(v)
}

func (d *Dict) TrackedValue(a chain.Account, c chain.Currency) *big.Int { return d.Value(a, c) }

func (d *Dict) MarkFullyTainted(a chain.Account, c chain.Currency) {
	if !validAccount(a) {
		return
	}
	if d.fullyOn[a] == nil {
		d.fullyOn[a] = make(map[chain.Currency]struct{})
	}
	d.fullyOn[a][c] = struct{}{}
}

func (d *Dict) IsFullyTainted(a chain.Account, c chain.Currency) bool {
	_, ok := d.fullyOn[a][c]
	return ok
}

func (d *Dict) Accounts() []chain.Account {
	out := make([]chain.Account, 0, len(d.values))
	for a := range d.values {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

func (d *Dict) Currencies(a chain.Account) []chain.Currency {
	m := d.values[a]
	out := make([]chain.Currency, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	return out
}

func (d *Dict) Metrics() (uniqueAccounts, uniqueCurrencies int) {
	seen := make(map[chain.Currency]struct{})
	for _, m := range d.values {
		for c := range m {
			seen[c] = struct{}{}
		}
	}
	return len(d.values), len(seen)
}

func (d *Dict) TopAccounts(n int, currencies []chain.Currency) []AccountSum {
	sums := make([]AccountSum, 0, len(d.values))
	for a, m := range d.values {
		total := zero()
		for _, c := range currencies {
			if v, ok := m[c]; ok {
				total = new(big.Int).Add(total, v)
			}
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

func (d *Dict) Counters(a chain.Account) Counters          { return d.get(a) }
func (d *Dict) IncrCounter(a chain.Account, f CounterField) { d.incr(a, f) }

// dictSnapshot is the §6 Dict snapshot shape: {account: {currency: int}},
// with each account's reserved "all" key holding the array of its
// fully-tainted currencies (decoded back into fullyOn).
type dictSnapshot struct {
	Values  map[chain.Account]map[chain.Currency]*big.Int      `json:"values"`
	FullyOn map[chain.Account]map[chain.Currency]struct{} `json:"all"`
}

func (d *Dict) Snapshot() any {
	out := dictSnapshot{
		Values:  make(map[chain.Account]map[chain.Currency]*big.Int, len(d.values)),
		FullyOn: make(map[chain.Account]map[chain.Currency]struct{}, len(d.fullyOn)),
	}
	for a, m := range d.values {
		cp := make(map[chain.Currency]*big.Int, len(m))
		for c, v := range m {
			cp[c] = new(big.Int).Set(v)
		}
		out.Values[a] = cp
	}
	for a, m := range d.fullyOn {
		cp := make(map[chain.Currency]struct{}, len(m))
		for c := range m {
			cp[c] = struct{}{}
		}
		out.FullyOn[a] = cp
	}
	return out
}

func (d *Dict) Load(snapshot any) error {
	s, ok := snapshot.(dictSnapshot)
	if !ok {
		return errUnsupportedSnapshot
	}
	d.values = s.Values
	if d.values == nil {
		d.values = make(map[chain.Account]map[chain.Currency]*big.Int)
	}
	d.fullyOn = s.FullyOn
	if d.fullyOn == nil {
		d.fullyOn = make(map[chain.Account]map[chain.Currency]struct{})
	}
	return nil
}

// MarshalJSON renders the §6 Dict snapshot shape exactly:
// {account: {currency: int, ...}}, with the reserved "all" key inside each
// account's map holding the array of wholesale-tainted currencies.
func (s dictSnapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]json.RawMessage, len(s.Values))
	entry := func(a chain.Account) map[string]json.RawMessage {
		m := out[accountKey(a)]
		if m == nil {
			m = make(map[string]json.RawMessage)
			out[accountKey(a)] = m
		}
		return m
	}
	for a, m := range s.Values {
		e := entry(a)
		for c, v := range m {
			raw, err := json.Marshal(v)
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

// UnmarshalJSON parses the §6 Dict snapshot shape back into s.
func (s *dictSnapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Values = make(map[chain.Account]map[chain.Currency]*big.Int, len(raw))
	s.FullyOn = make(map[chain.Account]map[chain.Currency]struct{}, len(raw))
	for hex, m := range raw {
		a, ok := accountFromKey(hex)
		if !ok {
			continue
		}
		values := make(map[chain.Currency]*big.Int)
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
			var amount big.Int
			if err := json.Unmarshal(v, &amount); err != nil {
				return err
			}
			values[chain.Currency(k)] = &amount
		}
		s.Values[a] = values
	}
	return nil
}
