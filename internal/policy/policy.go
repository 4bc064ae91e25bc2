// Package policy implements the five taint-transfer policies (§4.5) as a
// single tagged-variant dispatcher rather than a class hierarchy (§9
// design notes): Poison, Haircut, Seniority, ReversedSeniority, and Fifo
// all share one Engine type, switching on a Policy value rather than
// overriding base-class hooks.
package policy

import (
	"context"
	"math/big"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/ledger"
)

// Policy names one of the five taint-transfer rules (§1, §4.5).
type Policy int

const (
	Poison Policy = iota
	Haircut
	Seniority
	ReversedSeniority
	Fifo
)

// String renders p the way the CLI's --policy flag spells it.
func (p Policy) String() string {
	switch p {
	case Poison:
		return "poison"
	case Haircut:
		return "haircut"
	case Seniority:
		return "seniority"
	case ReversedSeniority:
		return "reversed_seniority"
	case Fifo:
		return "fifo"
	default:
		return "unknown"
	}
}

// Parse maps a --policy flag value to a Policy, or reports ok=false.
func Parse(s string) (Policy, bool) {
	switch s {
	case "poison":
		return Poison, true
	case "haircut":
		return Haircut, true
	case "seniority":
		return Seniority, true
	case "reversed_seniority":
		return ReversedSeniority, true
	case "fifo":
		return Fifo, true
	default:
		return 0, false
	}
}

// NewStore constructs the blacklist.Store variant p requires (§4.4):
// Poison uses Set, Haircut/Seniority/ReversedSeniority use Dict, Fifo uses
// its own FIFO queue store.
func (p Policy) NewStore() blacklist.Store {
	switch p {
	case Poison:
		return blacklist.NewSet()
	case Fifo:
		return blacklist.NewFIFO()
	default:
		return blacklist.NewDict()
	}
}

// Engine dispatches transfer_taint/process_gas_fee per the active Policy
// (§4.5). It composes a Store and, where the policy needs one, a
// per-block ledger.Ledger; it holds no state of its own beyond the
// permanent-taint flag set and the active policy (§9: shared orchestration
// belongs to the composer, not a superclass).
type Engine struct {
	policy    Policy
	store     blacklist.Store
	permanent map[chain.Account]struct{}
}

// NewEngine builds an Engine dispatching to policy, backed by store (which
// must be the variant policy.NewStore() returns).
func NewEngine(p Policy, store blacklist.Store) *Engine {
	return &Engine{policy: p, store: store, permanent: make(map[chain.Account]struct{})}
}

// Store returns the engine's backing blacklist store.
func (e *Engine) Store() blacklist.Store { return e.store }

// Policy returns the active policy.
func (e *Engine) Policy() Policy { return e.policy }

// PermanentlyTaintAccount sets a's permanent-taint flag (§4.5.6): every
// outflow from a transfers its full sent amount as taint, modeling an
// infinite taint source (e.g. a mixer pool).
func (e *Engine) PermanentlyTaintAccount(a chain.Account) {
	e.permanent[a] = struct{}{}
}

// IsPermanentlyTainted reports a's permanent-taint flag.
func (e *Engine) IsPermanentlyTainted(a chain.Account) bool {
	_, ok := e.permanent[a]
	return ok
}

// SeedAccount adds a to the blacklist wholesale: under Poison it is simply
// marked tainted; under the value-bearing policies its current native and
// WETH balances are snapshotted as tainted via FullyTaintToken (§4.5.7).
func (e *Engine) SeedAccount(ctx context.Context, lg *ledger.Ledger, a chain.Account) error {
	if e.policy == Poison {
		e.store.Add(a, "", nil, nil)
		return nil
	}
	for _, c := range []chain.Currency{chain.NativeCurrency, chain.WETHCurrency} {
		if err := e.FullyTaintToken(ctx, lg, a, c); err != nil {
			return err
		}
	}
	return nil
}

// FullyTaintToken snapshots a's current balance of c and adds it as
// tainted wholesale, recording c in a's "all" set so it is never
// re-tainted this way again (§4.5.7, §3).
func (e *Engine) FullyTaintToken(ctx context.Context, lg *ledger.Ledger, a chain.Account, c chain.Currency) error {
	if e.store.IsFullyTainted(a, c) {
		return nil
	}
	bal, err := lg.GetTempBalance(ctx, a, c)
	if err != nil {
		return err
	}
	e.store.MarkFullyTainted(a, c)
	if chain.ZeroAmount(bal) {
		return nil
	}
	switch e.policy {
	case Fifo:
		e.store.Add(a, c, bal, bal)
	default:
		e.store.Add(a, c, bal, nil)
	}
	return nil
}

// MaybeFullyTaintOnTokenTransfer implements §4.5.7's second clause: the
// first time a currently blacklisted account a appears as sender or
// receiver of a transfer in a token currency not yet fully-tainted for it,
// that token's balance is snapshotted and tainted wholesale before the
// transfer itself is processed. Accounts carrying no taint, native ETH and
// WETH are skipped.
func (e *Engine) MaybeFullyTaintOnTokenTransfer(ctx context.Context, lg *ledger.Ledger, a chain.Account, c chain.Currency) error {
	if c.IsNative() || c == chain.WETHCurrency {
		return nil
	}
	if !e.store.IsBlacklisted(a, "") {
		return nil
	}
	return e.FullyTaintToken(ctx, lg, a, c)
}

// TransferTaint implements transfer_taint (§4.5): amountSent of currencyIn
// moves from 'from' to 'to', emerging as currencyOut on the receiving side
// (only different for WETH wrap/unwrap, §4.5). It returns the amount of
// taint actually transferred and mutates the store and, where relevant,
// the ledger.
func (e *Engine) TransferTaint(ctx context.Context, lg *ledger.Ledger, from, to chain.Account, amountSent *big.Int, currencyIn, currencyOut chain.Currency) (*big.Int, error) {
	switch e.policy {
	case Poison:
		return e.poisonTransfer(from, to, amountSent)
	case Haircut:
		return e.haircutTransfer(ctx, lg, from, to, amountSent, currencyIn, currencyOut)
	case Seniority:
		return e.seniorityTransfer(from, to, amountSent, currencyIn, currencyOut)
	case ReversedSeniority:
		return e.reversedSeniorityTransfer(ctx, lg, from, to, amountSent, currencyIn, currencyOut)
	case Fifo:
		return e.fifoTransfer(ctx, lg, from, to, amountSent, currencyIn, currencyOut)
	default:
		return big.NewInt(0), nil
	}
}

// ProcessGasFee implements process_gas_fee (§4.5): totalFee is burned
// (base fee) plus minerFee tipped to miner; both portions may carry taint.
func (e *Engine) ProcessGasFee(ctx context.Context, lg *ledger.Ledger, sender, miner chain.Account, totalFee, minerFee *big.Int) error {
	switch e.policy {
	case Poison:
		return e.poisonGasFee(sender, miner)
	case Haircut:
		return e.haircutGasFee(ctx, lg, sender, miner, totalFee, minerFee)
	case Seniority:
		return e.seniorityGasFee(sender, miner, totalFee, minerFee)
	case ReversedSeniority:
		return e.reversedSeniorityGasFee(ctx, lg, sender, miner, totalFee, minerFee)
	case Fifo:
		return e.fifoGasFee(ctx, lg, sender, miner, totalFee, minerFee)
	default:
		return nil
	}
}

func zero() *big.Int { return big.NewInt(0) }
