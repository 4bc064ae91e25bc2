// Package sequencer builds the canonical, ordered event stream for one
// transaction (§4.2): it merges receipt-log events with trace-derived
// internal-transaction events, collapsing WETH Deposit/Withdrawal log
// entries with their internal-transfer counterpart, and always appends a
// trailing gas-fee event.
package sequencer

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// ErrMissingInternalCounterpart is returned when a receipt-log Deposit or
// Withdrawal has no corresponding internal-transfer entry to drain toward
// (§4.2 rule 5, §7): the trace stream is incomplete.
var ErrMissingInternalCounterpart = errors.New("sequencer: no internal-transaction counterpart for Deposit/Withdrawal log")

// ErrTrailingWrap is returned when a Deposit or Withdrawal event is found
// among the trace-only tail after the receipt-log stream is exhausted
// (§4.2 rule 6): any such entry should already have been collapsed in rule 5.
var ErrTrailingWrap = errors.New("sequencer: unaccounted-for Deposit/Withdrawal in trailing internal-transaction drain")

// GasFeeInputs carries the pieces the sequencer needs to build the final
// gas-fee event (§4.2 rule 7).
type GasFeeInputs struct {
	Sender   chain.Account
	Miner    chain.Account
	BaseFee  *big.Int // base fee per gas, may be nil pre-EIP-1559
	GasPrice *big.Int
	GasUsed  uint64
}

// Build returns the ordered event stream for one transaction, per §4.2.
//
// tx is the full transaction, receipt its receipt, logEvents the
// already-decoded Transfer/Deposit/Withdrawal events from receipt.Logs
// (chain.DecodeReceiptLogs, sorted by LogIndex), and internalEvents the
// Deposit/Withdrawal/InternalTransfer events derived from that
// transaction's traces (chain.TracesToEvents, in trace order).
func Build(tx chain.Transaction, receipt chain.Receipt, logEvents, internalEvents []chain.Event, gasFee GasFeeInputs) ([]chain.Event, error) {
	gasFeeEvent := buildGasFeeEvent(gasFee)

	// Rule 1: failed transactions emit no data-movement events.
	if receipt.Status == 0 {
		return []chain.Event{gasFeeEvent}, nil
	}

	internal := append([]chain.Event(nil), internalEvents...)

	// Rule 2: no logs and fewer than two internal transactions.
	if len(receipt.Logs) == 0 && len(internal) < 2 {
		out := make([]chain.Event, 0, 2)
		if len(internal) > 0 {
			out = append(out, internal[0])
		}
		out = append(out, gasFeeEvent)
		return out, nil
	}

	out := make([]chain.Event, 0, len(logEvents)+len(internal)+1)

	// Rule 4: outer ETH send, when to != WETH and value > 0.
	if tx.To != nil && *tx.To != chain.WETHAddress && !chain.ZeroAmount(tx.Value) {
		if len(internal) > 0 {
			out = append(out, internal[0])
			internal = internal[1:]
		}
	}

	// Rule 5: walk receipt-log events, draining internal transactions to
	// collapse Deposit/Withdrawal pairs.
	for _, e := range logEvents {
		switch ev := e.(type) {
		case chain.DepositEvent:
			if chain.ZeroAmount(ev.Wad) {
				out = append(out, e)
				continue
			}
			drained, rest, err := drainUntil(internal, isDeposit)
			if err != nil {
				return nil, fmt.Errorf("tx %s: %w", tx.Hash.Hex(), err)
			}
			out = append(out, drained...)
			internal = rest[1:] // drop the matched internal Deposit
			out = append(out, e)
		case chain.WithdrawalEvent:
			if chain.ZeroAmount(ev.Wad) {
				out = append(out, e)
				continue
			}
			drained, rest, err := drainUntil(internal, isWithdrawal)
			if err != nil {
				return nil, fmt.Errorf("tx %s: %w", tx.Hash.Hex(), err)
			}
			out = append(out, drained...)
			internal = rest[1:]
			out = append(out, e)
		default:
			out = append(out, e)
		}
	}

	// Rule 6: emit the remainder. A Deposit/Withdrawal surviving here is a
	// protocol violation.
	for _, e := range internal {
		switch e.(type) {
		case chain.DepositEvent, chain.WithdrawalEvent:
			return nil, fmt.Errorf("tx %s: %w", tx.Hash.Hex(), ErrTrailingWrap)
		default:
			out = append(out, e)
		}
	}

	// Rule 7: final gas-fee event.
	out = append(out, gasFeeEvent)
	return out, nil
}

func isDeposit(e chain.Event) bool {
	_, ok := e.(chain.DepositEvent)
	return ok
}

func isWithdrawal(e chain.Event) bool {
	_, ok := e.(chain.WithdrawalEvent)
	return ok
}

// drainUntil emits every entry of in up to (not including) the first entry
// matching want, then returns that matched-and-remaining tail as rest so
// the caller can drop its head. An internal stream exhausted before a match
// is found means the trace data is missing the Deposit/Withdrawal's
// counterpart (§4.2 rule 5, §7).
func drainUntil(in []chain.Event, want func(chain.Event) bool) (drained, rest []chain.Event, err error) {
	for i, e := range in {
		if want(e) {
			return in[:i], in[i:], nil
		}
		drained = append(drained, e)
	}
	return nil, nil, ErrMissingInternalCounterpart
}

func buildGasFeeEvent(g GasFeeInputs) chain.GasFeeEvent {
	gasUsed := big.NewInt(int64(g.GasUsed))
	gasPrice := g.GasPrice
	if gasPrice == nil {
		gasPrice = big.NewInt(0)
	}
	totalFee := mul256(gasUsed, gasPrice)

	minerFee := totalFee
	if g.BaseFee != nil {
		tip := new(big.Int).Sub(gasPrice, g.BaseFee)
		if tip.Sign() < 0 {
			tip = big.NewInt(0)
		}
		minerFee = mul256(gasUsed, tip)
	}

	return chain.GasFeeEvent{
		Sender:   g.Sender,
		Miner:    g.Miner,
		TotalFee: totalFee,
		MinerFee: minerFee,
	}
}

// mul256 multiplies a*b via uint256, the fast path for gas-fee arithmetic
// (gasUsed, gasPrice, and baseFee all fit comfortably in 256 bits in any
// real chain). It falls back to math/big on overflow, which one multiply
// by gasUsed can never actually trigger for realistic inputs but which
// keeps this helper correct rather than merely fast.
func mul256(a, b *big.Int) *big.Int {
	ua, overflowA := uint256.FromBig(a)
	ub, overflowB := uint256.FromBig(b)
	if overflowA || overflowB {
		return new(big.Int).Mul(a, b)
	}
	product, overflow := new(uint256.Int).MulOverflow(ua, ub)
	if overflow {
		return new(big.Int).Mul(a, b)
	}
	return product.ToBig()
}
