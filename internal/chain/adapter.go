package chain

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	balanceCacheSize = 1024
	nameCacheSize    = 64
)

type balanceKey struct {
	account Account
	token   Currency
	block   uint64
}

type nameSymbol struct {
	name, symbol       string
	hasName, hasSymbol bool
}

// Adapter wraps a raw Source with the canonical-event decoding and the
// LRU caches the specification requires (§4.1). It is not safe to share
// across concurrently-running propagation jobs, mirroring the
// single-threaded resource model (§5).
type Adapter struct {
	src Source

	balanceOf *lru.Cache[balanceKey, *big.Int]
	nameSym   *lru.Cache[Currency, nameSymbol]
}

// NewAdapter builds an Adapter over src with caches sized as recommended by
// the specification.
func NewAdapter(src Source) *Adapter {
	balanceOf, err := lru.New[balanceKey, *big.Int](balanceCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size, which is a programmer error
	}
	nameSym, err := lru.New[Currency, nameSymbol](nameCacheSize)
	if err != nil {
		panic(err)
	}
	return &Adapter{src: src, balanceOf: balanceOf, nameSym: nameSym}
}

// GetBlock, GetBlockReceipts and TraceBlock are passed straight through;
// there is nothing to cache across block numbers for these, since a
// propagation job only ever visits each block once.
func (a *Adapter) GetBlock(ctx context.Context, number uint64) (*Block, error) {
	return a.src.GetBlock(ctx, number)
}

func (a *Adapter) GetBlockReceipts(ctx context.Context, number uint64) ([]*Receipt, error) {
	return a.src.GetBlockReceipts(ctx, number)
}

func (a *Adapter) TraceBlock(ctx context.Context, number uint64) ([]*Trace, error) {
	return a.src.TraceBlock(ctx, number)
}

func (a *Adapter) GetBalance(ctx context.Context, account Account, number uint64) (*big.Int, error) {
	return a.src.GetBalance(ctx, account, number)
}

// BalanceOf returns the cached ERC-20-like balance of account in token at
// number. ErrNoOutput and ErrUnsupportedCall are both logged at debug level
// and surfaced to the caller unchanged; the policy layer treats both as 0.
func (a *Adapter) BalanceOf(ctx context.Context, token Currency, account Account, number uint64) (*big.Int, error) {
	key := balanceKey{account: account, token: token, block: number}
	if v, ok := a.balanceOf.Get(key); ok {
		return v, nil
	}
	v, err := a.src.BalanceOf(ctx, token, account, number)
	if err != nil {
		log.Debug("balanceOf failed", "token", token, "account", account, "block", number, "err", err)
		return nil, err
	}
	a.balanceOf.Add(key, v)
	return v, nil
}

// NameSymbol returns the cached (name, symbol) of token, with per-field
// "absent" flags. A failed lookup (not a token, or unsupported methods) is
// cached as an all-absent entry so repeated probes of the same address
// never re-hit the RPC.
func (a *Adapter) NameSymbol(ctx context.Context, token Currency) (name string, symbol string, hasName, hasSymbol bool) {
	if v, ok := a.nameSym.Get(token); ok {
		return v.name, v.symbol, v.hasName, v.hasSymbol
	}
	var entry nameSymbol
	if n, ok, err := a.src.Name(ctx, token); err == nil && ok {
		entry.name, entry.hasName = n, true
	} else if err != nil {
		log.Debug("name() failed", "token", token, "err", err)
	}
	if s, ok, err := a.src.Symbol(ctx, token); err == nil && ok {
		entry.symbol, entry.hasSymbol = s, true
	} else if err != nil {
		log.Debug("symbol() failed", "token", token, "err", err)
	}
	a.nameSym.Add(token, entry)
	return entry.name, entry.symbol, entry.hasName, entry.hasSymbol
}

// Name and Symbol satisfy the Source interface directly, backed by the same
// combined cache NameSymbol uses, so an Adapter can stand in anywhere a
// Source is expected (the ledger and the sanity check both take one).
func (a *Adapter) Name(ctx context.Context, token Currency) (string, bool, error) {
	name, _, hasName, _ := a.NameSymbol(ctx, token)
	return name, hasName, nil
}

func (a *Adapter) Symbol(ctx context.Context, token Currency) (string, bool, error) {
	_, symbol, _, hasSymbol := a.NameSymbol(ctx, token)
	return symbol, hasSymbol, nil
}

// DecodeReceiptLogs turns a receipt's raw logs into the Transfer/Deposit/
// Withdrawal events they encode. Logs whose first topic matches none of the
// three known event signatures are dropped silently (§4.1). The result is
// sorted by LogIndex, though in practice receipts already arrive ordered.
func DecodeReceiptLogs(logs []Log) []Event {
	events := make([]Event, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		switch l.Topics[0] {
		case TransferTopic:
			if ev, ok := decodeTransfer(l); ok {
				events = append(events, ev)
			}
		case DepositTopic:
			if ev, ok := decodeDeposit(l); ok {
				events = append(events, ev)
			}
		case WithdrawalTopic:
			if ev, ok := decodeWithdrawal(l); ok {
				events = append(events, ev)
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return logIndexOf(events[i]) < logIndexOf(events[j])
	})
	return events
}

func logIndexOf(e Event) int {
	switch v := e.(type) {
	case TransferEvent:
		return v.LogIndex
	case DepositEvent:
		return v.LogIndex
	case WithdrawalEvent:
		return v.LogIndex
	default:
		return -1
	}
}

func decodeTransfer(l Log) (TransferEvent, bool) {
	if len(l.Topics) < 3 || len(l.Data) < 32 {
		return TransferEvent{}, false
	}
	from := common.BytesToAddress(l.Topics[1].Bytes())
	to := common.BytesToAddress(l.Topics[2].Bytes())
	value := new(big.Int).SetBytes(l.Data[:32])
	return TransferEvent{
		Token:    CurrencyOf(l.Address),
		From:     from,
		To:       to,
		Value:    value,
		LogIndex: l.LogIndex,
	}, true
}

func decodeDeposit(l Log) (DepositEvent, bool) {
	if len(l.Topics) < 2 || len(l.Data) < 32 {
		return DepositEvent{}, false
	}
	dst := common.BytesToAddress(l.Topics[1].Bytes())
	wad := new(big.Int).SetBytes(l.Data[:32])
	return DepositEvent{Dst: dst, Wad: wad, LogIndex: l.LogIndex}, true
}

func decodeWithdrawal(l Log) (WithdrawalEvent, bool) {
	if len(l.Topics) < 2 || len(l.Data) < 32 {
		return WithdrawalEvent{}, false
	}
	src := common.BytesToAddress(l.Topics[1].Bytes())
	wad := new(big.Int).SetBytes(l.Data[:32])
	return WithdrawalEvent{Src: src, Wad: wad, LogIndex: l.LogIndex}, true
}

// TracesToEvents converts the traces belonging to a single transaction into
// InternalTransfer/Deposit/Withdrawal events (§4.1). A trace becomes an
// event iff it has nonzero value, CallType "call", and no ancestor (by
// TraceAddress prefix) was reverted. Traces are assumed to already be in
// the source's natural (depth-first) order.
func TracesToEvents(traces []Trace) []Event {
	var revertedPrefixes [][]int
	events := make([]Event, 0, len(traces))

	for _, t := range traces {
		if t.Error != "" {
			revertedPrefixes = append(revertedPrefixes, t.TraceAddress)
			continue
		}
		if hasRevertedAncestor(t.TraceAddress, revertedPrefixes) {
			continue
		}
		if ZeroAmount(t.Value) || t.CallType != "call" {
			continue
		}
		switch {
		case t.To == WETHAddress:
			events = append(events, DepositEvent{Dst: t.From, Wad: t.Value, LogIndex: -1})
		case t.From == WETHAddress:
			events = append(events, WithdrawalEvent{Src: t.To, Wad: t.Value, LogIndex: -1})
		default:
			events = append(events, InternalTransferEvent{From: t.From, To: t.To, Value: t.Value, TraceAddress: t.TraceAddress})
		}
	}
	return events
}

func hasRevertedAncestor(addr []int, revertedPrefixes [][]int) bool {
	for _, prefix := range revertedPrefixes {
		if isPrefix(prefix, addr) {
			return true
		}
	}
	return false
}

// isPrefix reports whether prefix is a prefix of (or equal to) addr.
func isPrefix(prefix, addr []int) bool {
	if len(prefix) > len(addr) {
		return false
	}
	for i, v := range prefix {
		if addr[i] != v {
			return false
		}
	}
	return true
}
