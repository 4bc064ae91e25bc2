package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrPruned is returned by Source.GetBlock when the requested block is not
// available at the source (pruned history). The propagator returns it
// wrapped, and cmd/blacklist maps it to exit code -32 (§6).
var ErrPruned = errors.New("chain: start block is pruned at source")

// ErrNoOutput is returned by Source.BalanceOf when the call returned no
// output at all: the address is not a contract, or not an ERC-20-like
// token. The policy layer treats this identically to ErrUnsupportedCall.
var ErrNoOutput = errors.New("chain: balanceOf call returned no output")

// ErrUnsupportedCall is returned by Source.BalanceOf when the call reverted:
// the contract exists but does not implement balanceOf the way we expect.
var ErrUnsupportedCall = errors.New("chain: balanceOf call reverted")

// Transaction is the subset of an RPC "full transaction" the engine needs.
type Transaction struct {
	Hash  common.Hash
	From  Account
	To    *Account // nil for contract creation
	Value *big.Int
	Nonce uint64
}

// Log is one decoded-or-not entry of a receipt's log list.
type Log struct {
	Address  Account
	Topics   []common.Hash
	Data     []byte
	LogIndex int
}

// Receipt is the subset of a transaction receipt the engine needs.
type Receipt struct {
	TxHash            common.Hash
	Status            uint64 // 1 success, 0 failure
	Logs              []Log
	GasUsed           uint64
	EffectiveGasPrice *big.Int
}

// Trace is one entry of a block's execution trace (e.g. Erigon/Geth-style
// trace_block / debug_traceBlockByNumber with callTracer).
type Trace struct {
	TransactionHash common.Hash
	TraceAddress    []int
	From, To        Account
	Value           *big.Int
	CallType        string // "call", "delegatecall", "staticcall", ...
	Error           string // non-empty if this call (or an ancestor) reverted
}

// Block is the subset of a block the engine needs.
type Block struct {
	Number        uint64
	Miner         Account
	BaseFeePerGas *big.Int // nil pre-EIP-1559
	Transactions  []Transaction
}

// Source is the chain-source contract the core consumes (§6). All methods
// are blocking RPC calls and are the engine's only suspension points (§5).
type Source interface {
	GetBlock(ctx context.Context, number uint64) (*Block, error)
	GetBlockReceipts(ctx context.Context, number uint64) ([]*Receipt, error)
	TraceBlock(ctx context.Context, number uint64) ([]*Trace, error)
	GetBalance(ctx context.Context, account Account, number uint64) (*big.Int, error)
	BalanceOf(ctx context.Context, token Currency, account Account, number uint64) (*big.Int, error)
	Name(ctx context.Context, token Currency) (string, bool, error)
	Symbol(ctx context.Context, token Currency) (string, bool, error)
}
