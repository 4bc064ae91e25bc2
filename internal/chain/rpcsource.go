package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru/v2"
)

// rawReceipt mirrors the subset of eth_getBlockReceipts' per-transaction
// JSON shape the engine needs; ethclient has no typed "get all receipts for
// a block" call, so this is decoded by hand.
type rawReceipt struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	Status            hexutil.Uint64  `json:"status"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big    `json:"effectiveGasPrice"`
	Logs              []rawLog        `json:"logs"`
}

type rawLog struct {
	Address  common.Address `json:"address"`
	Topics   []common.Hash  `json:"topics"`
	Data     hexutil.Bytes  `json:"data"`
	LogIndex hexutil.Uint64 `json:"logIndex"`
}

// rawTrace mirrors one trace_block entry (Erigon/Parity-style trace API).
type rawTrace struct {
	TransactionHash common.Hash `json:"transactionHash"`
	TraceAddress    []int       `json:"traceAddress"`
	Error           string      `json:"error"`
	Action          struct {
		From     common.Address `json:"from"`
		To       common.Address `json:"to"`
		Value    *hexutil.Big   `json:"value"`
		CallType string         `json:"callType"`
	} `json:"action"`
}

const contractCacheSize = 4096

// erc20ReadABI exposes only the three read methods the engine ever calls:
// balanceOf, name, symbol. Binding against this minimal ABI rather than a
// full ERC-20 ABI keeps call-site construction cheap and avoids pulling in
// write-method selectors we never use.
const erc20ReadABI = `[
	{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"type":"function"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function"}
]`

// RPCSource implements Source against a live Ethereum-style JSON-RPC node.
// get_block and balances are served by ethclient's typed calls;
// eth_getBlockReceipts and trace_block are raw RPC calls, since ethclient
// has no typed all-receipts-for-a-block call and the trace shape (callType,
// traceAddress, error) is not part of ethclient's typed surface.
type RPCSource struct {
	rpcClient *rpc.Client
	eth       *ethclient.Client
	abi       abi.ABI

	contracts *lru.Cache[common.Address, *bind.BoundContract]
}

// DialRPCSource connects to an Ethereum-style JSON-RPC endpoint.
func DialRPCSource(ctx context.Context, url string) (*RPCSource, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	parsedABI, err := abi.JSON(strings.NewReader(erc20ReadABI))
	if err != nil {
		return nil, err
	}
	contracts, err := lru.New[common.Address, *bind.BoundContract](contractCacheSize)
	if err != nil {
		return nil, err
	}
	return &RPCSource{
		rpcClient: rpcClient,
		eth:       ethclient.NewClient(rpcClient),
		abi:       parsedABI,
		contracts: contracts,
	}, nil
}

func (s *RPCSource) contractFor(addr common.Address) *bind.BoundContract {
	if c, ok := s.contracts.Get(addr); ok {
		return c
	}
	c := bind.NewBoundContract(addr, s.abi, s.eth, nil, nil)
	s.contracts.Add(addr, c)
	return c
}

func (s *RPCSource) GetBlock(ctx context.Context, number uint64) (*Block, error) {
	block, err := s.eth.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		if err.Error() == "not found" {
			return nil, ErrPruned
		}
		return nil, err
	}
	txs := make([]Transaction, 0, len(block.Transactions()))
	for _, tx := range block.Transactions() {
		to := tx.To()
		from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
		if err != nil {
			log.Debug("could not recover sender", "tx", tx.Hash(), "err", err)
		}
		txs = append(txs, Transaction{
			Hash:  tx.Hash(),
			From:  from,
			To:    to,
			Value: tx.Value(),
			Nonce: tx.Nonce(),
		})
	}
	return &Block{
		Number:        block.NumberU64(),
		Miner:         block.Coinbase(),
		BaseFeePerGas: block.BaseFee(),
		Transactions:  txs,
	}, nil
}

func (s *RPCSource) GetBlockReceipts(ctx context.Context, number uint64) ([]*Receipt, error) {
	var raw []rawReceipt
	err := s.rpcClient.CallContext(ctx, &raw, "eth_getBlockReceipts", rpc.BlockNumber(number))
	if err != nil {
		return nil, err
	}
	receipts := make([]*Receipt, 0, len(raw))
	for _, r := range raw {
		logs := make([]Log, 0, len(r.Logs))
		for _, l := range r.Logs {
			logs = append(logs, Log{
				Address:  l.Address,
				Topics:   l.Topics,
				Data:     l.Data,
				LogIndex: int(l.LogIndex),
			})
		}
		receipts = append(receipts, &Receipt{
			TxHash:            r.TransactionHash,
			Status:            uint64(r.Status),
			Logs:              logs,
			GasUsed:           uint64(r.GasUsed),
			EffectiveGasPrice: (*big.Int)(r.EffectiveGasPrice),
		})
	}
	return receipts, nil
}

func (s *RPCSource) TraceBlock(ctx context.Context, number uint64) ([]*Trace, error) {
	var raw []rawTrace
	err := s.rpcClient.CallContext(ctx, &raw, "trace_block", rpc.BlockNumber(number))
	if err != nil {
		return nil, err
	}
	traces := make([]*Trace, 0, len(raw))
	for _, t := range raw {
		traces = append(traces, &Trace{
			TransactionHash: t.TransactionHash,
			TraceAddress:    t.TraceAddress,
			From:            t.Action.From,
			To:              t.Action.To,
			Value:           (*big.Int)(t.Action.Value),
			CallType:        t.Action.CallType,
			Error:           t.Error,
		})
	}
	return traces, nil
}

func (s *RPCSource) GetBalance(ctx context.Context, account Account, number uint64) (*big.Int, error) {
	return s.eth.BalanceAt(ctx, account, new(big.Int).SetUint64(number))
}

func (s *RPCSource) BalanceOf(ctx context.Context, token Currency, account Account, number uint64) (*big.Int, error) {
	if token.IsNative() {
		return s.GetBalance(ctx, account, number)
	}
	contract := s.contractFor(token.Address())
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, BlockNumber: new(big.Int).SetUint64(number)}
	err := contract.Call(opts, &out, "balanceOf", account)
	if err != nil {
		if strings.Contains(err.Error(), "execution reverted") {
			return nil, ErrUnsupportedCall
		}
		return nil, ErrNoOutput
	}
	if len(out) == 0 {
		return nil, ErrNoOutput
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, ErrNoOutput
	}
	return v, nil
}

func (s *RPCSource) Name(ctx context.Context, token Currency) (string, bool, error) {
	return s.readString(ctx, token, "name")
}

func (s *RPCSource) Symbol(ctx context.Context, token Currency) (string, bool, error) {
	return s.readString(ctx, token, "symbol")
}

func (s *RPCSource) readString(ctx context.Context, token Currency, method string) (string, bool, error) {
	if token.IsNative() {
		return "", false, errors.New("chain: native currency has no contract to call")
	}
	contract := s.contractFor(token.Address())
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	err := contract.Call(opts, &out, method)
	if err != nil {
		// not a contract, or doesn't implement this read: treated the same
		// way as a failed balanceOf (§4.1), reported as "absent" rather
		// than propagated as an error.
		return "", false, nil
	}
	if len(out) == 0 {
		return "", false, nil
	}
	v, ok := out[0].(string)
	if !ok {
		return "", false, nil
	}
	return v, true, nil
}
