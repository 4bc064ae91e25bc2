package sequencer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

var (
	alice = common.HexToAddress("0xa11ce00000000000000000000000000000000a")
	bob   = common.HexToAddress("0xb0b0000000000000000000000000000000000b")
	miner = common.HexToAddress("0x1111100000000000000000000000000000000a")
)

func txHash() common.Hash { return common.HexToHash("0x01") }

func baseTx() chain.Transaction {
	to := bob
	return chain.Transaction{Hash: txHash(), From: alice, To: &to, Value: big.NewInt(1), Nonce: 0}
}

func gasInputs() GasFeeInputs {
	return GasFeeInputs{Sender: alice, Miner: miner, BaseFee: big.NewInt(1), GasPrice: big.NewInt(3), GasUsed: 21000}
}

func TestBuildFailedTransactionOnlyEmitsGasFee(t *testing.T) {
	receipt := chain.Receipt{TxHash: txHash(), Status: 0}
	events, err := Build(baseTx(), receipt, nil, nil, gasInputs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 event for a failed tx, got %d", len(events))
	}
	if _, ok := events[0].(chain.GasFeeEvent); !ok {
		t.Errorf("expected a GasFeeEvent, got %T", events[0])
	}
}

func TestBuildNoLogsFewInternalsEmitsOneTransferPlusGasFee(t *testing.T) {
	receipt := chain.Receipt{TxHash: txHash(), Status: 1}
	internal := []chain.Event{
		chain.InternalTransferEvent{From: alice, To: bob, Value: big.NewInt(5), TraceAddress: []int{0}},
	}
	events, err := Build(baseTx(), receipt, nil, internal, gasInputs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events (1 internal transfer + gas fee), got %d: %#v", len(events), events)
	}
	if _, ok := events[0].(chain.InternalTransferEvent); !ok {
		t.Errorf("expected first event InternalTransferEvent, got %T", events[0])
	}
	if _, ok := events[1].(chain.GasFeeEvent); !ok {
		t.Errorf("expected trailing GasFeeEvent, got %T", events[1])
	}
}

func TestBuildCollapsesDepositWithInternalCounterpart(t *testing.T) {
	receipt := chain.Receipt{TxHash: txHash(), Status: 1}
	logEvents := []chain.Event{
		chain.DepositEvent{Dst: alice, Wad: big.NewInt(10), LogIndex: 0},
	}
	internal := []chain.Event{
		chain.InternalTransferEvent{From: bob, To: alice, Value: big.NewInt(2), TraceAddress: []int{0}},
		chain.DepositEvent{Dst: alice, Wad: big.NewInt(10), LogIndex: -1},
	}
	events, err := Build(baseTx(), receipt, logEvents, internal, gasInputs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// baseTx sends value to bob, so the first internal entry is emitted as
	// the outer ETH send (rule 4); the matched internal Deposit is dropped,
	// then come the receipt-log Deposit itself and the trailing gas-fee event.
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %#v", len(events), events)
	}
	if _, ok := events[0].(chain.InternalTransferEvent); !ok {
		t.Errorf("expected drained internal transfer first, got %T", events[0])
	}
	if _, ok := events[1].(chain.DepositEvent); !ok {
		t.Errorf("expected the receipt-log Deposit second, got %T", events[1])
	}
	if _, ok := events[2].(chain.GasFeeEvent); !ok {
		t.Errorf("expected trailing gas fee, got %T", events[2])
	}
}

func TestBuildMissingInternalCounterpartErrors(t *testing.T) {
	// receipt.Logs must be nonempty here so rule 2's "no logs" shortcut
	// doesn't short-circuit before the Deposit/internal matching in rule 5.
	receipt := chain.Receipt{TxHash: txHash(), Status: 1, Logs: []chain.Log{{LogIndex: 0}}}
	logEvents := []chain.Event{
		chain.DepositEvent{Dst: alice, Wad: big.NewInt(10), LogIndex: 0},
	}
	_, err := Build(baseTx(), receipt, logEvents, nil, gasInputs())
	if err == nil {
		t.Fatal("expected an error when no internal-transaction counterpart exists for a nonzero Deposit log")
	}
}

func TestBuildGasFeeEventSplitsBaseAndTip(t *testing.T) {
	receipt := chain.Receipt{TxHash: txHash(), Status: 1}
	events, err := Build(baseTx(), receipt, nil, nil, gasInputs())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	fee := events[len(events)-1].(chain.GasFeeEvent)
	wantTotal := big.NewInt(21000 * 3)
	wantMiner := big.NewInt(21000 * (3 - 1))
	if fee.TotalFee.Cmp(wantTotal) != 0 {
		t.Errorf("expected total fee %s, got %s", wantTotal, fee.TotalFee)
	}
	if fee.MinerFee.Cmp(wantMiner) != 0 {
		t.Errorf("expected miner fee %s, got %s", wantMiner, fee.MinerFee)
	}
}

func TestMul256MatchesBigIntMul(t *testing.T) {
	a := big.NewInt(123456789)
	b := big.NewInt(987654321)
	got := mul256(a, b)
	want := new(big.Int).Mul(a, b)
	if got.Cmp(want) != 0 {
		t.Errorf("mul256(%s, %s) = %s, want %s", a, b, got, want)
	}
}
