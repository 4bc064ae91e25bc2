package chain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestDecodeReceiptLogsFiltersAndSorts(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")

	value := make([]byte, 32)
	value[31] = 5

	logs := []Log{
		{Address: token, Topics: []common.Hash{TransferTopic, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())}, Data: value, LogIndex: 2},
		{Address: token, Topics: []common.Hash{common.HexToHash("0xdeadbeef")}, Data: value, LogIndex: 1},
		{Address: token, Topics: []common.Hash{DepositTopic, common.BytesToHash(from.Bytes())}, Data: value, LogIndex: 0},
	}

	events := DecodeReceiptLogs(logs)
	if len(events) != 2 {
		t.Fatalf("expected 2 decoded events (unknown topic dropped), got %d", len(events))
	}
	if _, ok := events[0].(DepositEvent); !ok {
		t.Errorf("expected events sorted by LogIndex, first to be DepositEvent, got %T", events[0])
	}
	if _, ok := events[1].(TransferEvent); !ok {
		t.Errorf("expected second event to be TransferEvent, got %T", events[1])
	}
}

func TestTracesToEventsSkipsRevertedSubtree(t *testing.T) {
	weth := WETHAddress
	a := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	b := common.HexToAddress("0xbbbb000000000000000000000000000000000b")

	traces := []Trace{
		{TraceAddress: []int{0}, From: a, To: b, Value: big.NewInt(10), CallType: "call", Error: "execution reverted"},
		{TraceAddress: []int{0, 0}, From: b, To: weth, Value: big.NewInt(3), CallType: "call"}, // inside reverted subtree
		{TraceAddress: []int{1}, From: a, To: weth, Value: big.NewInt(7), CallType: "call"},    // sibling, should survive
	}

	events := TracesToEvents(traces)
	if len(events) != 1 {
		t.Fatalf("expected 1 surviving event, got %d: %#v", len(events), events)
	}
	dep, ok := events[0].(DepositEvent)
	if !ok {
		t.Fatalf("expected DepositEvent (call into WETH), got %T", events[0])
	}
	if dep.Dst != a || dep.Wad.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("unexpected deposit event: %#v", dep)
	}
}

func TestTracesToEventsZeroValueAndDelegatecallIgnored(t *testing.T) {
	a := common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	b := common.HexToAddress("0xbbbb000000000000000000000000000000000b")
	traces := []Trace{
		{TraceAddress: []int{0}, From: a, To: b, Value: big.NewInt(0), CallType: "call"},
		{TraceAddress: []int{1}, From: a, To: b, Value: big.NewInt(5), CallType: "delegatecall"},
	}
	if events := TracesToEvents(traces); len(events) != 0 {
		t.Errorf("expected no events from zero-value/delegatecall traces, got %d", len(events))
	}
}

// stubSource is a minimal in-memory chain.Source for Adapter cache tests.
type stubSource struct {
	balanceOf      *big.Int
	balanceOfCalls int
	balanceErr     error

	nameErr  error
	nameCalls int
}

func (s *stubSource) GetBlock(ctx context.Context, number uint64) (*Block, error) { return nil, nil }
func (s *stubSource) GetBlockReceipts(ctx context.Context, number uint64) ([]*Receipt, error) {
	return nil, nil
}
func (s *stubSource) TraceBlock(ctx context.Context, number uint64) ([]*Trace, error) {
	return nil, nil
}
func (s *stubSource) GetBalance(ctx context.Context, account Account, number uint64) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (s *stubSource) BalanceOf(ctx context.Context, token Currency, account Account, number uint64) (*big.Int, error) {
	s.balanceOfCalls++
	if s.balanceErr != nil {
		return nil, s.balanceErr
	}
	return s.balanceOf, nil
}
func (s *stubSource) Name(ctx context.Context, token Currency) (string, bool, error) {
	s.nameCalls++
	if s.nameErr != nil {
		return "", false, s.nameErr
	}
	return "Token", true, nil
}
func (s *stubSource) Symbol(ctx context.Context, token Currency) (string, bool, error) {
	return "TKN", true, nil
}

func TestAdapterBalanceOfCaches(t *testing.T) {
	src := &stubSource{balanceOf: big.NewInt(42)}
	a := NewAdapter(src)
	acct := common.HexToAddress("0xcccc0000000000000000000000000000000001")
	tok := CurrencyOf(common.HexToAddress("0xdddd0000000000000000000000000000000002"))

	for i := 0; i < 3; i++ {
		v, err := a.BalanceOf(context.Background(), tok, acct, 100)
		if err != nil {
			t.Fatalf("BalanceOf: %v", err)
		}
		if v.Cmp(big.NewInt(42)) != 0 {
			t.Errorf("expected 42, got %s", v)
		}
	}
	if src.balanceOfCalls != 1 {
		t.Errorf("expected a single underlying BalanceOf call due to caching, got %d", src.balanceOfCalls)
	}
}

func TestAdapterNameCachesAbsence(t *testing.T) {
	src := &stubSource{nameErr: ErrUnsupportedCall}
	a := NewAdapter(src)
	tok := CurrencyOf(common.HexToAddress("0xeeee0000000000000000000000000000000003"))

	name, hasName, err := a.Name(context.Background(), tok)
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if hasName || name != "" {
		t.Errorf("expected absent name, got %q hasName=%v", name, hasName)
	}
	if _, _, _ = a.Name(context.Background(), tok); src.nameCalls != 1 {
		t.Errorf("expected name() to be called once then cached, got %d calls", src.nameCalls)
	}
}
