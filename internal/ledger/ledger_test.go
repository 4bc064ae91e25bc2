package ledger

import (
	"context"
	"math/big"
	"testing"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

type countingSource struct {
	balance      *big.Int
	balanceCalls int
}

func (s *countingSource) GetBlock(ctx context.Context, number uint64) (*chain.Block, error) {
	return nil, nil
}
func (s *countingSource) GetBlockReceipts(ctx context.Context, number uint64) ([]*chain.Receipt, error) {
	return nil, nil
}
func (s *countingSource) TraceBlock(ctx context.Context, number uint64) ([]*chain.Trace, error) {
	return nil, nil
}
func (s *countingSource) GetBalance(ctx context.Context, account chain.Account, number uint64) (*big.Int, error) {
	s.balanceCalls++
	return new(big.Int).Set(s.balance), nil
}
func (s *countingSource) BalanceOf(ctx context.Context, token chain.Currency, account chain.Account, number uint64) (*big.Int, error) {
	return big.NewInt(0), chain.ErrNoOutput
}
func (s *countingSource) Name(ctx context.Context, token chain.Currency) (string, bool, error) {
	return "", false, nil
}
func (s *countingSource) Symbol(ctx context.Context, token chain.Currency) (string, bool, error) {
	return "", false, nil
}

var acct = chain.Account{1}

func TestGetTempBalanceFetchesOnceThenAppliesDeltas(t *testing.T) {
	src := &countingSource{balance: big.NewInt(100)}
	lg := New(src, 42)

	v, err := lg.GetTempBalance(context.Background(), acct, chain.NativeCurrency)
	if err != nil {
		t.Fatalf("GetTempBalance: %v", err)
	}
	if v.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("expected 100, got %s", v)
	}

	lg.Decrease(acct, chain.NativeCurrency, big.NewInt(30))
	lg.Increase(acct, chain.NativeCurrency, big.NewInt(5))

	v, err = lg.GetTempBalance(context.Background(), acct, chain.NativeCurrency)
	if err != nil {
		t.Fatalf("GetTempBalance: %v", err)
	}
	if v.Cmp(big.NewInt(75)) != 0 {
		t.Errorf("expected 100-30+5=75, got %s", v)
	}
	if src.balanceCalls != 1 {
		t.Errorf("expected the on-chain balance to be fetched exactly once, got %d calls", src.balanceCalls)
	}
}

func TestBalanceOfUnsupportedTreatedAsZero(t *testing.T) {
	src := &countingSource{balance: big.NewInt(0)}
	lg := New(src, 1)
	token := chain.CurrencyOf(chain.Account{9})

	v, err := lg.GetTempBalance(context.Background(), acct, token)
	if err != nil {
		t.Fatalf("GetTempBalance: %v", err)
	}
	if v.Sign() != 0 {
		t.Errorf("expected 0 for an unsupported balanceOf call, got %s", v)
	}
}

func TestIncreaseDecreaseBeforeFirstFetch(t *testing.T) {
	src := &countingSource{balance: big.NewInt(50)}
	lg := New(src, 1)

	lg.Increase(acct, chain.NativeCurrency, big.NewInt(10))
	v, err := lg.GetTempBalance(context.Background(), acct, chain.NativeCurrency)
	if err != nil {
		t.Fatalf("GetTempBalance: %v", err)
	}
	if v.Cmp(big.NewInt(60)) != 0 {
		t.Errorf("expected pre-fetch delta applied on top of fetched balance (50+10=60), got %s", v)
	}
}
