package sanity

import (
	"context"
	"math/big"
	"testing"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// constBalanceSource always reports the same native/token balance.
type constBalanceSource struct {
	balance *big.Int
}

func (s *constBalanceSource) GetBlock(ctx context.Context, number uint64) (*chain.Block, error) {
	return nil, nil
}
func (s *constBalanceSource) GetBlockReceipts(ctx context.Context, number uint64) ([]*chain.Receipt, error) {
	return nil, nil
}
func (s *constBalanceSource) TraceBlock(ctx context.Context, number uint64) ([]*chain.Trace, error) {
	return nil, nil
}
func (s *constBalanceSource) GetBalance(ctx context.Context, account chain.Account, number uint64) (*big.Int, error) {
	return new(big.Int).Set(s.balance), nil
}
func (s *constBalanceSource) BalanceOf(ctx context.Context, token chain.Currency, account chain.Account, number uint64) (*big.Int, error) {
	return new(big.Int).Set(s.balance), nil
}
func (s *constBalanceSource) Name(ctx context.Context, token chain.Currency) (string, bool, error) {
	return "", false, nil
}
func (s *constBalanceSource) Symbol(ctx context.Context, token chain.Currency) (string, bool, error) {
	return "", false, nil
}

func TestCheckFlagsBlacklistedExceedingBalance(t *testing.T) {
	store := blacklist.NewDict()
	acct := chain.Account{5}
	store.Add(acct, chain.NativeCurrency, big.NewInt(100), nil)

	src := &constBalanceSource{balance: big.NewInt(10)}
	warnings := Check(context.Background(), src, store, 42)
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning for blacklisted > balance, got %d", len(warnings))
	}
	if warnings[0].Account != acct || warnings[0].Blacklisted.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("unexpected warning: %+v", warnings[0])
	}
}

func TestCheckNoWarningWhenBalanceCovers(t *testing.T) {
	store := blacklist.NewDict()
	acct := chain.Account{6}
	store.Add(acct, chain.NativeCurrency, big.NewInt(5), nil)

	src := &constBalanceSource{balance: big.NewInt(100)}
	warnings := Check(context.Background(), src, store, 42)
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings when balance covers blacklisted amount, got %d", len(warnings))
	}
}

func TestCheckFlagsNullAddressBlacklisted(t *testing.T) {
	store := blacklist.NewSet()
	store.Add(chain.NullAddress, "", nil, nil)

	src := &constBalanceSource{balance: big.NewInt(0)}
	warnings := Check(context.Background(), src, store, 1)
	found := false
	for _, w := range warnings {
		if w.Account == chain.NullAddress {
			found = true
		}
	}
	if !found {
		t.Error("expected a warning for the null address being blacklisted")
	}
}
