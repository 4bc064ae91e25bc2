package blacklist

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

func TestVariantOfMatchesConcreteStore(t *testing.T) {
	cases := []struct {
		store Store
		want  Variant
	}{
		{NewSet(), VariantSet},
		{NewDict(), VariantDict},
		{NewFIFO(), VariantFIFO},
	}
	for _, c := range cases {
		if got := VariantOf(c.store); got != c.want {
			t.Errorf("VariantOf(%T) = %v, want %v", c.store, got, c.want)
		}
	}
}

func TestDictMarshalDecodeRoundTripThroughJSON(t *testing.T) {
	d := NewDict()
	d.Add(acctA, chain.NativeCurrency, big.NewInt(123), nil)
	d.MarkFullyTainted(acctA, chain.WETHCurrency)

	raw, err := json.Marshal(d.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	decoded, err := DecodeSnapshot(VariantDict, raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	restored := NewDict()
	if err := restored.Load(decoded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v := restored.Value(acctA, chain.NativeCurrency); v.Cmp(big.NewInt(123)) != 0 {
		t.Errorf("expected value 123 after JSON round trip, got %s", v)
	}
	if !restored.IsFullyTainted(acctA, chain.WETHCurrency) {
		t.Errorf("expected fully-tainted flag to survive JSON round trip")
	}
}

func TestFIFOMarshalDecodeRoundTripThroughJSON(t *testing.T) {
	f := NewFIFO()
	f.Add(acctA, chain.NativeCurrency, big.NewInt(7), big.NewInt(9))

	raw, err := json.Marshal(f.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := DecodeSnapshot(VariantFIFO, raw)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	restored := NewFIFO()
	if err := restored.Load(decoded); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v := restored.Value(acctA, chain.NativeCurrency); v.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("expected tainted value 7 after JSON round trip, got %s", v)
	}
}
