package blacklist

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

var (
	acctA = common.HexToAddress("0xaaaa000000000000000000000000000000000a")
	acctB = common.HexToAddress("0xbbbb000000000000000000000000000000000b")
)

func TestSetAddRemoveMembership(t *testing.T) {
	s := NewSet()
	if s.IsBlacklisted(acctA, "") {
		t.Fatalf("fresh set should not blacklist acctA")
	}
	s.Add(acctA, "", nil, nil)
	if !s.IsBlacklisted(acctA, "") {
		t.Errorf("expected acctA tainted after Add")
	}
	if got := s.Remove(acctA, big.NewInt(5), chain.NativeCurrency); got.Cmp(RemovedSentinel) != 0 {
		t.Errorf("Set.Remove should always return RemovedSentinel, got %s", got)
	}
	if s.IsBlacklisted(acctA, "") {
		t.Errorf("acctA should no longer be tainted after Remove")
	}
}

func TestSetSnapshotRoundTrip(t *testing.T) {
	s := NewSet()
	s.Add(acctA, "", nil, nil)
	s.Add(acctB, "", nil, nil)

	snap := s.Snapshot()
	restored := NewSet()
	if err := restored.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !restored.IsBlacklisted(acctA, "") || !restored.IsBlacklisted(acctB, "") {
		t.Errorf("expected both accounts tainted after round trip")
	}
}

func TestDictAddRemoveAccumulatesAndPurges(t *testing.T) {
	d := NewDict()
	d.Add(acctA, chain.NativeCurrency, big.NewInt(100), nil)
	d.Add(acctA, chain.NativeCurrency, big.NewInt(50), nil)
	if v := d.Value(acctA, chain.NativeCurrency); v.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("expected accumulated value 150, got %s", v)
	}

	removed := d.Remove(acctA, big.NewInt(200), chain.NativeCurrency)
	if removed.Cmp(big.NewInt(150)) != 0 {
		t.Errorf("expected Remove to cap at available value, got %s", removed)
	}
	if d.IsBlacklisted(acctA, chain.NativeCurrency) {
		t.Errorf("expected acctA purged from Dict after fully removed")
	}
	if len(d.Accounts()) != 0 {
		t.Errorf("expected purged account list to be empty, got %v", d.Accounts())
	}
}

func TestDictSnapshotRoundTripPreservesFullyOn(t *testing.T) {
	d := NewDict()
	d.Add(acctA, chain.NativeCurrency, big.NewInt(10), nil)
	d.MarkFullyTainted(acctA, chain.WETHCurrency)

	snap := d.Snapshot()
	restored := NewDict()
	if err := restored.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v := restored.Value(acctA, chain.NativeCurrency); v.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("expected value 10 after round trip, got %s", v)
	}
	if !restored.IsFullyTainted(acctA, chain.WETHCurrency) {
		t.Errorf("expected fully-tainted flag to survive round trip")
	}
}

func TestFIFOAddCoalescesZeroTaintedRuns(t *testing.T) {
	f := NewFIFO()
	f.Add(acctA, chain.NativeCurrency, big.NewInt(0), big.NewInt(10))
	f.Add(acctA, chain.NativeCurrency, big.NewInt(0), big.NewInt(20))
	if tv := f.TrackedValue(acctA, chain.NativeCurrency); tv.Cmp(big.NewInt(30)) != 0 {
		t.Errorf("expected coalesced tracked value 30, got %s", tv)
	}
	if f.IsBlacklisted(acctA, chain.NativeCurrency) {
		t.Errorf("zero-tainted inflows should not blacklist the account")
	}
}

func TestFIFORemoveConsumesHeadFirst(t *testing.T) {
	f := NewFIFO()
	f.Add(acctA, chain.NativeCurrency, big.NewInt(10), big.NewInt(10)) // fully tainted inflow
	f.Add(acctA, chain.NativeCurrency, big.NewInt(0), big.NewInt(20))  // untainted inflow

	removed := f.Remove(acctA, big.NewInt(15), chain.NativeCurrency)
	if removed.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected 10 tainted units removed (head pair fully tainted), got %s", removed)
	}
	if tv := f.TrackedValue(acctA, chain.NativeCurrency); tv.Cmp(big.NewInt(15)) != 0 {
		t.Errorf("expected remaining tracked value 15 (30-15), got %s", tv)
	}
	if f.Value(acctA, chain.NativeCurrency).Sign() != 0 {
		t.Errorf("expected all taint consumed from the head pair, got %s", f.Value(acctA, chain.NativeCurrency))
	}
}

func TestFIFOSnapshotRoundTrip(t *testing.T) {
	f := NewFIFO()
	f.Add(acctA, chain.NativeCurrency, big.NewInt(5), big.NewInt(10))
	f.Add(acctA, chain.NativeCurrency, big.NewInt(0), big.NewInt(3))

	snap := f.Snapshot()
	restored := NewFIFO()
	if err := restored.Load(snap); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v := restored.Value(acctA, chain.NativeCurrency); v.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("expected tainted value 5 after round trip, got %s", v)
	}
	if tv := restored.TrackedValue(acctA, chain.NativeCurrency); tv.Cmp(big.NewInt(13)) != 0 {
		t.Errorf("expected tracked value 13 after round trip, got %s", tv)
	}
}

func TestCounterTableIncrements(t *testing.T) {
	d := NewDict()
	d.IncrCounter(acctA, CounterIncoming)
	d.IncrCounter(acctA, CounterIncoming)
	d.IncrCounter(acctA, CounterOutgoingFee)
	c := d.Counters(acctA)
	if c.Incoming != 2 || c.OutgoingFee != 1 || c.Outgoing != 0 {
		t.Errorf("unexpected counters: %+v", c)
	}
}

func TestDictTopAccountsOrdersDescending(t *testing.T) {
	d := NewDict()
	d.Add(acctA, chain.NativeCurrency, big.NewInt(5), nil)
	d.Add(acctB, chain.NativeCurrency, big.NewInt(50), nil)

	top := d.TopAccounts(2, []chain.Currency{chain.NativeCurrency})
	if len(top) != 2 || top[0].Account != acctB || top[1].Account != acctA {
		t.Errorf("expected acctB before acctA by descending sum, got %+v", top)
	}
}
