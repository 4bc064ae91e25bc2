package metricsexport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

func TestCSVWriterWritesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	cw, err := NewCSVWriter(&buf)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	if err := cw.WriteRow(Row{Block: 100, UniqueAccounts: 3, TotalETH: "12345", TaintedTransactions: 7}); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if err := cw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines: %q", len(lines), out)
	}
	if lines[0] != "Block,Unique accounts,Total ETH,Tainted transactions" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "100,3,12345,7" {
		t.Errorf("unexpected row: %q", lines[1])
	}
}

func TestWriteAccountCSVFiltersAndSortsDescending(t *testing.T) {
	store := blacklist.NewDict()
	a := chain.Account{1}
	b := chain.Account{2}
	c := chain.Account{3}

	store.IncrCounter(a, blacklist.CounterIncoming) // total 1, filtered by minCount=2
	store.IncrCounter(b, blacklist.CounterIncoming)
	store.IncrCounter(b, blacklist.CounterOutgoing) // total 2
	store.IncrCounter(c, blacklist.CounterIncoming)
	store.IncrCounter(c, blacklist.CounterIncoming)
	store.IncrCounter(c, blacklist.CounterOutgoing) // total 3

	// Accounts() on a Dict only returns accounts with tainted values, not
	// bare counters, so seed a nonzero value for each to make them visible.
	store.Add(a, chain.NativeCurrency, chain.Amt(1), nil)
	store.Add(b, chain.NativeCurrency, chain.Amt(1), nil)
	store.Add(c, chain.NativeCurrency, chain.Amt(1), nil)

	var buf bytes.Buffer
	if err := WriteAccountCSV(&buf, store, 2); err != nil {
		t.Fatalf("WriteAccountCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows (account a filtered out), got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], c.Hex()) {
		t.Errorf("expected account c (total 3) first, got %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], b.Hex()) {
		t.Errorf("expected account b (total 2) second, got %q", lines[2])
	}
}
