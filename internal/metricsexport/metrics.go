// Package metricsexport emits the propagator's observable state in the two
// shapes the specification names (§2 item 7, §6): a block-interval CSV time
// series and a per-account tainted-transaction CSV, plus go-ethereum
// process-wide gauges/meters for the same figures (ambient observability
// layered on top of the domain CSV requirement, §10 of the expanded spec).
package metricsexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/metrics"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

var (
	blockGauge            = metrics.NewRegisteredGauge("blacklist/block", nil)
	uniqueAccountsGauge    = metrics.NewRegisteredGauge("blacklist/accounts/unique", nil)
	totalEthGauge          = metrics.NewRegisteredGauge("blacklist/eth/total", nil)
	taintedTxMeter         = metrics.NewRegisteredMeter("blacklist/transactions/tainted", nil)
	checkpointWriteTimer   = metrics.NewRegisteredTimer("blacklist/checkpoint/write", nil)
	blockProcessTimer      = metrics.NewRegisteredTimer("blacklist/block/process", nil)
)

// Row is one interval tick of the Block/Unique accounts/Total ETH/Tainted
// transactions CSV (§6).
type Row struct {
	Block              uint64
	UniqueAccounts     int
	TotalETH           string // decimal string: ETH amounts can exceed int64
	TaintedTransactions uint64
}

// CSVWriter accumulates Rows and flushes them as the §6 metrics CSV.
type CSVWriter struct {
	w    *csv.Writer
	rows int
}

// NewCSVWriter wraps w, writing the header row immediately.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Block", "Unique accounts", "Total ETH", "Tainted transactions"}); err != nil {
		return nil, fmt.Errorf("metricsexport: write header: %w", err)
	}
	return &CSVWriter{w: cw}, nil
}

// WriteRow appends one interval tick and updates the mirrored go-ethereum
// gauges/meter.
func (cw *CSVWriter) WriteRow(r Row) error {
	if err := cw.w.Write([]string{
		fmt.Sprintf("%d", r.Block),
		fmt.Sprintf("%d", r.UniqueAccounts),
		r.TotalETH,
		fmt.Sprintf("%d", r.TaintedTransactions),
	}); err != nil {
		return fmt.Errorf("metricsexport: write row: %w", err)
	}
	cw.rows++
	blockGauge.Update(int64(r.Block))
	uniqueAccountsGauge.Update(int64(r.UniqueAccounts))
	taintedTxMeter.Mark(int64(r.TaintedTransactions))
	return nil
}

// Flush pushes buffered rows to the underlying writer.
func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}

// AccountRow is one line of the tainted-transactions-per-account CSV (§6).
type AccountRow struct {
	Account  chain.Account
	Incoming uint64
	Outgoing uint64
}

// WriteAccountCSV writes the Account/Incoming/Outgoing CSV for every
// account in store whose Incoming+Outgoing count is at least minCount,
// sorted by that total descending (§6).
func WriteAccountCSV(w io.Writer, store blacklist.Store, minCount uint64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Account", "Incoming", "Outgoing"}); err != nil {
		return fmt.Errorf("metricsexport: write header: %w", err)
	}
	rows := make([]AccountRow, 0)
	for _, a := range store.Accounts() {
		c := store.Counters(a)
		total := c.Incoming + c.Outgoing
		if total < minCount {
			continue
		}
		rows = append(rows, AccountRow{Account: a, Incoming: c.Incoming, Outgoing: c.Outgoing})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Incoming+rows[i].Outgoing > rows[j].Incoming+rows[j].Outgoing
	})
	for _, r := range rows {
		if err := cw.Write([]string{r.Account.Hex(), fmt.Sprintf("%d", r.Incoming), fmt.Sprintf("%d", r.Outgoing)}); err != nil {
			return fmt.Errorf("metricsexport: write account row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// UpdateTotalETH feeds the process-wide total-tainted-ETH gauge. The gauge
// holds an int64, so it cannot represent totals above 2^63-1 wei; it is a
// dashboard trend line, not exact accounting (the CSV row carries the
// exact decimal string).
func UpdateTotalETH(totalWei int64) {
	totalEthGauge.Update(totalWei)
}

// UpdateCheckpointWriteDuration feeds the checkpoint-write timer.
func UpdateCheckpointWriteDuration(d time.Duration) {
	checkpointWriteTimer.Update(d)
}

// UpdateBlockProcessDuration feeds the per-block processing timer.
func UpdateBlockProcessDuration(d time.Duration) {
	blockProcessTimer.Update(d)
}
