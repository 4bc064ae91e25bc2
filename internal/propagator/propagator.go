// Package propagator implements the top-level replay loop (§4.6): drives
// the chain adapter block by block, folds each transaction's event stream
// through the policy engine, and owns checkpointing, metrics emission, and
// the final sanity check.
package propagator

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/ledger"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/metricsexport"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/policy"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/sanity"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/sequencer"
)

// Propagator drives one dataset's replay under one policy.
type Propagator struct {
	src    *chain.Adapter
	engine *policy.Engine

	dataFolder  string
	datasetName string

	metricsCSV *metricsexport.CSVWriter
	metricsOut io.Closer

	runStart    time.Time
	runStartBlk uint64
	blocksDone  uint64
}

// New builds a Propagator over src using engine, writing its interval
// metrics CSV and checkpoints under dataFolder.
func New(src *chain.Adapter, engine *policy.Engine, dataFolder, datasetName string) (*Propagator, error) {
	metricsPath := checkpointPath(dataFolder, datasetName, engine.Policy().String())
	metricsPath = metricsPath[:len(metricsPath)-len("_checkpoint.json")] + "_metrics.csv"

	f, err := os.OpenFile(metricsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("propagator: open metrics csv: %w", err)
	}
	cw, err := metricsexport.NewCSVWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Propagator{
		src:         src,
		engine:      engine,
		dataFolder:  dataFolder,
		datasetName: datasetName,
		metricsCSV:  cw,
		metricsOut:  f,
	}, nil
}

// Close flushes and closes the metrics CSV.
func (p *Propagator) Close() error {
	if err := p.metricsCSV.Flush(); err != nil {
		return err
	}
	return p.metricsOut.Close()
}

// progressInterval picks the metrics/checkpoint tick size for a run of
// blockCount blocks (§4.6 step 2).
func progressInterval(blockCount uint64) uint64 {
	switch {
	case blockCount <= 20:
		return 1
	case blockCount <= 200:
		return 10
	case blockCount <= 2000:
		return 100
	default:
		return 500
	}
}

// Propagate runs §4.6's propagate(start_block, block_count, load_checkpoint).
func (p *Propagator) Propagate(ctx context.Context, startBlock, blockCount uint64, loadCheckpoint bool, seedAccounts []chain.Account, permanentTaint bool) error {
	cpPath := checkpointPath(p.dataFolder, p.datasetName, p.engine.Policy().String())
	target := startBlock + blockCount - 1
	loopStart := startBlock

	fresh := true
	if loadCheckpoint {
		if saved, err := loadCheckpoint(cpPath, p.engine.Store()); err == nil {
			if saved > startBlock && saved < target {
				loopStart = saved + 1
				fresh = false
				log.Info("propagator: resuming from checkpoint", "block", saved)
			} else if saved == target {
				log.Info("propagator: checkpoint already at target block, nothing to do", "block", saved)
				return nil
			} else {
				log.Warn("propagator: checkpoint outside replay window, restarting", "saved", saved, "start", startBlock, "target", target)
			}
		} else {
			log.Debug("propagator: no usable checkpoint, starting fresh", "err", err)
		}
	}

	if fresh {
		seedLedger := ledger.New(p.src, startBlock)
		for _, a := range seedAccounts {
			if err := p.engine.SeedAccount(ctx, seedLedger, a); err != nil {
				return fmt.Errorf("propagator: seed account %s: %w", a.Hex(), err)
			}
		}
	}
	// The permanent-taint flags are not part of a checkpoint, so they are
	// set on every run, resumed or fresh.
	if permanentTaint {
		for _, a := range seedAccounts {
			p.engine.PermanentlyTaintAccount(a)
		}
	}

	interval := progressInterval(blockCount)
	p.runStart = time.Now()
	p.runStartBlk = loopStart

	for block := loopStart; block <= target; block++ {
		start := time.Now()
		if err := p.processBlock(ctx, block); err != nil {
			return fmt.Errorf("propagator: block %d: %w", block, err)
		}
		metricsexport.UpdateBlockProcessDuration(time.Since(start))
		p.blocksDone++

		if (block-startBlock+1)%interval == 0 || block == target {
			if err := p.tick(ctx, block, target, cpPath); err != nil {
				return err
			}
		}
	}

	warnings := sanity.Check(ctx, p.src, p.engine.Store(), target)
	if len(warnings) > 0 {
		log.Warn("propagator: sanity check found discrepancies", "count", len(warnings))
	}
	return p.tick(ctx, target, target, cpPath)
}

// tick emits the interval metrics row, writes a checkpoint, and logs the
// top-5 tainted accounts by ETH+WETH plus an ETA against target (§4.6 step 3).
func (p *Propagator) tick(ctx context.Context, block, target uint64, cpPath string) error {
	unique, _ := p.engine.Store().Metrics()
	totalETH := p.totalTaintedETH(ctx, block)
	taintedTxs := p.totalTaintedTransactions()

	if err := p.metricsCSV.WriteRow(metricsexport.Row{
		Block:               block,
		UniqueAccounts:      unique,
		TotalETH:            totalETH.String(),
		TaintedTransactions: taintedTxs,
	}); err != nil {
		return fmt.Errorf("propagator: write metrics row: %w", err)
	}
	if err := p.metricsCSV.Flush(); err != nil {
		return err
	}

	cpStart := time.Now()
	if err := saveCheckpoint(cpPath, block, p.engine.Store()); err != nil {
		return fmt.Errorf("propagator: checkpoint: %w", err)
	}
	metricsexport.UpdateCheckpointWriteDuration(time.Since(cpStart))

	top := p.engine.Store().TopAccounts(5, []chain.Currency{chain.NativeCurrency, chain.WETHCurrency})
	elapsed := time.Since(p.runStart)
	blocksPerSec := float64(p.blocksDone) / elapsed.Seconds()
	eta := "n/a"
	if blocksPerSec > 0 && target > block {
		eta = time.Duration(float64(target-block) / blocksPerSec * float64(time.Second)).Round(time.Second).String()
	}
	log.Info("propagator: progress", "block", block, "uniqueAccounts", unique, "totalETH", totalETH,
		"elapsed", elapsed.Round(time.Second), "blocksPerSec", fmt.Sprintf("%.2f", blocksPerSec), "eta", eta)
	for i, t := range top {
		log.Info("propagator: top tainted account", "rank", i+1, "account", t.Account, "amount", t.Sum)
	}
	return nil
}

func (p *Propagator) totalTaintedTransactions() uint64 {
	var total uint64
	for _, a := range p.engine.Store().Accounts() {
		c := p.engine.Store().Counters(a)
		total += c.Incoming + c.Outgoing
	}
	return total
}

// totalTaintedETH sums tainted ETH+WETH across every account the store
// names. Under Poison, where the store has no per-currency amounts, this
// sums live balances of every tainted account instead (§4.5.1).
func (p *Propagator) totalTaintedETH(ctx context.Context, block uint64) *big.Int {
	total := big.NewInt(0)
	if p.engine.Policy() == policy.Poison {
		for _, a := range p.engine.Store().Accounts() {
			if bal, err := p.src.GetBalance(ctx, a, block); err == nil {
				total.Add(total, bal)
			}
		}
		return total
	}
	for _, a := range p.engine.Store().Accounts() {
		total.Add(total, p.engine.Store().Value(a, chain.NativeCurrency))
		total.Add(total, p.engine.Store().Value(a, chain.WETHCurrency))
	}
	return total
}

func (p *Propagator) processBlock(ctx context.Context, block uint64) error {
	b, err := p.src.GetBlock(ctx, block)
	if err != nil {
		return err
	}
	receipts, err := p.src.GetBlockReceipts(ctx, block)
	if err != nil {
		return err
	}
	traces, err := p.src.TraceBlock(ctx, block)
	if err != nil {
		return err
	}
	tracesByTx := groupTraces(traces)

	lg := ledger.New(p.src, block)

	for i, tx := range b.Transactions {
		if i >= len(receipts) {
			return fmt.Errorf("no receipt for tx %s", tx.Hash.Hex())
		}
		receipt := receipts[i]
		if err := p.processTransaction(ctx, lg, b, tx, receipt, tracesByTx[tx.Hash]); err != nil {
			log.Error("propagator: transaction failed", "tx", tx.Hash.Hex(), "block", block, "err", err)
			return fmt.Errorf("tx %s: %w", tx.Hash.Hex(), err)
		}
	}
	return nil
}

func groupTraces(traces []*chain.Trace) map[common.Hash][]chain.Trace {
	out := make(map[common.Hash][]chain.Trace)
	for _, t := range traces {
		out[t.TransactionHash] = append(out[t.TransactionHash], *t)
	}
	return out
}

func (p *Propagator) processTransaction(ctx context.Context, lg *ledger.Ledger, b *chain.Block, tx chain.Transaction, receipt *chain.Receipt, traces []chain.Trace) error {
	logEvents := chain.DecodeReceiptLogs(receipt.Logs)
	internalEvents := chain.TracesToEvents(traces)

	events, err := sequencer.Build(tx, *receipt, logEvents, internalEvents, sequencer.GasFeeInputs{
		Sender:   tx.From,
		Miner:    b.Miner,
		BaseFee:  b.BaseFeePerGas,
		GasPrice: receipt.EffectiveGasPrice,
		GasUsed:  receipt.GasUsed,
	})
	if err != nil {
		return err
	}

	for _, ev := range events {
		if err := p.applyEvent(ctx, lg, ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Propagator) applyEvent(ctx context.Context, lg *ledger.Ledger, ev chain.Event) error {
	switch e := ev.(type) {
	case chain.TransferEvent:
		if err := p.engine.MaybeFullyTaintOnTokenTransfer(ctx, lg, e.From, e.Token); err != nil {
			return err
		}
		if err := p.engine.MaybeFullyTaintOnTokenTransfer(ctx, lg, e.To, e.Token); err != nil {
			return err
		}
		_, err := p.engine.TransferTaint(ctx, lg, e.From, e.To, e.Value, e.Token, e.Token)
		return err
	case chain.DepositEvent:
		_, err := p.engine.TransferTaint(ctx, lg, e.Dst, e.Dst, e.Wad, chain.NativeCurrency, chain.WETHCurrency)
		return err
	case chain.WithdrawalEvent:
		_, err := p.engine.TransferTaint(ctx, lg, e.Src, e.Src, e.Wad, chain.WETHCurrency, chain.NativeCurrency)
		return err
	case chain.InternalTransferEvent:
		_, err := p.engine.TransferTaint(ctx, lg, e.From, e.To, e.Value, chain.NativeCurrency, chain.NativeCurrency)
		return err
	case chain.GasFeeEvent:
		return p.engine.ProcessGasFee(ctx, lg, e.Sender, e.Miner, e.TotalFee, e.MinerFee)
	default:
		return fmt.Errorf("propagator: unknown event type %T", ev)
	}
}
