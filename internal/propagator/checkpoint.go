package propagator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/blacklist"
)

// checkpointFile is the §6 checkpoint shape:
// {"block": <int>, "blacklist": <snapshot>, "tainted transactions": <counters>}.
type checkpointFile struct {
	Block               uint64                          `json:"block"`
	Blacklist           json.RawMessage                 `json:"blacklist"`
	TaintedTransactions map[string]blacklist.Counters    `json:"tainted transactions"`
}

// saveCheckpoint writes a whole-file replacement at path: the store's
// current snapshot plus every account's tainted-transaction counters
// (§5: "checkpoints are written as whole-file replacements ... write-to-temp
// and rename").
func saveCheckpoint(path string, block uint64, store blacklist.Store) error {
	snapshot := store.Snapshot()
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("propagator: marshal blacklist snapshot: %w", err)
	}

	counters := make(map[string]blacklist.Counters)
	for _, a := range store.Accounts() {
		counters[a.Hex()] = store.Counters(a)
	}

	cp := checkpointFile{Block: block, Blacklist: raw, TaintedTransactions: counters}
	out, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("propagator: marshal checkpoint: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("propagator: write temp checkpoint %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("propagator: rename checkpoint into place: %w", err)
	}
	return nil
}

// loadCheckpoint reads path and restores store's state in place.
func loadCheckpoint(path string, store blacklist.Store) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("propagator: read checkpoint %s: %w", path, err)
	}
	var cp checkpointFile
	if err := json.Unmarshal(raw, &cp); err != nil {
		return 0, fmt.Errorf("propagator: parse checkpoint %s: %w", path, err)
	}
	snapshot, err := blacklist.DecodeSnapshot(blacklist.VariantOf(store), cp.Blacklist)
	if err != nil {
		return 0, fmt.Errorf("propagator: decode blacklist snapshot: %w", err)
	}
	if err := store.Load(snapshot); err != nil {
		return 0, fmt.Errorf("propagator: load blacklist snapshot: %w", err)
	}
	for hex, c := range cp.TaintedTransactions {
		a, ok := parseAddress(hex)
		if !ok {
			continue
		}
		for i := uint64(0); i < c.Incoming; i++ {
			store.IncrCounter(a, blacklist.CounterIncoming)
		}
		for i := uint64(0); i < c.Outgoing; i++ {
			store.IncrCounter(a, blacklist.CounterOutgoing)
		}
		for i := uint64(0); i < c.IncomingFee; i++ {
			store.IncrCounter(a, blacklist.CounterIncomingFee)
		}
		for i := uint64(0); i < c.OutgoingFee; i++ {
			store.IncrCounter(a, blacklist.CounterOutgoingFee)
		}
	}
	return cp.Block, nil
}

func checkpointPath(dataFolder, datasetName, policyName string) string {
	return filepath.Join(dataFolder, fmt.Sprintf("%s_%s_checkpoint.json", datasetName, policyName))
}

func parseAddress(hex string) (common.Address, bool) {
	if !common.IsHexAddress(hex) {
		return common.Address{}, false
	}
	return common.HexToAddress(hex), true
}
