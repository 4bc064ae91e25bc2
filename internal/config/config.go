// Package config loads the engine's INI-like configuration file (§6): a
// [PARAMETERS] block plus one or more [[Datasets]] entries. It parses as
// TOML via github.com/naoina/toml, since `[SECTION]` followed by
// `key = value` lines is already valid TOML syntax — no bespoke INI parser
// is needed.
package config

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
)

// Parameters is the [PARAMETERS] section (§6).
type Parameters struct {
	DataFolder  string
	RPCEndpoint string
}

// Dataset is one [[Datasets]] entry (§6): a named block range with seed
// accounts and whether they should be treated as permanently tainted
// (§4.5.6).
type Dataset struct {
	Name           string
	StartBlock     uint64
	BlockCount     uint64
	SeedAccounts   []string
	PermanentTaint bool
}

// Config is the top-level configuration document.
type Config struct {
	Parameters Parameters
	Datasets   []Dataset
}

func (c *Config) String() string {
	return fmt.Sprintf("Parameters: %+v, Datasets: %d", c.Parameters, len(c.Datasets))
}

// Load reads and parses path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Dataset looks up a dataset by its CLI index (§6, --dataset <int>).
func (c *Config) Dataset(index int) (Dataset, error) {
	if index < 0 || index >= len(c.Datasets) {
		return Dataset{}, fmt.Errorf("config: dataset index %d out of range (have %d)", index, len(c.Datasets))
	}
	return c.Datasets[index], nil
}

// SeedAccountAddresses parses d's seed accounts into chain.Account values.
func (d Dataset) SeedAccountAddresses() ([]chain.Account, error) {
	out := make([]chain.Account, 0, len(d.SeedAccounts))
	for _, s := range d.SeedAccounts {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("config: dataset %q: %q is not a valid address", d.Name, s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}
