// Package chain defines the canonical account/currency/event model that the
// rest of the engine operates on, and the interface the core consumes from
// a block source (§6 of the specification).
package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a 20-byte Ethereum-style address. It is kept as a checksummed
// hex string at the edges (JSON, logs) but passed around as common.Address
// so comparisons and map keys are cheap and exact.
type Account = common.Address

// NullAddress denotes mint/burn: the zero address.
var NullAddress = common.Address{}

// Currency identifies a unit of value: the literal native-asset sentinel
// "ETH", or a checksummed token contract address.
type Currency string

// NativeCurrency is the sentinel identifying the chain's native asset.
const NativeCurrency Currency = "ETH"

// WETHAddress is the canonical wrapped-native token address. It is a distinct
// currency from NativeCurrency even though Deposit/Withdrawal events convert
// between the two 1:1.
var WETHAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

// WETHCurrency is WETHAddress rendered as a Currency.
var WETHCurrency = Currency(WETHAddress.Hex())

// IsNative reports whether c is the native-asset sentinel.
func (c Currency) IsNative() bool { return c == NativeCurrency }

// Address returns c as a common.Address. Callers must not call this on
// NativeCurrency.
func (c Currency) Address() common.Address { return common.HexToAddress(string(c)) }

// CurrencyOf returns the checksummed Currency for a token address.
func CurrencyOf(addr common.Address) Currency { return Currency(addr.Hex()) }

// AccountKey returns the lower-case hex form of a, for use as a map/JSON key.
func AccountKey(a Account) string { return strings.ToLower(a.Hex()) }

// ZeroAmount reports whether v is nil or zero; nil is treated as zero
// throughout the engine so callers never need to special-case "no value".
func ZeroAmount(v *big.Int) bool { return v == nil || v.Sign() == 0 }

// Amt is a convenience constructor so call sites don't sprinkle
// big.NewInt(...) everywhere; it never returns nil.
func Amt(v int64) *big.Int { return big.NewInt(v) }
