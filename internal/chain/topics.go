package chain

import "github.com/ethereum/go-ethereum/common"

// Canonical event-signature topic hashes the adapter matches receipt logs
// against (§6). These are the Keccak-256 hashes of the event signatures
// themselves; they never change and are therefore precomputed constants
// rather than re-hashed at startup.
var (
	TransferTopic   = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	DepositTopic    = common.HexToHash("0xe1fffcc4923d04b559f4d29a8bfc6cda04eb5b0d3c460751c2402c5c5cc9109c")
	WithdrawalTopic = common.HexToHash("0x7fcf532c15f0a6db0bd6d0e038bea71d30d808c7d98cb3bf7268a95bf5081b65")
)
