package chain

import "math/big"

// Event is the sum type the sequencer emits and the policy engine folds
// over. Each concrete type below corresponds to one of the variants named
// in the specification's design notes (Transfer, Deposit, Withdrawal,
// InternalTransfer, GasFee); there is no dynamic field access anywhere in
// the engine, only type switches over this interface.
type Event interface {
	isEvent()
}

// TransferEvent is a decoded ERC-20-like Transfer(address,address,uint256)
// log.
type TransferEvent struct {
	Token    Currency
	From, To Account
	Value    *big.Int
	LogIndex int
}

func (TransferEvent) isEvent() {}

// DepositEvent is a decoded WETH-style Deposit(address,uint256) log: dst
// wrapped Wad of native currency.
type DepositEvent struct {
	Dst      Account
	Wad      *big.Int
	LogIndex int
}

func (DepositEvent) isEvent() {}

// WithdrawalEvent is a decoded WETH-style Withdrawal(address,uint256) log:
// src unwrapped Wad back to native currency.
type WithdrawalEvent struct {
	Src      Account
	Wad      *big.Int
	LogIndex int
}

func (WithdrawalEvent) isEvent() {}

// InternalTransferEvent is a non-reverted, nonzero-value "call" trace entry
// that is neither a Deposit nor a Withdrawal counterpart.
type InternalTransferEvent struct {
	From, To     Account
	Value        *big.Int
	TraceAddress []int
}

func (InternalTransferEvent) isEvent() {}

// GasFeeEvent is always the final event of a transaction: the fee the
// sender paid, split into the miner's tip and the implicitly burned
// remainder (TotalFee - MinerFee).
type GasFeeEvent struct {
	Sender, Miner Account
	TotalFee      *big.Int
	MinerFee      *big.Int
}

func (GasFeeEvent) isEvent() {}
