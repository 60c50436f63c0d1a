package exception

import "github.com/yanun0323/errors"

var (
	ErrLedgerQtyNotConserved = errors.New("ledger: quantity not conserved")
	ErrLedgerBothSidesOpen   = errors.New("ledger: long and short lots both open")
	ErrLedgerPositionDrift   = errors.New("ledger: open lots disagree with net position")
)

var (
	ErrQueueFull   = errors.New("bus: queue full")
	ErrQueueClosed = errors.New("bus: queue closed")
)
