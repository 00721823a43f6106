package blockchain

import "errors"

// Transaction rejections. AddTransaction wraps them with the offending numbers.
var (
	ErrMissingAddress      = errors.New("transaction must include sender and recipient address")
	ErrNonPositiveAmount   = errors.New("transaction amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDoubleSpend         = errors.New("double spend rejected")
	ErrTimeLocked          = errors.New("transaction is time-locked")
)

var (
	ErrEmptyChain    = errors.New("blockchain is empty")
	ErrBlockNotFound = errors.New("block not found")
	ErrInvalidChain  = errors.New("invalid chain")
	ErrInvalidConfig = errors.New("invalid ledger options")
)
