package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConfiguration       = errors.New("configuration error")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrDeadlineExceeded    = errors.New("deadline exceeded")
	ErrAllowanceNotVisible = errors.New("allowance not visible after approval")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrDecimalsMismatch    = errors.New("token decimals mismatch")
	ErrSymbolMismatch      = errors.New("token symbol mismatch")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrLockHeld            = errors.New("lock already held")
)
