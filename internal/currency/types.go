package currency

import (
	"errors"
)

const (
	MinimumBalance     = 0
	MinimumTransaction = 1
	MaximumTransaction = 1000000000
)

var (
	ErrInvalidAmount   = errors.New("invalid transaction amount")
	ErrNegativeAmount  = errors.New("amount cannot be negative")
	ErrExceedsMaximum  = errors.New("amount exceeds maximum transaction limit")
	ErrUserNotFound    = errors.New("user not found")
	ErrNegativeBalance = errors.New("balance cannot be negative")
)
