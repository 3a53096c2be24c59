package services

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateUser       = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountNotFound     = errors.New("account not found")
	ErrNoAttemptsLeft      = errors.New("no attempts left")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBelowMinimum        = errors.New("amount below minimum top-up")
	ErrStorage             = errors.New("storage failure")
	ErrLedgerConflict      = errors.New("ledger update kept conflicting")
)

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
