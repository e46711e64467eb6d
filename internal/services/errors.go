package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAddress      = errors.New("invalid address")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUserRejected        = errors.New("user rejected the request")
	ErrLedgerRejected      = errors.New("ledger rejected transaction")
	ErrTransientFailure    = errors.New("transient failure")
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	ErrNoWallet            = errors.New("please connect your wallet")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrOperationNotFound   = errors.New("operation not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrTooManySessions     = errors.New("too many open sessions")
)

// LedgerError keeps the raw reason reported by the ledger for display.
type LedgerError struct {
	Reason string
}

func (e *LedgerError) Error() string {
	return ErrLedgerRejected.Error() + ": " + e.Reason
}

func (e *LedgerError) Unwrap() error { return ErrLedgerRejected }

// Rejected builds a LedgerError from whatever the ledger reported.
func Rejected(reason interface{}) error {
	switch r := reason.(type) {
	case string:
		return &LedgerError{Reason: r}
	case error:
		return &LedgerError{Reason: r.Error()}
	default:
		return &LedgerError{Reason: fmt.Sprintf("%v", r)}
	}
}

// Transient wraps a network or timeout failure.
func Transient(cause error) error {
	if cause == nil {
		return ErrTransientFailure
	}
	if errors.Is(cause, ErrTransientFailure) {
		return cause
	}
	return fmt.Errorf("%w: %v", ErrTransientFailure, cause)
}

// Category names the taxonomy bucket an error falls into, used for metrics,
// history records and HTTP status mapping.
func Category(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidAddress):
		return "invalid_address"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrUserRejected):
		return "user_rejected"
	case errors.Is(err, ErrLedgerRejected):
		return "ledger_rejected"
	case errors.Is(err, ErrTransientFailure):
		return "transient"
	case errors.Is(err, ErrMetadataUnavailable):
		return "metadata_unavailable"
	case errors.Is(err, ErrNoWallet):
		return "no_wallet"
	}
	return "error"
}

// IsInputError reports errors caught before any ledger interaction.
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidAddress) || errors.Is(err, ErrInvalidAmount) || errors.Is(err, ErrInvalidRequest)
}
