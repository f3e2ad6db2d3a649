package common

import (
	"context"
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeConfig   = "CONFIG_ERROR"
	CodeLedgerIO = "LEDGER_IO"
	CodeRemote   = "REMOTE_ERROR"
	CodeNetwork  = "NETWORK_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")

	// ErrConfig marks missing or unreadable configuration. Fatal before any stage runs.
	ErrConfig = errors.New("configuration error")
	// ErrRemote marks a non-2xx answer from the storefront or cloud storage.
	ErrRemote = errors.New("remote error")
	// ErrNetwork marks a transport-level failure talking to a remote.
	ErrNetwork = errors.New("network error")
	// ErrLedgerIO marks an unreadable or corrupt ledger. Fatal to the stage.
	ErrLedgerIO = errors.New("ledger io error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ConfigError wraps cause as a configuration failure.
func ConfigError(message string, cause error) error {
	return NewAppError(CodeConfig, message, errors.Join(ErrConfig, cause))
}

// LedgerIOError wraps cause as a ledger read/write failure.
func LedgerIOError(message string, cause error) error {
	return NewAppError(CodeLedgerIO, message, errors.Join(ErrLedgerIO, cause))
}

// NetworkError wraps a transport failure.
func NetworkError(message string, cause error) error {
	return NewAppError(CodeNetwork, message, errors.Join(ErrNetwork, cause))
}

// Kind is the coarse classification the pipeline switches on.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindRemote
	KindNetwork
	KindLedgerIO
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindRemote:
		return "remote"
	case KindNetwork:
		return "network"
	case KindLedgerIO:
		return "ledger_io"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// KindOf classifies err. A nil error is KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrLedgerIO):
		return KindLedgerIO
	case errors.Is(err, ErrConfig):
		return KindConfig
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrRemote):
		return KindRemote
	default:
		return KindUnknown
	}
}

// RemoteError wraps a non-2xx answer from a remote service.
func RemoteError(message string, cause error) error {
	return NewAppError(CodeRemote, message, errors.Join(ErrRemote, cause))
}
