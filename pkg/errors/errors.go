// Package errors provides structured error handling for the wallet core.
// It defines sentinel errors, exit codes, and helpers for adding
// context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"sort"
)

// Exit codes used by the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitAuth     = 3 // Authentication failed
	ExitNotFound = 4 // Resource not found
	ExitFunds    = 5 // Insufficient funds or rejected spend
)

// WalletError is the structured error type for the wallet core.
type WalletError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	ExitCode   int               // Exit code for CLI
}

func (e *WalletError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *WalletError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for WalletError.
func (e *WalletError) Is(target error) bool {
	var t *WalletError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &WalletError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		ExitCode: ExitInput,
	}

	ErrNotFound = &WalletError{
		Code:     "NOT_FOUND",
		Message:  "resource not found",
		ExitCode: ExitNotFound,
	}

	// Mnemonic and account errors.
	ErrInvalidMnemonic = &WalletError{
		Code:     "INVALID_MNEMONIC",
		Message:  "invalid mnemonic phrase",
		ExitCode: ExitInput,
	}

	ErrAccountNameConflict = &WalletError{
		Code:     "ACCOUNT_NAME_CONFLICT",
		Message:  "account name already exists",
		ExitCode: ExitInput,
	}

	ErrInvalidAccountName = &WalletError{
		Code:     "INVALID_ACCOUNT_NAME",
		Message:  "account name cannot be empty",
		ExitCode: ExitInput,
	}

	ErrPasswordMismatch = &WalletError{
		Code:     "PASSWORD_MISMATCH",
		Message:  "password does not match any existing account",
		ExitCode: ExitAuth,
	}

	ErrDuplicateMnemonic = &WalletError{
		Code:     "DUPLICATE_MNEMONIC",
		Message:  "mnemonic already belongs to an existing account",
		ExitCode: ExitInput,
	}

	// ErrWrongPassword never leaves the secret store: Load reports it as a nil result.
	ErrWrongPassword = &WalletError{
		Code:     "WRONG_PASSWORD",
		Message:  "wrong password or corrupted secret",
		ExitCode: ExitAuth,
	}

	ErrSecretExpired = &WalletError{
		Code:     "SECRET_EXPIRED",
		Message:  "secret has been erased from memory",
		ExitCode: ExitAuth,
	}

	// Chain errors.
	ErrUnsupportedChain = &WalletError{
		Code:     "UNSUPPORTED_CHAIN",
		Message:  "unsupported chain",
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &WalletError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		ExitCode: ExitInput,
	}

	ErrInvalidAmount = &WalletError{
		Code:     "INVALID_AMOUNT",
		Message:  "invalid amount format",
		ExitCode: ExitInput,
	}

	ErrAmountExceedsBalance = &WalletError{
		Code:     "AMOUNT_EXCEEDS_BALANCE",
		Message:  "amount exceeds available balance",
		ExitCode: ExitFunds,
	}

	ErrInsufficientBalanceForFee = &WalletError{
		Code:     "INSUFFICIENT_BALANCE_FOR_FEE",
		Message:  "insufficient balance for gas fee",
		ExitCode: ExitFunds,
	}

	ErrZeroBalance = &WalletError{
		Code:     "ZERO_BALANCE",
		Message:  "sender account has zero balance",
		ExitCode: ExitFunds,
	}

	ErrBroadcastRejected = &WalletError{
		Code:     "BROADCAST_REJECTED",
		Message:  "transaction rejected by network",
		ExitCode: ExitGeneral,
	}

	ErrNetworkError = &WalletError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		ExitCode: ExitGeneral,
	}

	// Biometric errors.
	ErrBiometricUnavailable = &WalletError{
		Code:     "BIOMETRIC_UNAVAILABLE",
		Message:  "biometric authentication is not available",
		ExitCode: ExitAuth,
	}

	ErrBiometricAssertionFailed = &WalletError{
		Code:     "BIOMETRIC_ASSERTION_FAILED",
		Message:  "biometric authentication failed",
		ExitCode: ExitAuth,
	}

	// Config errors.
	ErrConfigInvalid = &WalletError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		ExitCode: ExitInput,
	}

	// Storage errors.
	ErrStoreCorrupted = &WalletError{
		Code:     "STORE_CORRUPTED",
		Message:  "stored account index is unreadable",
		ExitCode: ExitGeneral,
	}

	// Backup errors.
	ErrBackupCorrupted = &WalletError{
		Code:     "BACKUP_CORRUPTED",
		Message:  "backup document is not a flat JSON object of strings",
		ExitCode: ExitInput,
	}
)

// New creates a new WalletError with the given code and message.
func New(code, message string) *WalletError {
	return &WalletError{
		Code:     code,
		Message:  message,
		ExitCode: ExitGeneral,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    fmt.Sprintf("%s: %s", msg, we.Message),
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      err,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithCause attaches an underlying cause to a sentinel, keeping its code.
// Remote error messages travel this way so callers see them verbatim.
func WithCause(err, cause error) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: we.Suggestion,
			Cause:      cause,
			ExitCode:   we.ExitCode,
		}
	}

	return fmt.Errorf("%w: %w", err, cause)
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    details,
			Suggestion: we.Suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var we *WalletError
	if errors.As(err, &we) {
		return &WalletError{
			Code:       we.Code,
			Message:    we.Message,
			Details:    we.Details,
			Suggestion: suggestion,
			Cause:      we.Cause,
			ExitCode:   we.ExitCode,
		}
	}

	return &WalletError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var we *WalletError
	if errors.As(err, &we) {
		return we.ExitCode
	}

	return ExitGeneral
}

// Code returns the error code for an error.
func Code(err error) string {
	var we *WalletError
	if errors.As(err, &we) {
		return we.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
