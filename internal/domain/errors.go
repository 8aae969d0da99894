package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures reported to callers.
type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindPartyNotEligible    Kind = "PARTY_NOT_ELIGIBLE"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindTransferFailed      Kind = "TRANSFER_FAILED"
	KindNotFound            Kind = "NOT_FOUND"
)

// Error carries a failure kind together with the operation that produced it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is; matching compares kinds only.
var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrPartyNotEligible    = &Error{Kind: KindPartyNotEligible, Message: "party not eligible"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrTransferFailed      = &Error{Kind: KindTransferFailed, Message: "transfer failed"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
)

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Validation builds a validation failure.
func Validation(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotEligible builds a party eligibility failure.
func NotEligible(op, format string, args ...any) *Error {
	return &Error{Kind: KindPartyNotEligible, Op: op, Message: fmt.Sprintf(format, args...)}
}

// InsufficientBalance builds a failed conditional debit error for a wallet.
func InsufficientBalance(op, walletID string) *Error {
	return &Error{Kind: KindInsufficientBalance, Op: op, Message: fmt.Sprintf("insufficient balance in wallet %s", walletID)}
}

// TransferFailed wraps an unexpected failure that aborted a unit of work.
func TransferFailed(op string, err error) *Error {
	return &Error{Kind: KindTransferFailed, Op: op, Message: "transfer failed", Err: err}
}

// NotFound builds a missing resource error.
func NotFound(op, resource string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: resource + " not found"}
}

// KindOf extracts the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
