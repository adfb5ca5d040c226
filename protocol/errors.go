package protocol

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind (or errors.Is against the sentinels below)
// rather than matching error strings.
type Kind string

const (
	KindUnauthorized       Kind = "Unauthorized"
	KindFrozen             Kind = "Frozen"
	KindInsufficientOwned  Kind = "InsufficientOwned"
	KindInsufficientEscrow Kind = "InsufficientEscrow"
	KindSaltNotFound       Kind = "SaltNotFound"
	KindTransferFailed     Kind = "TransferFailed"
	KindAddressMismatch    Kind = "AddressMismatch"
	KindInvalidArgument    Kind = "InvalidArgument"
	KindOverflow           Kind = "Overflow"
	KindReentrancy         Kind = "Reentrancy"
	KindExpired            Kind = "Expired"
	KindConflict           Kind = "Conflict"
	KindNotFound           Kind = "NotFound"
)

// Sentinels for errors.Is. A *Error matches a sentinel when the kinds agree.
var (
	ErrUnauthorized       = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
	ErrFrozen             = &Error{Kind: KindFrozen, Message: "marshal operations frozen"}
	ErrInsufficientOwned  = &Error{Kind: KindInsufficientOwned, Message: "insufficient owned balance"}
	ErrInsufficientEscrow = &Error{Kind: KindInsufficientEscrow, Message: "insufficient escrow balance"}
	ErrSaltNotFound       = &Error{Kind: KindSaltNotFound, Message: "salt not found in range"}
	ErrTransferFailed     = &Error{Kind: KindTransferFailed, Message: "asset transfer failed"}
	ErrAddressMismatch    = &Error{Kind: KindAddressMismatch, Message: "address mismatch"}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrOverflow           = &Error{Kind: KindOverflow, Message: "amount overflow"}
	ErrReentrancy         = &Error{Kind: KindReentrancy, Message: "reentrant call"}
	ErrExpired            = &Error{Kind: KindExpired, Message: "deadline passed"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
)

// Error is the protocol's structured error type.
//
// Op names the operation that was rejected (e.g. "commit", "charterFund").
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports kind equality so that errors.Is(err, ErrFrozen) holds for any
// frozen-gate rejection regardless of Op or Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Errorf builds an *Error of the given kind for op.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind for op around cause.
func Wrap(kind Kind, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

// KindOf returns the Kind of err, or "" when err is not (and does not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
