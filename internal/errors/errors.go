// Package errors defines the sentinel errors use cases return. HTTP handlers translate them
// into status codes in httputil.HandleErrorGin; repositories translate driver errors into them.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrTooManyRequests = errors.New("too many requests")

	// ErrDecryptionFailed covers every envelope open failure. Clients only ever see the sentinel.
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrScanRejected is the parent of every FileIntegrityScanner rejection.
	ErrScanRejected = errors.New("scan rejected")
)

// Wrap prefixes err with message, keeping it matchable with Is. A nil err stays nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// New, Is, As and Join mirror the standard library so callers need a single errors import.

func New(message string) error { return errors.New(message) }

func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func Join(errs ...error) error { return errors.Join(errs...) }
