// Package apperr defines the error taxonomy shared by the geo, airports and
// trip packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks input the caller can fix (bad coordinate,
	// non-positive radius, zero MPG, ...).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrStorageUnavailable marks a failed or timed out airport store read.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrComputationDegenerate is reserved for mathematically undefined results.
	ErrComputationDegenerate = errors.New("computation degenerate")
)

// ArgumentError describes which parameter was rejected and why.
type ArgumentError struct {
	Param  string
	Value  interface{}
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s=%v: %s", e.Param, e.Value, e.Reason)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// InvalidArgument builds an *ArgumentError.
func InvalidArgument(param string, value interface{}, reason string) error {
	return &ArgumentError{Param: param, Value: value, Reason: reason}
}

// StorageError wraps a store failure with the operation that failed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

// Is reports ErrStorageUnavailable so callers can use errors.Is without
// losing the underlying cause.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// StorageUnavailable wraps err as a *StorageError. A nil err stays nil.
func StorageUnavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// IsInvalidArgument reports whether err is caller-recoverable bad input.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsStorageUnavailable reports whether err came from the airport store.
func IsStorageUnavailable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
