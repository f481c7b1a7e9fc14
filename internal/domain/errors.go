package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound = errors.New("unknown source")
	ErrInvalidKind    = errors.New("invalid destination kind")
)

// FetchError is a transport failure while fetching one source.
type FetchError struct {
	SourceID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError describes one malformed item. It never aborts a batch.
type ParseError struct {
	SourceID string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.SourceID, e.Reason)
}

// StorageError means the history or destination store is unreachable or
// inconsistent.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

type DeliveryError struct {
	DestinationID string
	Err           error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.DestinationID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// ResolutionError means a destination handle is no longer valid.
type ResolutionError struct {
	DestinationID string
	Err           error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s: %v", e.DestinationID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
