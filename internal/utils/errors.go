package utils

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSizeUnknown       = errors.New("could not determine resource size")
	ErrInvalidLocator    = errors.New("invalid resource locator")
	ErrInvalidPlan       = errors.New("invalid download plan")
	ErrChunkExhausted    = errors.New("chunk failed all attempts")
	ErrAssemblyIO        = errors.New("could not write output file")
	ErrRangeNotSupported = errors.New("range requests are not supported")
	ErrUnsupportedScheme = errors.New("unsupported scheme")
)

// FetchError is the failure of a single fetch or probe attempt.
type FetchError struct {
	Retriable bool
	Status    int // transport status code, 0 when there was none
	Err       error
}

func (e *FetchError) Error() string {
	kind := "fatal"
	if e.Retriable {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s fetch error (status %d): %v", kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s fetch error: %v", kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	return &FetchError{Retriable: true, Err: err}
}

func Fatal(err error) error {
	return &FetchError{Retriable: false, Err: err}
}

// IsRetriable reports whether another attempt could succeed. Context
// cancellation is never retriable; unclassified errors are.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retriable
	}
	return true
}

// RetriableStatus is the status classification shared by the HTTP-like backends.
func RetriableStatus(code int) bool {
	return code >= 500 || code == 408 || code == 429
}

// ChunkError names the chunk that ended the download.
type ChunkError struct {
	ChunkID  int
	Start    int64
	End      int64
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d [%d-%d] failed after %d attempt(s): %v", e.ChunkID, e.Start, e.End, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

type AssemblyError struct {
	Path string
	Err  error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("%v %s: %v", ErrAssemblyIO, e.Path, e.Err)
}

func (e *AssemblyError) Unwrap() []error {
	return []error{ErrAssemblyIO, e.Err}
}
