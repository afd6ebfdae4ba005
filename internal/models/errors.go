package models

import "fmt"

// EmptyInputError reports text that is empty or whitespace-only after trimming.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "input text is empty"
}

// DimensionError reports a vector whose dimension does not match the configured
// embedding dimension. Seeing this in production means configuration drift or
// data corruption, not a user mistake.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ProviderError reports a failed embedding provider call. Transient failures
// (timeouts, rate limits, 5xx) may be retried by the transport layer; the core
// never retries them itself. Permanent failures (invalid input, auth, oversized
// text) must not be retried.
type ProviderError struct {
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("embedding provider error (%s): %v", kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StorageError reports a persistence failure. A failed insert never leaves a
// partial record behind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
