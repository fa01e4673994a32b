package sys

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Result is the outcome of a lookup that can end three ways: a value was found,
// nothing was there, or the lookup failed. A failed Result is never Found.
type Result[T any] struct {
	Ok    T
	Found bool
	Err   error
}

// IsOk returns true if the lookup did not fail, whether or not a value was found.
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// IsFound returns true if the lookup succeeded and produced a value.
func (r Result[T]) IsFound() bool {
	return r.Err == nil && r.Found
}

// IsAbsent returns true if the lookup succeeded but there was no value.
func (r Result[T]) IsAbsent() bool {
	return r.Err == nil && !r.Found
}

// IsErr returns true if the Result contains an error. When checks are given it
// only returns true if the error matches one of them.
func (r Result[T]) IsErr(checks ...error) bool {
	if len(checks) == 0 {
		return r.Err != nil
	}
	for _, err := range checks {
		if errors.Is(r.Err, err) {
			return true
		}
	}
	return false
}

// IsErrMatches returns true if the Result contains an error containing any of the given string values.
func (r Result[T]) IsErrMatches(checks ...string) bool {
	if r.Err == nil {
		return false
	}
	if len(checks) == 0 {
		return true
	}
	val := r.Err.Error()
	for _, err := range checks {
		if strings.Contains(val, err) {
			return true
		}
	}
	return false
}

// Get returns the value and whether it was found.
func (r Result[T]) Get() (T, bool) {
	return r.Ok, r.IsFound()
}

// OrElse returns the value when found, def otherwise.
func (r Result[T]) OrElse(def T) T {
	if r.IsFound() {
		return r.Ok
	}
	return def
}

// Ok creates a found Result.
func Ok[T any](value T) Result[T] {
	return Result[T]{Ok: value, Found: true}
}

// Absent creates a Result for a lookup that succeeded without a value.
func Absent[T any]() Result[T] {
	return Result[T]{}
}

// Err creates a failed Result.
func Err[T any](err error) Result[T] {
	return Result[T]{Err: err}
}
