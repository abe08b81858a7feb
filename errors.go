// Copyright 2026 The soladder Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package promise

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// panic messages
const (
	nilExecutorPanicMsg = "promise: the provided executor is nil"
	nilCallbackPanicMsg = "promise: the provided callback is nil"
)

// Ordinary rejection reasons produced by this module.
var (
	// ErrCanceled is the default rejection reason of Cancel.
	ErrCanceled = errors.New("promise canceled")

	// ErrTimeout is the rejection reason set by Wait when its timeout
	// elapses before the promise settles.
	ErrTimeout = errors.New("promise wait timeout")

	// ErrLostRace is the cancellation reason handed to the losing inputs of
	// Race and Any.
	ErrLostRace = errors.New("promise: another promise settled first")

	// ErrNoPromises is the rejection reason of Any when it's called with no
	// promises.
	ErrNoPromises = errors.New("promise: no promises provided")
)

// State machine violations. These are programming errors, not rejection
// values: they route to the OnError hook, then to the package logger, and
// panic when neither is present.
var (
	ErrAlreadySettled  = errors.New("promise: already settled")
	ErrAlreadyCanceled = errors.New("promise: already canceled")
	ErrSelfResolve     = errors.New("promise: cannot resolve a promise with itself")
	ErrWaitConflict    = errors.New("promise: wait called while another wait is blocked")
	ErrNotCancelable   = errors.New("promise: queued value does not support cancellation")
)

// CanceledError is the rejection reason of a canceled promise.
// It wraps the reason passed to Cancel, or ErrCanceled when none was given.
type CanceledError struct {
	Reason error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("promise canceled: %s", e.Reason)
}

func (e *CanceledError) Unwrap() error {
	return e.Reason
}

func newCanceledError(reason error) *CanceledError {
	if reason == nil {
		reason = ErrCanceled
	}
	return &CanceledError{Reason: reason}
}

// PanicError wraps a panic that happened inside an executor or a handler
// callback. The promise it belongs to is rejected with it instead of letting
// the panic unwind the scheduler's goroutine.
type PanicError struct {
	V any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("promise: callback panicked: %v", e.V)
}

// AggregateError is the rejection reason of Any when every input rejected.
// Reasons holds one rejection reason per input, in input order.
type AggregateError struct {
	Reasons []error
}

func (e *AggregateError) Error() string {
	combined := multierr.Combine(e.Reasons...)
	if combined == nil {
		return "promise: all promises rejected"
	}
	return fmt.Sprintf("promise: all promises rejected: %s", combined)
}

func (e *AggregateError) Unwrap() []error {
	return e.Reasons
}
