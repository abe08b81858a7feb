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
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Promise represents a fallible unit of work that settles exactly once, to
// either a value or an error.
//
// The default implementation is the full state machine returned by New,
// NewThunk, and Deferred. Resolved and Rejected return terminal adapters
// that are settled at construction time and bypass the state machine.
//
// It's a private interface, which can only be implemented by types from
// this module. Foreign asynchronous values interoperate through Awaitable
// and Adapt instead.
type Promise[T any] interface {
	// Then registers onFulfilled to run when the promise fulfills, and
	// returns a new promise that settles to the callback's return values.
	// An error return, or a panic inside the callback, rejects the returned
	// promise. A returned value that is itself promise-compatible is adopted
	// rather than nested: the returned promise follows its settlement.
	// A rejected promise passes its reason through untouched.
	Then(onFulfilled func(val T) (T, error)) Promise[T]

	// Catch registers onRejected to run when the promise rejects, and
	// returns a new promise that settles to the callback's return values.
	// A fulfilled promise passes its value through untouched.
	Catch(onRejected func(reason error) (T, error)) Promise[T]

	// Finally registers onSettled to run on both fulfillment and rejection.
	// The settled value or reason passes through unchanged, unless the
	// callback returns a non-nil error, which rejects the returned promise
	// with that error instead.
	Finally(onSettled func() error) Promise[T]

	// OnComplete subscribes to the settlement without creating a downstream
	// promise. Exactly one of the two callbacks runs, once. Either callback
	// may be nil. This is the subscription half of the promise-compatibility
	// contract; Cancel is the other half.
	OnComplete(onResolved func(val T), onRejected func(reason error))

	// Resolve settles the promise with val.
	// If val is itself promise-compatible (it implements Awaitable of the
	// same result type), the promise adopts its eventual settlement instead
	// of fulfilling with it, so a promise is never settled with a promise.
	// Resolving a promise with itself, or resolving an already-settled or
	// already-canceled promise, is a state machine violation.
	Resolve(val T)

	// Reject settles the promise with reason.
	// Rejecting an already-settled or already-canceled promise is a state
	// machine violation.
	Reject(reason error)

	// Cancel rejects the promise with a CanceledError wrapping reason, or
	// wrapping ErrCanceled when reason is nil. It's effective only while the
	// promise is pending, and it's idempotent: canceling a settled promise
	// has no effect and reports no violation.
	Cancel(reason error)

	// Wait blocks until the promise settles or timeout elapses, then returns
	// the settled value and reason. On timeout the promise is rejected with
	// ErrTimeout. A timeout of zero or less blocks without bound.
	Wait(timeout time.Duration) (T, error)

	// WaitChan returns a channel that's closed once the promise settles.
	WaitChan() <-chan struct{}

	// State returns the current settlement state.
	State() State

	// Is reports whether the promise is currently in state s.
	Is(s State) bool

	// OnError registers the sink for state machine violations on this
	// promise, distinct from ordinary rejections. It returns the promise.
	OnError(hook func(err error)) Promise[T]

	// OnCanceled registers a hook invoked when the promise is canceled,
	// with the cancellation reason. It returns the promise.
	OnCanceled(hook func(reason error)) Promise[T]

	// this is a private interface that's specific to the different types
	// and functions in this module, and knows about them.
	subscribe(sub subscriber[T])
	privateImplementation()
}

// Awaitable is the promise-compatibility contract for foreign asynchronous
// values: anything that can deliver a one-time settlement and be canceled.
// Every Promise in this module satisfies it, and any foreign value that
// satisfies it can be adapted with Adapt, or handed directly to Resolve,
// without a hard dependency on its library.
type Awaitable[T any] interface {
	OnComplete(onResolved func(val T), onRejected func(reason error))
	Cancel(reason error)
}

// package logger, used as the violation sink of last resort before
// panicking, and for best-effort noise like settlement queue cancellation
// failures.
var (
	loggerMu  sync.RWMutex
	logger    = zerolog.Nop()
	loggerSet bool
)

// SetLogger installs the logger that receives state machine violations when
// no OnError hook is registered, instead of panicking into an unrelated
// call stack.
func SetLogger(l zerolog.Logger) {
	loggerMu.Lock()
	logger = l
	loggerSet = true
	loggerMu.Unlock()
}

func getLogger() (zerolog.Logger, bool) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger, loggerSet
}
