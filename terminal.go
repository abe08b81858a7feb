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
	"sync"
	"time"
)

// terminalPromisePanicMsg is the construction-time error of handing a
// promise-compatible value to Resolved: terminal promises hold concrete
// values only.
const terminalPromisePanicMsg = "promise: a terminal promise must hold a concrete value, not a promise"

var errNilReason = errors.New("promise: rejected with a nil reason")

// closedChan is shared by every terminal promise's WaitChan.
var closedChan = make(chan struct{})

func init() {
	close(closedChan)
}

// Resolved returns a terminal promise that's already fulfilled with val,
// bypassing the full state machine.
//
// It panics when val is itself promise-compatible: adopt such values with
// Adapt, or resolve a Deferred promise with them, instead.
func Resolved[T any](val T) Promise[T] {
	if _, ok := any(val).(Awaitable[T]); ok {
		panic(terminalPromisePanicMsg)
	}
	if _, ok := any(val).(interface{ privateImplementation() }); ok {
		panic(terminalPromisePanicMsg)
	}
	return &fulfilledPromise[T]{val: val}
}

// Rejected returns a terminal promise that's already rejected with reason,
// bypassing the full state machine. A nil reason is replaced with a
// non-nil placeholder, so the rejection channel never carries nil.
func Rejected[T any](reason error) Promise[T] {
	if reason == nil {
		reason = errNilReason
	}
	return &rejectedPromise[T]{reason: reason}
}

// fulfilledPromise is a read-only adapter over a known fulfillment value.
type fulfilledPromise[T any] struct {
	val T

	hookMu  sync.Mutex
	errHook func(err error)
}

func (p *fulfilledPromise[T]) privateImplementation() {}

func (p *fulfilledPromise[T]) State() State { return StateFulfilled }
func (p *fulfilledPromise[T]) Is(s State) bool { return s == StateFulfilled }
func (p *fulfilledPromise[T]) Cancel(error) {}

func (p *fulfilledPromise[T]) WaitChan() <-chan struct{} { return closedChan }

func (p *fulfilledPromise[T]) Wait(timeout time.Duration) (T, error) {
	return p.val, nil
}

// Then invokes onFulfilled immediately and wraps its return value as a new
// promise, adopting it when it's itself promise-compatible.
func (p *fulfilledPromise[T]) Then(onFulfilled func(val T) (T, error)) Promise[T] {
	if onFulfilled == nil {
		panic(nilCallbackPanicMsg)
	}
	return settledResult(runValCallback(onFulfilled, p.val))
}

func (p *fulfilledPromise[T]) Catch(onRejected func(reason error) (T, error)) Promise[T] {
	if onRejected == nil {
		panic(nilCallbackPanicMsg)
	}
	return p
}

func (p *fulfilledPromise[T]) Finally(onSettled func() error) Promise[T] {
	if onSettled == nil {
		panic(nilCallbackPanicMsg)
	}
	if err := runSettledCallback(onSettled); err != nil {
		return Rejected[T](err)
	}
	return p
}

func (p *fulfilledPromise[T]) OnComplete(onResolved func(val T), onRejected func(reason error)) {
	if onResolved != nil {
		runObserver(func() { onResolved(p.val) })
	}
}

func (p *fulfilledPromise[T]) Resolve(val T) { p.violation(ErrAlreadySettled) }
func (p *fulfilledPromise[T]) Reject(reason error) { p.violation(ErrAlreadySettled) }

func (p *fulfilledPromise[T]) OnError(hook func(err error)) Promise[T] {
	p.hookMu.Lock()
	p.errHook = hook
	p.hookMu.Unlock()
	return p
}

func (p *fulfilledPromise[T]) OnCanceled(hook func(reason error)) Promise[T] {
	return p
}

func (p *fulfilledPromise[T]) subscribe(sub subscriber[T]) {
	dispatchOutcome(Outcome[T]{Status: StateFulfilled, Value: p.val}, sub)
}

func (p *fulfilledPromise[T]) violation(err error) {
	p.hookMu.Lock()
	hook := p.errHook
	p.hookMu.Unlock()
	reportViolation(hook, err)
}

// rejectedPromise is a read-only adapter over a known rejection reason.
type rejectedPromise[T any] struct {
	reason error

	hookMu  sync.Mutex
	errHook func(err error)
}

func (p *rejectedPromise[T]) privateImplementation() {}

func (p *rejectedPromise[T]) State() State { return StateRejected }
func (p *rejectedPromise[T]) Is(s State) bool { return s == StateRejected }
func (p *rejectedPromise[T]) Cancel(error) {}

func (p *rejectedPromise[T]) WaitChan() <-chan struct{} { return closedChan }

func (p *rejectedPromise[T]) Wait(timeout time.Duration) (T, error) {
	var zero T
	return zero, p.reason
}

func (p *rejectedPromise[T]) Then(onFulfilled func(val T) (T, error)) Promise[T] {
	if onFulfilled == nil {
		panic(nilCallbackPanicMsg)
	}
	return p
}

// Catch invokes onRejected immediately and wraps its return value as a new
// promise, adopting it when it's itself promise-compatible.
func (p *rejectedPromise[T]) Catch(onRejected func(reason error) (T, error)) Promise[T] {
	if onRejected == nil {
		panic(nilCallbackPanicMsg)
	}
	return settledResult(runErrCallback(onRejected, p.reason))
}

func (p *rejectedPromise[T]) Finally(onSettled func() error) Promise[T] {
	if onSettled == nil {
		panic(nilCallbackPanicMsg)
	}
	if err := runSettledCallback(onSettled); err != nil {
		return Rejected[T](err)
	}
	return p
}

func (p *rejectedPromise[T]) OnComplete(onResolved func(val T), onRejected func(reason error)) {
	if onRejected != nil {
		runObserver(func() { onRejected(p.reason) })
	}
}

func (p *rejectedPromise[T]) Resolve(val T) { p.violation(ErrAlreadySettled) }
func (p *rejectedPromise[T]) Reject(reason error) { p.violation(ErrAlreadySettled) }

func (p *rejectedPromise[T]) OnError(hook func(err error)) Promise[T] {
	p.hookMu.Lock()
	p.errHook = hook
	p.hookMu.Unlock()
	return p
}

func (p *rejectedPromise[T]) OnCanceled(hook func(reason error)) Promise[T] {
	return p
}

func (p *rejectedPromise[T]) subscribe(sub subscriber[T]) {
	dispatchOutcome(Outcome[T]{Status: StateRejected, Reason: p.reason}, sub)
}

func (p *rejectedPromise[T]) violation(err error) {
	p.hookMu.Lock()
	hook := p.errHook
	p.hookMu.Unlock()
	reportViolation(hook, err)
}

// settledResult wraps a callback's return values as a settled promise,
// adopting promise-compatible values.
func settledResult[T any](val T, err error) Promise[T] {
	if err != nil {
		return Rejected[T](err)
	}
	if aw, ok := any(val).(Awaitable[T]); ok {
		return Adapt[T](aw)
	}
	return Resolved[T](val)
}

// reportViolation is the shared hook-logger-panic violation chain.
func reportViolation(hook func(error), err error) {
	if hook != nil {
		hook(err)
		return
	}
	if l, ok := getLogger(); ok {
		l.Error().Err(err).Msg("promise: state machine violation")
		return
	}
	panic(err)
}
