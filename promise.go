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
	"sync/atomic"
	"time"

	"github.com/soladder/promise/internal/status"
)

// genericPromise is the default implementation of the Promise interface.
type genericPromise[T any] struct {
	sched *Scheduler

	// closed when this promise settles.
	// this channel has one writer (one goroutine), which is the settlement
	// winner, which will close it, but can have multiple readers.
	syncChan chan struct{}

	// subsChan always holds the subscriber queue, and acts as its ownership
	// token: whoever receives the queue value owns it until it's sent back.
	// registration appends under ownership, settlement marks the queue
	// settled and drains it under ownership, so the two can never miss each
	// other.
	subsChan chan subQueue[T]

	// hold the settled value and reason.
	// written once, before the status word moves to resolved and before the
	// syncChan is closed. don't read them before then.
	val    T
	reason error

	// holds the state, fate, and flags of the promise.
	// refer to the docs of the status package for more info.
	status status.Word

	hookMu     sync.Mutex
	errHook    func(err error)
	cancelHook func(reason error)

	// set once any rejection-consuming callback is registered, which keeps
	// the scheduler's uncaught rejection handler quiet.
	handled          atomic.Bool
	uncaughtReported atomic.Bool
}

// subQueue wil be owned, at any time, by a single goroutine.
type subQueue[T any] struct {
	// set by the settlement winner while owning the queue. once true, new
	// subscribers no longer append; they schedule themselves instead.
	settled bool

	subs []subscriber[T]
}

// subscriber describes a pending subscription and how to settle its
// downstream promise, if it has one.
type subscriber[T any] struct {
	// handler pair registered by Then/Catch; next is their downstream.
	onFulfilled func(val T) (T, error)
	onRejected  func(reason error) (T, error)

	// registered by Finally; next is its downstream.
	onSettled func() error

	// observer pair registered by OnComplete; no downstream.
	resolvedObs func(val T)
	rejectedObs func(reason error)

	// internal observer used by the combinators; no downstream.
	ob func(oc Outcome[T])

	next *genericPromise[T]
}

// newPromInter creates a new genericPromise which is settled internally,
// using an internally allocated channel.
func newPromInter[T any](sched *Scheduler) *genericPromise[T] {
	subsChan := make(chan subQueue[T], 1)
	subsChan <- subQueue[T]{}

	return &genericPromise[T]{
		sched:    sched,
		syncChan: make(chan struct{}),
		subsChan: subsChan,
	}
}

func (p *genericPromise[T]) privateImplementation() {}

// State returns the current settlement state.
func (p *genericPromise[T]) State() State {
	s := p.status.Load()
	switch {
	case status.IsStateFulfilled(s):
		return StateFulfilled
	case status.IsStateRejected(s):
		return StateRejected
	default:
		return StatePending
	}
}

func (p *genericPromise[T]) Is(s State) bool {
	return p.State() == s
}

func (p *genericPromise[T]) WaitChan() <-chan struct{} {
	return p.syncChan
}

func (p *genericPromise[T]) OnError(hook func(err error)) Promise[T] {
	p.hookMu.Lock()
	p.errHook = hook
	p.hookMu.Unlock()
	return p
}

func (p *genericPromise[T]) OnCanceled(hook func(reason error)) Promise[T] {
	p.hookMu.Lock()
	p.cancelHook = hook
	p.hookMu.Unlock()

	// registering after the fact still delivers the reason, asynchronously.
	s := p.status.Load()
	if status.IsFlagCanceled(s) && hook != nil {
		reason := p.cancelReason()
		p.sched.submit(func() { hook(reason) })
	}
	return p
}

func (p *genericPromise[T]) cancelReason() error {
	if ce, ok := p.reason.(*CanceledError); ok {
		return ce.Reason
	}
	return p.reason
}

// violation reports a state machine violation: to the OnError hook if one
// is registered, otherwise to the package logger, otherwise by panicking,
// because silently swallowing these would hide real programming bugs.
func (p *genericPromise[T]) violation(err error) {
	p.hookMu.Lock()
	hook := p.errHook
	p.hookMu.Unlock()
	reportViolation(hook, err)
}

func (p *genericPromise[T]) settledViolation() {
	if status.IsFlagCanceled(p.status.Load()) {
		p.violation(ErrAlreadyCanceled)
	} else {
		p.violation(ErrAlreadySettled)
	}
}

// Resolve settles the promise with val, adopting it instead when it's
// promise-compatible.
func (p *genericPromise[T]) Resolve(val T) {
	if aw, ok := any(val).(Awaitable[T]); ok && isSelf(p, aw) {
		p.violation(ErrSelfResolve)
		return
	}
	if !p.resolveInternal(val) {
		p.settledViolation()
	}
}

// Reject settles the promise with reason.
func (p *genericPromise[T]) Reject(reason error) {
	if !p.rejectInternal(reason) {
		p.settledViolation()
	}
}

// Cancel rejects the promise with a CanceledError, only if it's still
// pending. It never reports a violation: canceling twice, or canceling a
// settled promise, is a no-op.
func (p *genericPromise[T]) Cancel(reason error) {
	set, _ := p.status.SetResolving()
	if !set {
		return
	}
	cerr := newCanceledError(reason)
	p.settleRejected(cerr, true)

	p.hookMu.Lock()
	hook := p.cancelHook
	p.hookMu.Unlock()
	if hook != nil {
		hook(cerr.Reason)
	}
}

func isSelf[T any](p *genericPromise[T], aw Awaitable[T]) bool {
	q, ok := aw.(*genericPromise[T])
	return ok && q == p
}

// resolveInternal is the lenient, flatten-aware fulfillment path: it
// reports whether the settlement was won, instead of reporting violations.
// It's used by executor callbacks, handler chaining, and the combinators.
func (p *genericPromise[T]) resolveInternal(val T) bool {
	if aw, ok := any(val).(Awaitable[T]); ok {
		if isSelf(p, aw) {
			return false
		}
		set, _ := p.status.SetResolving()
		if !set {
			return false
		}
		p.adopt(aw)
		return true
	}

	set, _ := p.status.SetResolving()
	if !set {
		return false
	}
	p.settleFulfilled(val)
	return true
}

func (p *genericPromise[T]) rejectInternal(reason error) bool {
	set, _ := p.status.SetResolving()
	if !set {
		return false
	}
	p.settleRejected(reason, false)
	return true
}

// adopt follows the settlement of a promise-compatible value, recursively
// unwrapping, so that a promise resolved with a promise is never itself a
// promise. The caller must have won the settlement election already.
func (p *genericPromise[T]) adopt(aw Awaitable[T]) {
	// the foreign side isn't trusted to fire exactly once.
	var once sync.Once
	aw.OnComplete(func(val T) {
		once.Do(func() {
			if next, ok := any(val).(Awaitable[T]); ok && !isSelf(p, next) {
				p.adopt(next)
				return
			}
			p.settleFulfilled(val)
		})
	}, func(reason error) {
		once.Do(func() {
			p.settleRejected(reason, false)
		})
	})
}

// settleFulfilled and settleRejected write the result, move the status to
// resolved, close the syncChan, and drain the subscriber queue in FIFO
// order. The caller must have won the settlement election.
func (p *genericPromise[T]) settleFulfilled(val T) {
	p.val = val
	p.status.SetFulfilledResolved()
	p.finishSettle()
}

func (p *genericPromise[T]) settleRejected(reason error, canceled bool) {
	p.reason = reason
	if canceled {
		p.status.SetCanceledResolved()
	} else {
		p.status.SetRejectedResolved()
	}
	p.finishSettle()
}

func (p *genericPromise[T]) finishSettle() {
	close(p.syncChan)

	q := <-p.subsChan
	q.settled = true
	subs := q.subs
	q.subs = nil
	p.subsChan <- q

	for _, sub := range subs {
		p.dispatch(sub)
	}
}

// subscribe registers sub, either by appending it to the queue while the
// promise is pending, or by scheduling it to run once the queue has
// already drained.
func (p *genericPromise[T]) subscribe(sub subscriber[T]) {
	if sub.onRejected != nil || sub.rejectedObs != nil {
		p.handled.Store(true)
	}

	q := <-p.subsChan
	if !q.settled {
		q.subs = append(q.subs, sub)
		p.subsChan <- q
		return
	}
	p.subsChan <- q

	// already settled. internal observers run on the caller's goroutine,
	// so the combinators consume settled inputs in input order; everything
	// else runs asynchronously with respect to the caller.
	if sub.ob != nil {
		p.dispatch(sub)
		return
	}
	p.sched.submit(func() { p.dispatch(sub) })
}

// dispatch consumes one subscriber against the settled result.
func (p *genericPromise[T]) dispatch(sub subscriber[T]) {
	dispatchOutcome(p.outcome(), sub)
}

// dispatchOutcome consumes one subscriber against a settled outcome.
// it's shared between the state machine and the terminal promises.
func dispatchOutcome[T any](oc Outcome[T], sub subscriber[T]) {
	switch {
	case sub.ob != nil:
		runObserver(func() { sub.ob(oc) })
	case sub.resolvedObs != nil || sub.rejectedObs != nil:
		if oc.Ok() {
			if sub.resolvedObs != nil {
				runObserver(func() { sub.resolvedObs(oc.Value) })
			}
		} else if sub.rejectedObs != nil {
			runObserver(func() { sub.rejectedObs(oc.Reason) })
		}
	case sub.onSettled != nil:
		if err := runSettledCallback(sub.onSettled); err != nil {
			sub.next.rejectInternal(err)
		} else if oc.Ok() {
			sub.next.resolveInternal(oc.Value)
		} else {
			sub.next.rejectInternal(oc.Reason)
		}
	case oc.Ok():
		if sub.onFulfilled == nil {
			sub.next.resolveInternal(oc.Value)
			return
		}
		val, err := runValCallback(sub.onFulfilled, oc.Value)
		if err != nil {
			sub.next.rejectInternal(err)
		} else {
			sub.next.resolveInternal(val)
		}
	default:
		if sub.onRejected == nil {
			sub.next.rejectInternal(oc.Reason)
			return
		}
		val, err := runErrCallback(sub.onRejected, oc.Reason)
		if err != nil {
			sub.next.rejectInternal(err)
		} else {
			sub.next.resolveInternal(val)
		}
	}
}

func (p *genericPromise[T]) outcome() Outcome[T] {
	s := p.status.Load()
	if status.IsStateFulfilled(s) {
		return Outcome[T]{Status: StateFulfilled, Value: p.val}
	}
	return Outcome[T]{Status: StateRejected, Reason: p.reason}
}

// Then registers onFulfilled and returns its downstream promise.
func (p *genericPromise[T]) Then(onFulfilled func(val T) (T, error)) Promise[T] {
	if onFulfilled == nil {
		panic(nilCallbackPanicMsg)
	}
	next := newPromInter[T](p.sched)
	p.subscribe(subscriber[T]{onFulfilled: onFulfilled, next: next})
	return next
}

// Catch registers onRejected and returns its downstream promise.
func (p *genericPromise[T]) Catch(onRejected func(reason error) (T, error)) Promise[T] {
	if onRejected == nil {
		panic(nilCallbackPanicMsg)
	}
	next := newPromInter[T](p.sched)
	p.subscribe(subscriber[T]{onRejected: onRejected, next: next})
	return next
}

// Finally registers onSettled and returns its downstream promise.
func (p *genericPromise[T]) Finally(onSettled func() error) Promise[T] {
	if onSettled == nil {
		panic(nilCallbackPanicMsg)
	}
	next := newPromInter[T](p.sched)
	p.subscribe(subscriber[T]{onSettled: onSettled, next: next})
	return next
}

// OnComplete subscribes the observer pair without creating a downstream
// promise.
func (p *genericPromise[T]) OnComplete(onResolved func(val T), onRejected func(reason error)) {
	if onResolved == nil && onRejected == nil {
		return
	}
	p.subscribe(subscriber[T]{resolvedObs: onResolved, rejectedObs: onRejected})
}

// Wait blocks until the promise settles or timeout elapses. On timeout, the
// promise is rejected with ErrTimeout. A timeout of zero or less blocks
// without bound.
func (p *genericPromise[T]) Wait(timeout time.Duration) (T, error) {
	firstWait, s := p.status.RegWait()
	if firstWait {
		// only the waiter that set the flag clears it, so a conflicting
		// waiter leaving early can't unmask later conflicts.
		defer p.status.ClearWait()
	} else if !status.IsFateResolved(s) {
		p.violation(ErrWaitConflict)
	}

	if !status.IsFateResolved(s) {
		if !p.waitStrategy().Wait(p.syncChan, timeout) {
			// the timeout elapsed first. reject, unless a settlement won
			// the race in the meantime, in which case wait it out.
			if !p.rejectInternal(ErrTimeout) {
				<-p.syncChan
			}
		}
	}
	return p.result()
}

func (p *genericPromise[T]) waitStrategy() WaitStrategy {
	if p.sched != nil && p.sched.strategy != nil {
		return p.sched.strategy
	}
	return defaultWaitStrategy
}

func (p *genericPromise[T]) result() (T, error) {
	s := p.status.Load()
	if status.IsStateRejected(s) {
		p.reportUncaught()
		var zero T
		return zero, p.reason
	}
	return p.val, nil
}

// reportUncaught runs the scheduler's uncaught rejection handler for a
// rejected promise that reached a Wait call with no Catch anywhere on it,
// at most once per promise.
func (p *genericPromise[T]) reportUncaught() {
	if p.sched == nil || p.sched.uncaughtRejection == nil {
		return
	}
	if p.handled.Load() {
		return
	}
	if p.uncaughtReported.CompareAndSwap(false, true) {
		p.sched.uncaughtRejection(p.reason)
	}
}

// callback runners. panics inside user callbacks become PanicError
// rejections instead of unwinding the settling goroutine.

func runValCallback[T any](fn func(T) (T, error), arg T) (val T, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{V: v}
		}
	}()
	return fn(arg)
}

func runErrCallback[T any](fn func(error) (T, error), reason error) (val T, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{V: v}
		}
	}()
	return fn(reason)
}

func runSettledCallback(fn func() error) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{V: v}
		}
	}()
	return fn()
}

// runObserver shields the settling goroutine from panicking observers.
// observers have no downstream promise to reject, so the panic is logged
// and dropped.
func runObserver(fn func()) {
	defer func() {
		if v := recover(); v != nil {
			if l, ok := getLogger(); ok {
				l.Warn().Interface("panic", v).Msg("promise: observer panicked")
			}
		}
	}()
	fn()
}
