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

// New creates a promise and submits executor to the default scheduler, so
// construction returns without running it. The executor receives the
// resolve and reject callbacks that settle the promise; calling them more
// than once, in any combination, is tolerated and the extra calls are
// ignored, so racing an executor against a timeout never reports a
// violation.
//
// An optional onRejected handler may be supplied, which subscribes it to
// the promise's rejection before the executor starts.
//
// It will panic if a nil executor is passed.
func New[T any](executor func(resolve func(T), reject func(error)), onRejected ...func(reason error)) Promise[T] {
	return NewOn[T](DefaultScheduler(), executor, onRejected...)
}

// NewOn is New, pinned to a specific scheduler.
func NewOn[T any](sched *Scheduler, executor func(resolve func(T), reject func(error)), onRejected ...func(reason error)) Promise[T] {
	if executor == nil {
		panic(nilExecutorPanicMsg)
	}

	p := newPromInter[T](sched)
	if len(onRejected) != 0 && onRejected[0] != nil {
		p.subscribe(subscriber[T]{rejectedObs: onRejected[0]})
	}

	sched.submit(func() { runExecutor(p, executor) })
	return p
}

// NewThunk creates a promise and submits the argument-less thunk to the
// default scheduler. The thunk runs once and has no further effect on the
// promise, which stays pending until it's settled externally through
// Resolve, Reject, or Cancel; a panic inside the thunk rejects it.
//
// It will panic if a nil thunk is passed.
func NewThunk[T any](thunk func()) Promise[T] {
	return NewThunkOn[T](DefaultScheduler(), thunk)
}

// NewThunkOn is NewThunk, pinned to a specific scheduler.
func NewThunkOn[T any](sched *Scheduler, thunk func()) Promise[T] {
	if thunk == nil {
		panic(nilExecutorPanicMsg)
	}

	p := newPromInter[T](sched)
	sched.submit(func() { runThunk(p, thunk) })
	return p
}

// Deferred creates a promise with no executor. It stays pending until it's
// settled externally through Resolve, Reject, or Cancel.
func Deferred[T any]() Promise[T] {
	return DeferredOn[T](DefaultScheduler())
}

// DeferredOn is Deferred, pinned to a specific scheduler.
func DeferredOn[T any](sched *Scheduler) Promise[T] {
	return newPromInter[T](sched)
}

// Try wraps a synchronous computation, catching panics into a rejection.
// The returned promise is already settled.
func Try[T any](fn func() (T, error)) Promise[T] {
	if fn == nil {
		panic(nilCallbackPanicMsg)
	}
	return settledResult(runTry(fn))
}

func runTry[T any](fn func() (T, error)) (val T, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{V: v}
		}
	}()
	return fn()
}

// Adapt wraps any promise-compatible value as a Promise, enabling
// interoperability with other asynchronous libraries without a hard
// dependency. Promises from this module pass through unchanged.
func Adapt[T any](aw Awaitable[T]) Promise[T] {
	if aw == nil {
		panic(nilCallbackPanicMsg)
	}
	if p, ok := aw.(Promise[T]); ok {
		return p
	}

	p := newPromInter[T](DefaultScheduler())
	// the adapter promise can only be settled by the foreign value, so win
	// the election on its behalf before following it.
	p.status.SetResolving()
	p.adopt(aw)
	return p
}

func runExecutor[T any](p *genericPromise[T], executor func(resolve func(T), reject func(error))) {
	defer func() {
		if v := recover(); v != nil {
			p.rejectInternal(&PanicError{V: v})
		}
	}()
	executor(
		func(val T) { p.resolveInternal(val) },
		func(reason error) { p.rejectInternal(reason) },
	)
}

func runThunk[T any](p *genericPromise[T], thunk func()) {
	defer func() {
		if v := recover(); v != nil {
			p.rejectInternal(&PanicError{V: v})
		}
	}()
	thunk()
}
