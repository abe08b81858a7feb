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

import "sync"

// combinatorContext is the shared state of one combinator call: the
// index-ordered outcomes, the number of inputs still pending, and the
// queue of siblings to cancel once a winner settles. It's owned by the
// aggregate promise, never by package state.
type combinatorContext[T any] struct {
	mu        sync.Mutex
	outcomes  []Outcome[T]
	remaining int

	queue settlementQueue
}

func newCombinatorContext[T any](ps []Promise[T]) *combinatorContext[T] {
	c := &combinatorContext[T]{
		outcomes:  make([]Outcome[T], len(ps)),
		remaining: len(ps),
	}
	for _, p := range ps {
		c.queue.push(p)
	}
	return c
}

// record stores the outcome of input idx and reports whether it was the
// last input to settle.
func (c *combinatorContext[T]) record(idx int, oc Outcome[T]) (last bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[idx] = oc
	c.remaining--
	return c.remaining == 0
}

// aggregateScheduler picks the scheduler of the first input built on one,
// so an aggregate follows its inputs' pool instead of forcing the default.
func aggregateScheduler[T any](ps []Promise[T]) *Scheduler {
	for _, p := range ps {
		if gp, ok := p.(*genericPromise[T]); ok && gp.sched != nil {
			return gp.sched
		}
	}
	return DefaultScheduler()
}

// Race returns a promise that settles the way the first settling input
// does, fulfilled or rejected. Ties are broken by input order. The losing
// inputs are canceled, best-effort, once the winner is known.
//
// With no inputs there's nothing that can ever settle, so the returned
// promise stays pending forever, like its dynamic-language counterparts.
func Race[T any](ps ...Promise[T]) Promise[T] {
	res := newPromInter[T](aggregateScheduler(ps))
	if len(ps) == 0 {
		return res
	}

	c := newCombinatorContext(ps)
	for _, p := range ps {
		p.subscribe(subscriber[T]{ob: func(oc Outcome[T]) {
			var won bool
			if oc.Ok() {
				won = res.resolveInternal(oc.Value)
			} else {
				won = res.rejectInternal(oc.Reason)
			}
			if won {
				c.queue.cancelAll(ErrLostRace)
			}
		}})
	}
	return res
}

// All returns a promise fulfilled with the values of all inputs, ordered
// by input index regardless of completion order. It rejects as soon as any
// input rejects, canceling the inputs still pending. With no inputs it's
// fulfilled immediately with an empty slice.
func All[T any](ps ...Promise[T]) Promise[[]T] {
	if len(ps) == 0 {
		return Resolved([]T{})
	}

	res := newPromInter[[]T](aggregateScheduler(ps))
	c := newCombinatorContext(ps)
	for i, p := range ps {
		p.subscribe(subscriber[T]{ob: func(oc Outcome[T]) {
			if !oc.Ok() {
				if res.rejectInternal(oc.Reason) {
					c.queue.cancelAll(ErrLostRace)
				}
				return
			}
			if c.record(i, oc) {
				vals := make([]T, len(c.outcomes))
				for j, o := range c.outcomes {
					vals[j] = o.Value
				}
				res.resolveInternal(vals)
			}
		}})
	}
	return res
}

// AllSettled returns a promise fulfilled with one Outcome per input,
// ordered by input index, once every input has settled. It never rejects.
// With no inputs it's fulfilled immediately with an empty slice.
func AllSettled[T any](ps ...Promise[T]) Promise[[]Outcome[T]] {
	if len(ps) == 0 {
		return Resolved([]Outcome[T]{})
	}

	res := newPromInter[[]Outcome[T]](aggregateScheduler(ps))
	c := newCombinatorContext(ps)
	for i, p := range ps {
		p.subscribe(subscriber[T]{ob: func(oc Outcome[T]) {
			if c.record(i, oc) {
				res.resolveInternal(c.outcomes)
			}
		}})
	}
	return res
}

// Any returns a promise fulfilled with the value of the first fulfilling
// input, canceling the rest. If every input rejects, it rejects with an
// AggregateError carrying the reasons in input order. With no inputs it's
// rejected immediately with ErrNoPromises.
func Any[T any](ps ...Promise[T]) Promise[T] {
	if len(ps) == 0 {
		return Rejected[T](ErrNoPromises)
	}

	res := newPromInter[T](aggregateScheduler(ps))
	c := newCombinatorContext(ps)
	for i, p := range ps {
		p.subscribe(subscriber[T]{ob: func(oc Outcome[T]) {
			if oc.Ok() {
				if res.resolveInternal(oc.Value) {
					c.queue.cancelAll(ErrLostRace)
				}
				return
			}
			if c.record(i, oc) {
				reasons := make([]error, len(c.outcomes))
				for j, o := range c.outcomes {
					reasons[j] = o.Reason
				}
				res.rejectInternal(&AggregateError{Reasons: reasons})
			}
		}})
	}
	return res
}
