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

// Cancelable is the least a value must offer to join a settlementQueue.
// All promises of this module implement it.
type Cancelable interface {
	Cancel(reason error)
}

// settlementQueue tracks the sibling promises of one combinator call so
// the losers can be canceled once a winner settles. Each call owns its
// own queue; there's no process-wide queue to contend on.
type settlementQueue struct {
	mu sync.Mutex

	// once set, the winner is known and every item, present or future,
	// gets canceled with it.
	done   bool
	reason error

	items []Cancelable
}

// push adds v to the queue, canceling it immediately if a winner already
// settled. A value that can't be canceled is a caller bug, reported on the
// violation channel.
func (q *settlementQueue) push(v any) {
	c, ok := v.(Cancelable)
	if !ok {
		reportViolation(nil, ErrNotCancelable)
		return
	}

	q.mu.Lock()
	if !q.done {
		q.items = append(q.items, c)
		q.mu.Unlock()
		return
	}
	reason := q.reason
	q.mu.Unlock()

	cancelItem(c, reason)
}

// cancelAll cancels every queued item with reason, best-effort: a panic in
// one item's Cancel never blocks the others, nor the winner's settlement.
func (q *settlementQueue) cancelAll(reason error) {
	q.mu.Lock()
	if q.done {
		q.mu.Unlock()
		return
	}
	q.done = true
	q.reason = reason
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, c := range items {
		cancelItem(c, reason)
	}
}

func cancelItem(c Cancelable, reason error) {
	defer func() {
		if v := recover(); v != nil {
			if l, ok := getLogger(); ok {
				l.Warn().Interface("panic", v).Msg("promise: cancel of a losing promise panicked")
			}
		}
	}()
	c.Cancel(reason)
}
