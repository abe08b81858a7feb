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
	"context"
	"runtime"
	"sync"

	"github.com/brickingsoft/rxp"
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// MaxGoroutines is the allowed number of goroutines the scheduler's
	// pool can run, covering executor callbacks and handlers registered
	// after settlement. If it's 0 or less, the pool default applies.
	MaxGoroutines int

	// WaitStrategy is the strategy every Wait call on promises built on
	// this scheduler blocks with. The default is ChannelWait.
	WaitStrategy WaitStrategy

	// UncaughtRejectionHandler, if set, is invoked when a rejected promise
	// reaches a Wait call with no Catch registered anywhere on it.
	// Unterminated chains are never reported; terminating chains with a
	// Catch stays the caller's responsibility.
	UncaughtRejectionHandler func(reason error)
}

// Scheduler runs executor callbacks and late-registered handlers off the
// construction path, on a bounded goroutine pool.
//
// Submission is cooperative: when the pool refuses the work, because it's
// saturated or closed, the work runs synchronously and immediately on the
// submitting goroutine instead. The fallback is transparent to callers;
// the promise contract is identical either way.
type Scheduler struct {
	execs rxp.Executors

	// ctx carries the executors value, so package-level rxp submission
	// helpers can find it.
	ctx context.Context

	strategy          WaitStrategy
	uncaughtRejection func(reason error)
}

// NewScheduler creates a Scheduler backed by its own goroutine pool.
//
// When the pool itself can't be built, the scheduler still works: every
// submission takes the synchronous fallback path.
func NewScheduler(c ...*SchedulerConfig) *Scheduler {
	s := &Scheduler{}

	var opts []rxp.Option
	if len(c) != 0 && c[0] != nil {
		if n := c[0].MaxGoroutines; n > 0 {
			opts = append(opts, rxp.WithMaxGoroutines(n))
		}
		if ws := c[0].WaitStrategy; ws != nil {
			s.strategy = ws
		}
		if cb := c[0].UncaughtRejectionHandler; cb != nil {
			s.uncaughtRejection = cb
		}
	}

	execs, err := rxp.New(opts...)
	if err != nil {
		if l, ok := getLogger(); ok {
			l.Error().Err(err).Msg("promise: scheduler pool unavailable, running synchronously")
		}
		return s
	}
	s.execs = execs
	s.ctx = rxp.With(context.Background(), execs)
	return s
}

// Close shuts the pool down, waiting for already-submitted work to finish.
// Submissions arriving afterwards run synchronously.
func (s *Scheduler) Close() error {
	if s == nil || s.execs == nil {
		return nil
	}
	return s.execs.Close()
}

// submitTask adapts a plain function to the pool's task contract.
type submitTask func()

func (t submitTask) Handle(ctx context.Context) {
	t()
}

// submit hands fn to the pool, falling back to running it synchronously
// and immediately when there's no pool to hand it to, or the pool refuses.
// It reports whether fn was accepted for asynchronous execution.
func (s *Scheduler) submit(fn func()) (async bool) {
	if s == nil || s.execs == nil {
		fn()
		return false
	}
	if !rxp.TryExecute(s.ctx, submitTask(fn)) {
		// saturated or closed; the synchronous path is a valid substrate.
		fn()
		return false
	}
	return true
}

var (
	defScheduler     *Scheduler
	defSchedulerOnce sync.Once
)

// DefaultScheduler returns the shared scheduler used by the package-level
// constructors. It's created on first use and released with the process.
func DefaultScheduler() *Scheduler {
	defSchedulerOnce.Do(func() {
		if defScheduler == nil {
			defScheduler = NewScheduler()
			runtime.SetFinalizer(defScheduler, (*Scheduler).Close)
		}
	})
	return defScheduler
}
