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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsExecutors(t *testing.T) {
	sched := NewScheduler(&SchedulerConfig{MaxGoroutines: 4})
	defer sched.Close()

	const n = 8
	ps := make([]Promise[int], n)
	for i := 0; i < n; i++ {
		ps[i] = NewOn(sched, func(resolve func(int), reject func(error)) {
			resolve(i)
		})
	}

	for i, p := range ps {
		val, err := p.Wait(time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, val)
	}
}

func TestSchedulerSyncFallbackAfterClose(t *testing.T) {
	sched := NewScheduler()
	require.NoError(t, sched.Close())

	// the pool is gone, so the executor runs synchronously; the promise
	// contract is identical either way.
	p := NewOn(sched, func(resolve func(int), reject func(error)) {
		resolve(3)
	})

	val, err := p.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, val)
}

func TestNilSchedulerRunsSynchronously(t *testing.T) {
	var s *Scheduler

	ran := false
	async := s.submit(func() { ran = true })

	assert.False(t, async)
	assert.True(t, ran)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestSchedulerWaitStrategy(t *testing.T) {
	sched := NewScheduler(&SchedulerConfig{WaitStrategy: PollWait(nil)})
	defer sched.Close()

	p := DeferredOn[int](sched)
	go func() {
		time.Sleep(10 * time.Millisecond)
		p.Resolve(1)
	}()

	val, err := p.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, val)
}

func TestUncaughtRejectionHandler(t *testing.T) {
	var mu sync.Mutex
	var reported []error
	sched := NewScheduler(&SchedulerConfig{
		UncaughtRejectionHandler: func(reason error) {
			mu.Lock()
			reported = append(reported, reason)
			mu.Unlock()
		},
	})
	defer sched.Close()

	p := DeferredOn[int](sched)
	p.Reject(errBoom)
	_, err := p.Wait(time.Second)
	assert.ErrorIs(t, err, errBoom)

	// waiting again must not double-report.
	_, _ = p.Wait(time.Second)

	mu.Lock()
	require.Len(t, reported, 1)
	assert.ErrorIs(t, reported[0], errBoom)
	mu.Unlock()
}

func TestUncaughtRejectionQuietWithCatch(t *testing.T) {
	called := false
	sched := NewScheduler(&SchedulerConfig{
		UncaughtRejectionHandler: func(error) { called = true },
	})
	defer sched.Close()

	p := DeferredOn[int](sched)
	next := p.Catch(func(error) (int, error) { return 0, nil })
	p.Reject(errBoom)

	_, err := p.Wait(time.Second)
	assert.ErrorIs(t, err, errBoom)
	_, err = next.Wait(time.Second)
	require.NoError(t, err)

	assert.False(t, called)
}

func TestDefaultScheduler(t *testing.T) {
	assert.Same(t, DefaultScheduler(), DefaultScheduler())
}
