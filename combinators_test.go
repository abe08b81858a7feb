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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllOrdering(t *testing.T) {
	p0 := Deferred[string]()
	p1 := Deferred[string]()
	p2 := Deferred[string]()

	res := All(p0, p1, p2)

	// settle out of index order.
	p1.Resolve("one")
	p2.Resolve("two")
	p0.Resolve("zero")

	vals, err := res.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []string{"zero", "one", "two"}, vals)
}

func TestAllFailFast(t *testing.T) {
	never := Deferred[int]()
	res := All(never, Rejected[int](errBoom))

	_, err := res.Wait(time.Second)
	assert.ErrorIs(t, err, errBoom)

	// the never-settling input was canceled as a loser.
	_, err = never.Wait(time.Second)
	assert.ErrorIs(t, err, ErrLostRace)
}

func TestAllEmpty(t *testing.T) {
	vals, err := All[int]().Wait(time.Second)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestRaceFirstWins(t *testing.T) {
	slow := Deferred[int]()
	fast := Deferred[int]()

	res := Race(slow, fast)
	fast.Resolve(2)

	val, err := res.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, val)

	_, err = slow.Wait(time.Second)
	var cerr *CanceledError
	require.ErrorAs(t, err, &cerr)
	assert.ErrorIs(t, err, ErrLostRace)
}

func TestRaceRejectionWins(t *testing.T) {
	slow := Deferred[int]()
	res := Race(slow, Rejected[int](errBoom))

	_, err := res.Wait(time.Second)
	assert.ErrorIs(t, err, errBoom)
}

func TestRaceEmptyNeverSettles(t *testing.T) {
	res := Race[int]()
	assert.Equal(t, StatePending, res.State())

	_, err := res.Wait(20 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestAllSettledNeverRejects(t *testing.T) {
	p0 := Deferred[int]()
	p1 := Deferred[int]()

	res := AllSettled(p0, Rejected[int](errBoom), p1)
	p0.Resolve(10)
	p1.Cancel(nil)

	ocs, err := res.Wait(time.Second)
	require.NoError(t, err)
	require.Len(t, ocs, 3)

	assert.Equal(t, StateFulfilled, ocs[0].Status)
	assert.Equal(t, 10, ocs[0].Value)
	assert.Equal(t, StateRejected, ocs[1].Status)
	assert.ErrorIs(t, ocs[1].Reason, errBoom)
	assert.Equal(t, StateRejected, ocs[2].Status)
	assert.ErrorIs(t, ocs[2].Reason, ErrCanceled)
}

func TestAllSettledEmpty(t *testing.T) {
	ocs, err := AllSettled[int]().Wait(time.Second)
	require.NoError(t, err)
	assert.Empty(t, ocs)
}

func TestAnyFirstFulfillmentWins(t *testing.T) {
	p0 := Deferred[int]()
	p1 := Deferred[int]()

	res := Any(Rejected[int](errBoom), p0, p1)
	p1.Resolve(31)

	val, err := res.Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 31, val)

	// the still-pending sibling lost the race.
	_, err = p0.Wait(time.Second)
	assert.ErrorIs(t, err, ErrLostRace)
}

func TestAnyAggregateRejection(t *testing.T) {
	const n = 3

	ps := make([]Promise[int], n)
	reasons := make([]error, n)
	for i := range ps {
		ps[i] = Deferred[int]()
		reasons[i] = fmt.Errorf("reason %d", i)
	}

	res := Any(ps...)

	// reject in reverse order; the aggregate must still report input order.
	for i := n - 1; i >= 0; i-- {
		ps[i].Reject(reasons[i])
	}

	_, err := res.Wait(time.Second)
	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Reasons, n)
	for i := 0; i < n; i++ {
		assert.ErrorIs(t, agg.Reasons[i], reasons[i])
	}
}

func TestAnyEmpty(t *testing.T) {
	_, err := Any[int]().Wait(time.Second)
	assert.ErrorIs(t, err, ErrNoPromises)
}

func TestRaceSettledInputsTieBreakByOrder(t *testing.T) {
	// both inputs went through the full state machine and settled before
	// the race starts; the earlier input must win every time.
	for i := 0; i < 25; i++ {
		first := Deferred[int]()
		second := Deferred[int]()
		first.Resolve(1)
		second.Resolve(2)

		val, err := Race(first, second).Wait(time.Second)
		require.NoError(t, err)
		assert.Equal(t, 1, val)
	}
}

func TestAnySettledInputsTieBreakByOrder(t *testing.T) {
	for i := 0; i < 25; i++ {
		rej := Deferred[int]()
		a := Deferred[int]()
		b := Deferred[int]()
		rej.Reject(errBoom)
		a.Resolve(5)
		b.Resolve(6)

		val, err := Any(rej, a, b).Wait(time.Second)
		require.NoError(t, err)
		assert.Equal(t, 5, val)
	}
}

func TestCombinatorsWithTerminalInputs(t *testing.T) {
	vals, err := All(Resolved(1), Resolved(2)).Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, vals)

	val, err := Race(Resolved(7), Deferred[int]()).Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 7, val)

	val, err = Any(Rejected[int](errBoom), Resolved(8)).Wait(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 8, val)
}

func TestAggregateErrorUnwrap(t *testing.T) {
	agg := &AggregateError{Reasons: []error{errBoom, errors.New("other")}}
	assert.ErrorIs(t, agg, errBoom)
	assert.Contains(t, agg.Error(), "boom")
}
