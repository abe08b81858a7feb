// Copyright 2020 Ahmad Sameh(asmsh)
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

package status

import (
	"runtime"
	"sync/atomic"
)

var (
	cas  = atomic.CompareAndSwapUint32
	load = atomic.LoadUint32
	swap = atomic.SwapUint32
)

// Word holds the value that defines and represents the settlement status
// of a promise.
// It's read and written/updated atomically.
type Word uint32

// the lock's related values and constants, using 2 bits(the [1st : 2nd] bits)
const (
	// lockAcquired is the value of the word when some update call is running.
	lockAcquired uint32 = 1 << iota
	_                   // reserved
)

// the state's related values and constants, using 2 bits(the [3rd : 4th] bits)
const (
	// state modes, using 2 bits
	statePending   uint32 = iota << 2
	stateFulfilled uint32 = iota << 2
	stateRejected  uint32 = iota << 2

	// stateBitsSetMask and stateBitsClrMask are &-ed with the word to get
	// the state value and clear the state value, respectively.
	stateBitsSetMask uint32 = 3 << 2
	stateBitsClrMask        = ^stateBitsSetMask
)

// the fate's related values and constants, using 2 bits(the [5th : 6th] bits)
const (
	// fate modes, using 2 bits
	fateUnresolved uint32 = iota << 4
	fateResolving  uint32 = iota << 4
	fateResolved   uint32 = iota << 4

	fateBitsSetMask uint32 = 3 << 4
	fateBitsClrMask        = ^fateBitsSetMask
)

// the flags' related values and constants, using 2 bits(the [7th : 8th] bits)
const (
	// FlagCanceled is set when the promise was settled through cancellation,
	// alongside the Rejected state.
	FlagCanceled uint32 = 1 << (iota + 6)

	// FlagWaiting is set while some wait call is blocked on the promise.
	FlagWaiting uint32 = 1 << (iota + 6)
)

func (s *Word) readAndAcquireLock() (currentStatus uint32) {
	// read the current status value, and acquire the update lock, by checking
	// if any other, previous, update call is still processing, and waiting
	// for it to finish.
	cs := swap((*uint32)(s), lockAcquired)
	for cs == lockAcquired {
		// don't actively wait for concurrent update calls, instead, tell the
		// go scheduler to run other goroutines(including the one which has
		// the lock) instead of the current(waiting) one.
		runtime.Gosched()
		cs = swap((*uint32)(s), lockAcquired)
	}
	// at this point, the value of the current status, cs, here is only
	// available to this method and its caller.
	return cs
}

func (s *Word) saveAndReleaseLock(newStatus uint32) {
	// save the new status value, and release the update lock
	if !cas((*uint32)(s), lockAcquired, newStatus) {
		// panic if the status value has been changed unexpectedly
		panic("promise: internal: unexpected status change")
	}
}

// Load returns the current status value, if it's not being updated right now,
// and if it's, it waits until it's updated then returns the value.
func (s *Word) Load() (currentStatus uint32) {
	cs := load((*uint32)(s))
	for cs == lockAcquired {
		cs = load((*uint32)(s))
	}
	return cs
}

// SetResolving moves the fate from Unresolved to Resolving, electing the
// caller as the one which will settle the promise.
// It fails if the promise is already Resolving or Resolved.
func (s *Word) SetResolving() (set bool, status uint32) {
	cs := s.readAndAcquireLock()
	ns := cs

	if ns&fateBitsSetMask == fateUnresolved {
		ns &= fateBitsClrMask
		ns |= fateResolving
		set = true
	}

	s.saveAndReleaseLock(ns)
	return set, ns
}

// SetFulfilledResolved moves the fate to Resolved with the Fulfilled state.
// The caller must have won a previous SetResolving call.
func (s *Word) SetFulfilledResolved() (status uint32) {
	return s.setResolved(stateFulfilled, 0)
}

// SetRejectedResolved moves the fate to Resolved with the Rejected state.
// The caller must have won a previous SetResolving call.
func (s *Word) SetRejectedResolved() (status uint32) {
	return s.setResolved(stateRejected, 0)
}

// SetCanceledResolved moves the fate to Resolved with the Rejected state and
// the Canceled flag set.
// The caller must have won a previous SetResolving call.
func (s *Word) SetCanceledResolved() (status uint32) {
	return s.setResolved(stateRejected, FlagCanceled)
}

func (s *Word) setResolved(state uint32, flags uint32) (status uint32) {
	cs := s.readAndAcquireLock()
	ns := cs

	ns &= stateBitsClrMask
	ns |= state
	ns &= fateBitsClrMask
	ns |= fateResolved
	ns |= flags

	s.saveAndReleaseLock(ns)
	return ns
}

// RegWait declares that there's a wait call blocked on this promise.
// It reports whether it's the only blocked wait call, which is what detects
// the wait-while-waiting violation.
func (s *Word) RegWait() (firstWait bool, status uint32) {
	cs := s.readAndAcquireLock()
	ns := cs

	if ns&FlagWaiting == 0 {
		ns |= FlagWaiting
		firstWait = true
	}

	s.saveAndReleaseLock(ns)
	return firstWait, ns
}

// ClearWait removes the waiting flag, after a wait call has returned.
func (s *Word) ClearWait() (status uint32) {
	cs := s.readAndAcquireLock()
	ns := cs &^ FlagWaiting
	s.saveAndReleaseLock(ns)
	return ns
}
