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

// IsStatePending returns true if the promise's state is Pending.
func IsStatePending(status uint32) bool {
	return status&stateBitsSetMask == statePending
}

// IsStateFulfilled returns true if the promise's state is Fulfilled.
func IsStateFulfilled(status uint32) bool {
	return status&stateBitsSetMask == stateFulfilled
}

// IsStateRejected returns true if the promise's state is Rejected.
func IsStateRejected(status uint32) bool {
	return status&stateBitsSetMask == stateRejected
}

// IsFateUnresolved returns true if no settlement attempt has started yet.
func IsFateUnresolved(status uint32) bool {
	return status&fateBitsSetMask == fateUnresolved
}

// IsFateResolving returns true if some settlement attempt is in progress.
func IsFateResolving(status uint32) bool {
	return status&fateBitsSetMask == fateResolving
}

// IsFateResolved returns true if the promise has been settled.
func IsFateResolved(status uint32) bool {
	return status&fateBitsSetMask == fateResolved
}

// IsFlagCanceled returns true if the promise was settled through cancellation.
func IsFlagCanceled(status uint32) bool {
	return status&FlagCanceled != 0
}

// IsFlagWaiting returns true if some wait call is blocked on the promise.
func IsFlagWaiting(status uint32) bool {
	return status&FlagWaiting != 0
}
