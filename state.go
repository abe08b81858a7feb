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

// State is the settlement state of a promise.
type State int

const (
	StatePending State = iota
	StateFulfilled
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFulfilled:
		return "fulfilled"
	case StateRejected:
		return "rejected"
	default:
		return "<unknown>"
	}
}

// Outcome is a settled view of a promise: the state it settled to, and the
// value or the reason it settled with.
// It's the element type of AllSettled results, and the payload delivered to
// internal observers.
type Outcome[T any] struct {
	Status State
	Value  T
	Reason error
}

// Ok returns true if the outcome is a fulfillment.
func (o Outcome[T]) Ok() bool {
	return o.Status == StateFulfilled
}
