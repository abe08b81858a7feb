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

// Package promise provides a lightweight promise implementation with
// deferred resolution, cancellation, and combinators, plus a cooperative
// scheduler that runs executor callbacks off the construction path.
//
// A Promise has three states, and it can be in only one of them, at any time:
// StatePending: the work that corresponds to this Promise has not settled yet.
// StateFulfilled: the work finished and produced a value.
// StateRejected: the work finished with an error, was canceled, or timed out.
//
// A Promise settles exactly once. Once settled, its value and state never
// change. Handlers registered through Then, Catch, and Finally before the
// settlement fire in registration order; handlers registered after the
// settlement are scheduled asynchronously with respect to the caller.
//
// Two error channels exist and never mix. Ordinary rejections are values:
// they flow through Catch handlers and out of Wait, and an unhandled
// rejection at the end of a chain is the caller's responsibility. State
// machine violations are programming errors: settling a promise twice,
// resolving a promise with itself, waiting while another wait is blocked, or
// settling a terminal promise. Violations route to the hook registered with
// OnError, then to the logger installed with SetLogger, and panic only when
// neither is present.
//
// Executor callbacks passed to New and NewThunk are submitted to a bounded
// goroutine pool, so construction never blocks the caller. When the pool
// refuses the work, the executor runs synchronously and immediately instead;
// the fallback is transparent and the promise contract is identical either
// way.
package promise
