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

// Package status implements the atomic settlement word shared by all
// promise implementations in the parent module.
//
// The word packs three sections, updated under a one-word swap lock:
//
// State, which can be Pending, Fulfilled, or Rejected. It starts as
// Pending, and once it moves to either terminal state it never changes.
//
// Fate, which can be Unresolved, Resolving, or Resolved. SetResolving is
// the election point: exactly one caller wins it, and only the winner is
// allowed to move the fate to Resolved. Everything that needs "exactly one
// settlement" builds on this.
//
// Flags, which record that the settlement happened through cancellation,
// and that a wait call is currently blocked on the promise.
//
// The lock is a dedicated word value, not a mutex: writers swap the word
// with the lock value, update their copy, and swap it back. Readers spin on
// the lock value only, so loads never block writers.
package status
