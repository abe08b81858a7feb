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

package process

import "errors"

var (
	// ErrProcessRunning is returned by Run and the configuration setters
	// when the process already started.
	ErrProcessRunning = errors.New("process: process is running")

	// ErrNotStarted is returned by Wait before Run was called.
	ErrNotStarted = errors.New("process: not started")

	// ErrTimedOut is returned by Wait when its timeout elapsed before the
	// backend finished. The process is force-cleaned on this path.
	ErrTimedOut = errors.New("process: timed out")

	// ErrInvalidKind marks an executor kind this package doesn't know.
	ErrInvalidKind = errors.New("process: invalid executor kind")

	// ErrMissingCommand marks a command-backed construction with no command.
	ErrMissingCommand = errors.New("process: no command provided")

	// ErrInvalidInput marks a construction input of an unsupported type.
	ErrInvalidInput = errors.New("process: invalid input")

	// ErrInvalidMode marks a pipe mode other than "r" or "w".
	ErrInvalidMode = errors.New("process: invalid pipe mode")
)
