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

// Status is the lifecycle state of a Process.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusComplete
	StatusTimedOut
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusComplete:
		return "complete"
	case StatusTimedOut:
		return "timed-out"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Response is the collected result of one supervised execution.
type Response struct {
	// Output holds the collected stdout, or everything read from the pipe,
	// pty, or stream, depending on the backend.
	Output string

	// Stderr holds the collected stderr, when it wasn't redirected into
	// Output or suppressed.
	Stderr string

	// Value holds the return value of a callback backend.
	Value any

	// ExitCode is the command's exit code, or -1 when the backend has none.
	ExitCode int

	// Pid is the supervised command's process id, or 0 when the backend
	// never spawned one.
	Pid int

	Status Status
}

// Ok reports whether the execution completed with a zero exit code.
func (r *Response) Ok() bool {
	return r.Status == StatusComplete && r.ExitCode == 0
}
