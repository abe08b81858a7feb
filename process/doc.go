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

// Package process supervises external commands, in-process callbacks, and
// byte streams behind one promise-producing interface.
//
// A Process is configured while idle, started once with Run, and awaited
// with Wait. Every path out of the running state, natural completion,
// timeout, and disposal, routes through one idempotent Cleanup that closes
// the OS handles exactly once. Runtime failures of the supervised work
// (non-zero exit, stderr output) are captured into the Response rather
// than returned as errors; a timeout is the only runtime condition
// reported as an error.
package process
