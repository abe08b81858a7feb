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

import (
	"fmt"
	"sort"
	"strings"
)

// Option keys recognized by SetOptions.
const (
	OptBlockingPipes      = "blocking_pipes"
	OptCreateProcessGroup = "create_process_group"
	OptCreateNewConsole   = "create_new_console"
	OptBypassShell        = "bypass_shell"
	OptDetachProcess      = "detach_process"
	OptUsePTY             = "use_pty"
	OptInheritEnvironment = "inherit_environment"
	OptRedirectStderr     = "redirect_stderr"
	OptSuppressErrors     = "suppress_errors"
)

// Options is the decoded form of the SetOptions map.
type Options struct {
	// BlockingPipes makes the bidirectional pipe backend block on the
	// command directly instead of polling its status.
	BlockingPipes bool

	// CreateProcessGroup starts the command in its own process group, so a
	// timeout kill reaches its children too.
	CreateProcessGroup bool

	// CreateNewConsole and DetachProcess both start the command in a new
	// session, detached from the supervisor's controlling terminal.
	CreateNewConsole bool
	DetachProcess    bool

	// BypassShell runs a string command directly, split into arguments,
	// instead of handing it to the shell.
	BypassShell bool

	// UsePTY runs the command on a pseudo-terminal and collects the pty
	// output instead of a stdout pipe.
	UsePTY bool

	// InheritEnvironment merges the supervisor's own environment under the
	// configured one, and lets substitution fall back to it.
	InheritEnvironment bool

	// RedirectStderr interleaves stderr into Output; SuppressErrors
	// discards stderr entirely and downgrades backend errors into a
	// StatusErrored response instead of a rejection. RedirectStderr wins
	// when both are set.
	RedirectStderr bool
	SuppressErrors bool
}

func decodeOptions(raw map[string]bool) (Options, error) {
	var o Options
	var unknown []string
	for k, v := range raw {
		switch k {
		case OptBlockingPipes:
			o.BlockingPipes = v
		case OptCreateProcessGroup:
			o.CreateProcessGroup = v
		case OptCreateNewConsole:
			o.CreateNewConsole = v
		case OptBypassShell:
			o.BypassShell = v
		case OptDetachProcess:
			o.DetachProcess = v
		case OptUsePTY:
			o.UsePTY = v
		case OptInheritEnvironment:
			o.InheritEnvironment = v
		case OptRedirectStderr:
			o.RedirectStderr = v
		case OptSuppressErrors:
			o.SuppressErrors = v
		default:
			unknown = append(unknown, k)
		}
	}
	if len(unknown) != 0 {
		sort.Strings(unknown)
		return Options{}, fmt.Errorf("process: unknown options: %s", strings.Join(unknown, ", "))
	}
	return o, nil
}
