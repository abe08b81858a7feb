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
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/creack/pty"
	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
	gps "github.com/shirou/gopsutil/v4/process"
)

// readChunkSize is the read granularity of the pipe and stream backends.
const readChunkSize = 4096

func (p *Process) execute() (*Response, error) {
	switch p.kind {
	case KindExec:
		return p.runExec()
	case KindShell:
		return p.runShell()
	case KindOpen:
		return p.runOpen()
	case KindPipe:
		return p.runPipe()
	case KindCallback:
		return p.runCallback()
	case KindStream:
		return p.runStream()
	default:
		return nil, ErrInvalidKind
	}
}

// expand substitutes $VAR and ${VAR} references in a string command
// against the configured environment, falling back to the supervisor's own
// environment only when inherit_environment is set. Unknown variables
// expand to the empty string, never to the raw reference.
func (p *Process) expand(s string) string {
	return os.Expand(s, func(key string) string {
		if v, ok := p.env[key]; ok {
			return v
		}
		if p.opts.InheritEnvironment {
			return os.Getenv(key)
		}
		return ""
	})
}

// commandLine renders the command as one shell line: an argv is joined
// with each argument escaped, a string command is expanded.
func (p *Process) commandLine() string {
	if p.argv != nil {
		return shellquote.Join(p.argv...)
	}
	return p.expand(p.rawCmd)
}

// argvList renders the command as an argv: a string command is expanded
// and then split with shell quoting rules.
func (p *Process) argvList() ([]string, error) {
	if p.argv != nil {
		return p.argv, nil
	}
	argv, err := shellquote.Split(p.expand(p.rawCmd))
	if err != nil {
		return nil, errors.Wrap(err, "process: split command")
	}
	if len(argv) == 0 {
		return nil, ErrMissingCommand
	}
	return argv, nil
}

func (p *Process) environ() []string {
	if len(p.env) == 0 && !p.opts.InheritEnvironment {
		// nothing configured, inherit the parent environment.
		return nil
	}

	var env []string
	if p.opts.InheritEnvironment {
		env = os.Environ()
	}
	keys := make([]string, 0, len(p.env))
	for k := range p.env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+p.env[k])
	}
	return env
}

func (p *Process) applyAttrs(cmd *exec.Cmd) {
	cmd.Dir = p.cwd
	cmd.Env = p.environ()

	// setsid implies a new process group, so the two options never combine.
	if p.opts.DetachProcess || p.opts.CreateNewConsole {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	} else if p.opts.CreateProcessGroup {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}
}

// registerCmd publishes the started command so IsRunning, Info, and the
// timeout path can reach it.
func (p *Process) registerCmd(cmd *exec.Cmd, ptmx *os.File) {
	p.mu.Lock()
	p.cmd = cmd
	p.ptmx = ptmx
	if cmd.Process != nil {
		p.pid = cmd.Process.Pid
	}
	p.mu.Unlock()
}

func (p *Process) kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if p.opts.CreateProcessGroup {
		if err := syscall.Kill(-pid, syscall.SIGKILL); err == nil || err == syscall.ESRCH {
			return nil
		}
	}
	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return errors.Wrap(err, "process: kill")
	}
	return nil
}

func (p *Process) runExec() (*Response, error) {
	argv, err := p.argvList()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	p.applyAttrs(cmd)
	return p.collectCommand(cmd)
}

func (p *Process) runShell() (*Response, error) {
	if p.opts.BypassShell {
		return p.runExec()
	}
	cmd := exec.Command("/bin/sh", "-c", p.commandLine())
	p.applyAttrs(cmd)
	return p.collectCommand(cmd)
}

// collectCommand starts cmd, captures its output per the configured
// options, and waits for it. A non-zero exit is captured in the Response,
// not returned as an error; only start and wait failures are errors.
func (p *Process) collectCommand(cmd *exec.Cmd) (*Response, error) {
	var out, errBuf bytes.Buffer

	if p.opts.UsePTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return nil, errors.Wrap(err, "process: start pty")
		}
		p.registerCmd(cmd, ptmx)
		// the pty read fails with EIO once the child side closes; either
		// way the copy ends when the child is done writing.
		_, _ = io.Copy(&out, ptmx)
		return p.commandResponse(cmd, out.String(), "", cmd.Wait())
	}

	cmd.Stdout = &out
	switch {
	case p.opts.RedirectStderr:
		cmd.Stderr = &out
	case p.opts.SuppressErrors:
		cmd.Stderr = io.Discard
	default:
		cmd.Stderr = &errBuf
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "process: start")
	}
	p.registerCmd(cmd, nil)
	return p.commandResponse(cmd, out.String(), errBuf.String(), cmd.Wait())
}

func (p *Process) commandResponse(cmd *exec.Cmd, out, errOut string, waitErr error) (*Response, error) {
	var exitErr *exec.ExitError
	if waitErr != nil && !stderrors.As(waitErr, &exitErr) {
		return nil, errors.Wrap(waitErr, "process: wait")
	}

	resp := &Response{Output: out, Stderr: errOut, ExitCode: -1}
	if cmd.Process != nil {
		resp.Pid = cmd.Process.Pid
	}
	if cmd.ProcessState != nil {
		resp.ExitCode = cmd.ProcessState.ExitCode()
	}
	return resp, nil
}

// runOpen spawns the command behind a unidirectional pipe: mode "r" reads
// its output in chunks until EOF, mode "w" feeds it the configured stdin.
func (p *Process) runOpen() (*Response, error) {
	cmd := exec.Command("/bin/sh", "-c", p.commandLine())
	p.applyAttrs(cmd)

	if p.mode == "w" {
		cmd.Stdin = p.stdin
		return p.collectCommand(cmd)
	}

	var errBuf bytes.Buffer
	if p.opts.SuppressErrors {
		cmd.Stderr = io.Discard
	} else {
		cmd.Stderr = &errBuf
	}
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "process: open pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "process: start")
	}
	p.registerCmd(cmd, nil)

	out, readErr := readChunks(pipe)
	resp, err := p.commandResponse(cmd, out, errBuf.String(), cmd.Wait())
	if err != nil {
		return nil, err
	}
	if readErr != nil {
		return nil, errors.Wrap(readErr, "process: read pipe")
	}
	return resp, nil
}

// runPipe spawns the command with stdin, stdout, and stderr descriptors
// attached. Unless blocking_pipes is set, completion is detected by
// polling the pid's status, and the captured pipes are read out after
// exit; exec.Cmd closes all three descriptors exactly once either way.
func (p *Process) runPipe() (*Response, error) {
	var cmd *exec.Cmd
	if p.opts.BypassShell || p.argv != nil {
		argv, err := p.argvList()
		if err != nil {
			return nil, err
		}
		cmd = exec.Command(argv[0], argv[1:]...)
	} else {
		cmd = exec.Command("/bin/sh", "-c", p.commandLine())
	}
	p.applyAttrs(cmd)

	var out, errBuf bytes.Buffer
	cmd.Stdin = p.stdin
	if p.stdout != nil {
		cmd.Stdout = p.stdout
	} else {
		cmd.Stdout = &out
	}
	switch {
	case p.stderr != nil:
		cmd.Stderr = p.stderr
	case p.opts.RedirectStderr:
		cmd.Stderr = cmd.Stdout
	case p.opts.SuppressErrors:
		cmd.Stderr = io.Discard
	default:
		cmd.Stderr = &errBuf
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "process: start")
	}
	p.registerCmd(cmd, nil)

	if !p.opts.BlockingPipes {
		pollProcessExit(cmd.Process.Pid)
	}
	return p.commandResponse(cmd, out.String(), errBuf.String(), cmd.Wait())
}

// pollProcessExit sleeps in growing intervals until the pid is gone from
// the process table, so the subsequent Wait only reaps.
func pollProcessExit(pid int) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 10 * time.Millisecond
	b.MaxElapsedTime = 0

	for {
		proc, err := gps.NewProcess(int32(pid))
		if err != nil {
			return
		}
		running, err := proc.IsRunning()
		if err != nil || !running {
			return
		}
		d := b.NextBackOff()
		if d == backoff.Stop {
			d = b.MaxInterval
		}
		time.Sleep(d)
	}
}

func (p *Process) runCallback() (*Response, error) {
	v, err := p.callback()
	if err != nil {
		return nil, err
	}
	return &Response{Value: v}, nil
}

func (p *Process) runStream() (*Response, error) {
	out, err := readChunks(p.stream)
	if err != nil {
		return nil, errors.Wrap(err, "process: read stream")
	}
	return &Response{Output: out}, nil
}

// readChunks drains r in fixed-size reads until EOF.
func readChunks(r io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		sb.Write(buf[:n])
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
	}
}
