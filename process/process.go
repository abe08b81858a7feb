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
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gps "github.com/shirou/gopsutil/v4/process"
	"go.uber.org/multierr"

	"github.com/soladder/promise"
)

// Kind selects the execution backend of a Process.
type Kind int

const (
	// KindExec runs a command directly, without a shell.
	KindExec Kind = iota

	// KindShell hands the command line to the shell.
	KindShell

	// KindOpen opens a unidirectional pipe to a spawned command, reading
	// or writing per the configured mode.
	KindOpen

	// KindPipe spawns a command with stdin, stdout, and stderr pipes.
	KindPipe

	// KindCallback invokes an in-process function.
	KindCallback

	// KindStream reads a pre-existing byte stream until EOF.
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindExec:
		return "exec"
	case KindShell:
		return "shell"
	case KindOpen:
		return "open"
	case KindPipe:
		return "pipe"
	case KindCallback:
		return "callback"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

var (
	logMu  sync.RWMutex
	logger = zerolog.Nop()
	logSet bool
)

// SetLogger installs the logger cleanup and kill failures are reported to.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	logger = l
	logSet = true
	logMu.Unlock()
}

func getLogger() (zerolog.Logger, bool) {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger, logSet
}

// Process supervises one unit of work behind one of the Kind backends.
// Configure it while idle, start it once with Run, and collect the result
// with Wait or through the returned promise.
type Process struct {
	id   uuid.UUID
	kind Kind

	// exactly one of these input forms is set, depending on the kind.
	argv     []string
	rawCmd   string
	callback func() (any, error)
	stream   io.Reader

	cwd   string
	env   map[string]string
	mode  string
	opts  Options
	sched *promise.Scheduler

	// descriptor overrides for the pipe backend.
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	mu        sync.Mutex
	status    Status
	open      bool
	complete  bool
	startTime time.Time
	pid       int
	cmd       *exec.Cmd
	ptmx      *os.File
	resp      *Response
	prom      promise.Promise[*Response]

	cleanupOnce sync.Once
	cleanupErr  error
}

// New creates a command-backed Process. The command is either a []string
// argv, executed as-is with each argument shell-escaped where a command
// line is needed, or a single string, which undergoes environment-variable
// substitution against the configured environment before execution.
func New(command any, kind Kind) (*Process, error) {
	p := newProcess(kind)

	switch kind {
	case KindExec, KindShell, KindOpen, KindPipe:
	case KindCallback:
		return nil, stderrors.New("process: use WithCallback for the callback kind")
	case KindStream:
		return nil, stderrors.New("process: use WithStream for the stream kind")
	default:
		return nil, ErrInvalidKind
	}

	switch c := command.(type) {
	case string:
		if c == "" {
			return nil, ErrMissingCommand
		}
		p.rawCmd = c
	case []string:
		if len(c) == 0 {
			return nil, ErrMissingCommand
		}
		p.argv = append([]string(nil), c...)
	default:
		return nil, ErrInvalidInput
	}
	return p, nil
}

// WithCommand is New with the working directory and environment set in the
// same call.
func WithCommand(command any, kind Kind, cwd string, env map[string]string) (*Process, error) {
	p, err := New(command, kind)
	if err != nil {
		return nil, err
	}
	p.cwd = cwd
	for k, v := range env {
		p.env[k] = v
	}
	return p, nil
}

// WithCallback creates a Process over an in-process function. The
// function's return value becomes the Response's Value.
func WithCallback(fn func() (any, error)) (*Process, error) {
	if fn == nil {
		return nil, ErrInvalidInput
	}
	p := newProcess(KindCallback)
	p.callback = fn
	return p, nil
}

// WithStream creates a Process that reads r until EOF. If r is a Closer,
// cleanup closes it.
func WithStream(r io.Reader) (*Process, error) {
	if r == nil {
		return nil, ErrInvalidInput
	}
	p := newProcess(KindStream)
	p.stream = r
	return p, nil
}

func newProcess(kind Kind) *Process {
	return &Process{
		id:     uuid.New(),
		kind:   kind,
		status: StatusIdle,
		env:    make(map[string]string),
		mode:   "r",
	}
}

// ID returns the handle's unique id.
func (p *Process) ID() uuid.UUID { return p.id }

// Kind returns the execution backend.
func (p *Process) Kind() Kind { return p.kind }

// Status returns the current lifecycle status.
func (p *Process) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// IsComplete reports whether the process reached a terminal status,
// including timeout and error.
func (p *Process) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.complete
}

// IsRunning reports whether the supervised work is still in flight. For
// command backends with a known pid, the OS is asked, so a command that
// exited on its own reads as not running even before Wait collects it.
func (p *Process) IsRunning() bool {
	p.mu.Lock()
	st, pid, open := p.status, p.pid, p.open
	p.mu.Unlock()

	if !open || st != StatusRunning {
		return false
	}
	if pid > 0 {
		if proc, err := gps.NewProcess(int32(pid)); err == nil {
			if running, err := proc.IsRunning(); err == nil {
				return running
			}
		}
	}
	return true
}

// Response returns the collected result, or nil before completion.
func (p *Process) Response() *Response {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resp
}

// Pid returns the supervised command's pid, or 0 when none was spawned.
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// StartTime returns when Run was called, or the zero time before it.
func (p *Process) StartTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startTime
}

// Info returns a metadata snapshot of the handle. For a live pid, the OS
// process name and running flag are included when available.
func (p *Process) Info() map[string]any {
	p.mu.Lock()
	info := map[string]any{
		"id":         p.id.String(),
		"kind":       p.kind.String(),
		"status":     p.status.String(),
		"pid":        p.pid,
		"complete":   p.complete,
		"start_time": p.startTime,
	}
	if p.resp != nil {
		info["exit_code"] = p.resp.ExitCode
	}
	pid := p.pid
	p.mu.Unlock()

	if pid > 0 {
		if proc, err := gps.NewProcess(int32(pid)); err == nil {
			if running, err := proc.IsRunning(); err == nil {
				info["running"] = running
			}
			if name, err := proc.Name(); err == nil {
				info["name"] = name
			}
		}
	}
	return info
}

// configure runs fn under the configuration lock, rejecting it once the
// process has started.
func (p *Process) configure(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusIdle {
		return ErrProcessRunning
	}
	fn()
	return nil
}

// SetWorkingDirectory sets the command's working directory.
func (p *Process) SetWorkingDirectory(dir string) error {
	return p.configure(func() { p.cwd = dir })
}

// SetEnvironment replaces the environment map used for execution and for
// substitution into string commands.
func (p *Process) SetEnvironment(env map[string]string) error {
	return p.configure(func() {
		p.env = make(map[string]string, len(env))
		for k, v := range env {
			p.env[k] = v
		}
	})
}

// SetMode sets the unidirectional pipe direction, "r" to read the
// command's output or "w" to feed it input.
func (p *Process) SetMode(mode string) error {
	if mode != "r" && mode != "w" {
		return ErrInvalidMode
	}
	return p.configure(func() { p.mode = mode })
}

// SetDescriptors overrides the pipe backend's descriptors. Nil entries
// keep the default capture buffers.
func (p *Process) SetDescriptors(stdin io.Reader, stdout, stderr io.Writer) error {
	return p.configure(func() {
		p.stdin = stdin
		p.stdout = stdout
		p.stderr = stderr
	})
}

// SetOptions decodes and applies the option map. Unknown keys are an
// error and nothing is applied.
func (p *Process) SetOptions(raw map[string]bool) error {
	opts, err := decodeOptions(raw)
	if err != nil {
		return err
	}
	return p.configure(func() { p.opts = opts })
}

// SetScheduler pins Run's dispatch, and with it the wait strategy, to a
// specific scheduler instead of the default one.
func (p *Process) SetScheduler(sched *promise.Scheduler) error {
	return p.configure(func() { p.sched = sched })
}

// Run starts the backend and returns a promise of the Response. It hands
// the dispatch to the promise scheduler, so it returns without blocking on
// the backend. Calling Run on a process that isn't idle yields a promise
// rejected with ErrProcessRunning, and has no other effect.
func (p *Process) Run() promise.Promise[*Response] {
	p.mu.Lock()
	if p.status != StatusIdle {
		p.mu.Unlock()
		return promise.Rejected[*Response](ErrProcessRunning)
	}
	p.status = StatusRunning
	p.open = true
	p.startTime = time.Now()
	sched := p.sched
	p.mu.Unlock()

	if sched == nil {
		sched = promise.DefaultScheduler()
	}
	pr := promise.NewOn(sched, func(resolve func(*Response), reject func(error)) {
		resp, err := p.execute()
		if err != nil {
			if p.opts.SuppressErrors {
				// downgraded into the response: the promise fulfills, and
				// the errored status is the only trace of the failure.
				if l, ok := getLogger(); ok {
					l.Warn().Err(err).Str("id", p.id.String()).Msg("process: backend error suppressed")
				}
				if resp == nil {
					resp = &Response{ExitCode: -1}
				}
				p.finish(StatusErrored, resp)
				resolve(resp)
				return
			}
			p.finish(StatusErrored, nil)
			reject(err)
			return
		}
		p.finish(StatusComplete, resp)
		resolve(resp)
	})

	p.mu.Lock()
	p.prom = pr
	p.mu.Unlock()
	return pr
}

// finish records the terminal status and routes through cleanup, unless a
// timeout already claimed the transition.
func (p *Process) finish(st Status, resp *Response) {
	p.mu.Lock()
	if p.status == StatusRunning {
		p.status = st
	}
	if resp != nil {
		// a backend finishing after a timeout still records what it
		// collected, tagged with the status that actually won.
		resp.Status = p.status
		p.resp = resp
	}
	p.mu.Unlock()

	if err := p.Cleanup(); err != nil {
		if l, ok := getLogger(); ok {
			l.Warn().Err(err).Str("id", p.id.String()).Msg("process: cleanup failed")
		}
	}
}

// Wait blocks until the backend finishes or timeout elapses. A timeout of
// zero or less blocks without bound. On timeout, the process is killed,
// cleaned up, and marked StatusTimedOut, and ErrTimedOut is returned.
func (p *Process) Wait(timeout time.Duration) (*Response, error) {
	p.mu.Lock()
	pr := p.prom
	p.mu.Unlock()
	if pr == nil {
		return nil, ErrNotStarted
	}

	resp, err := pr.Wait(timeout)
	if err != nil {
		if stderrors.Is(err, promise.ErrTimeout) {
			p.timedOut()
			return nil, ErrTimedOut
		}
		return nil, err
	}
	return resp, nil
}

// timedOut is the forced path: kill whatever is still running, then route
// through the same cleanup natural completion uses.
func (p *Process) timedOut() {
	p.mu.Lock()
	if p.status == StatusRunning {
		p.status = StatusTimedOut
	}
	cmd := p.cmd
	p.mu.Unlock()

	if cmd != nil {
		if err := p.kill(cmd); err != nil {
			if l, ok := getLogger(); ok {
				l.Warn().Err(err).Str("id", p.id.String()).Msg("process: kill after timeout failed")
			}
		}
	}
	p.finish(StatusTimedOut, nil)
}

// Cleanup closes every handle the backend opened and marks the process
// closed and complete. It's idempotent: the second and later calls return
// the first call's result without touching any handle again.
func (p *Process) Cleanup() error {
	p.cleanupOnce.Do(func() {
		p.mu.Lock()
		ptmx := p.ptmx
		p.ptmx = nil
		stream := p.stream
		p.open = false
		p.complete = true
		if p.status == StatusRunning || p.status == StatusIdle {
			p.status = StatusErrored
		}
		p.mu.Unlock()

		var err error
		if ptmx != nil {
			err = multierr.Append(err, ptmx.Close())
		}
		if c, ok := stream.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
		p.cleanupErr = err
	})
	return p.cleanupErr
}

// Close disposes of the handle. It's the destructor path of the cleanup
// contract and safe to call at any point, any number of times.
func (p *Process) Close() error {
	p.mu.Lock()
	cmd := p.cmd
	running := p.status == StatusRunning
	p.mu.Unlock()

	if running && cmd != nil {
		if err := p.kill(cmd); err != nil {
			if l, ok := getLogger(); ok {
				l.Warn().Err(err).Str("id", p.id.String()).Msg("process: kill on close failed")
			}
		}
	}
	return p.Cleanup()
}
