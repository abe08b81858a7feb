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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soladder/promise"
)

func mustRun(t *testing.T, p *Process) *Response {
	t.Helper()
	p.Run()
	resp, err := p.Wait(10 * time.Second)
	require.NoError(t, err)
	return resp
}

func TestExecCapturesOutput(t *testing.T) {
	p, err := New([]string{"echo", "hello"}, KindExec)
	require.NoError(t, err)

	resp := mustRun(t, p)
	assert.Equal(t, "hello\n", resp.Output)
	assert.Equal(t, 0, resp.ExitCode)
	assert.Greater(t, resp.Pid, 0)
	assert.Equal(t, StatusComplete, resp.Status)
	assert.True(t, resp.Ok())
}

func TestExecStringCommand(t *testing.T) {
	p, err := New("echo one two", KindExec)
	require.NoError(t, err)

	resp := mustRun(t, p)
	assert.Equal(t, "one two\n", resp.Output)
}

func TestShellArgvEscaping(t *testing.T) {
	// the argv form is escaped per argument before the shell sees it.
	p, err := New([]string{"echo", "a b", "$HOME"}, KindShell)
	require.NoError(t, err)

	resp := mustRun(t, p)
	assert.Equal(t, "a b $HOME\n", resp.Output)
}

func TestShellEnvironmentSubstitution(t *testing.T) {
	p, err := New("echo $GREETING", KindShell)
	require.NoError(t, err)
	require.NoError(t, p.SetEnvironment(map[string]string{"GREETING": "hi there"}))

	resp := mustRun(t, p)
	assert.Equal(t, "hi there\n", resp.Output)
}

func TestSubstitutionUnknownVariableIsEmpty(t *testing.T) {
	p, err := New("echo [$NO_SUCH_VARIABLE_SET]", KindShell)
	require.NoError(t, err)

	resp := mustRun(t, p)
	assert.Equal(t, "[]\n", resp.Output)
}

func TestNonZeroExitIsCaptured(t *testing.T) {
	p, err := New("exit 3", KindShell)
	require.NoError(t, err)

	resp := mustRun(t, p)
	assert.Equal(t, 3, resp.ExitCode)
	assert.False(t, resp.Ok())
	assert.Equal(t, StatusComplete, p.Status())
}

func TestStderrHandling(t *testing.T) {
	const cmd = "echo out; echo err 1>&2"

	t.Run("captured", func(t *testing.T) {
		p, err := New(cmd, KindShell)
		require.NoError(t, err)

		resp := mustRun(t, p)
		assert.Equal(t, "out\n", resp.Output)
		assert.Equal(t, "err\n", resp.Stderr)
	})

	t.Run("redirected", func(t *testing.T) {
		p, err := New(cmd, KindShell)
		require.NoError(t, err)
		require.NoError(t, p.SetOptions(map[string]bool{OptRedirectStderr: true}))

		resp := mustRun(t, p)
		assert.Contains(t, resp.Output, "out\n")
		assert.Contains(t, resp.Output, "err\n")
		assert.Empty(t, resp.Stderr)
	})

	t.Run("suppressed", func(t *testing.T) {
		p, err := New(cmd, KindShell)
		require.NoError(t, err)
		require.NoError(t, p.SetOptions(map[string]bool{OptSuppressErrors: true}))

		resp := mustRun(t, p)
		assert.Equal(t, "out\n", resp.Output)
		assert.Empty(t, resp.Stderr)
	})
}

func TestWorkingDirectory(t *testing.T) {
	dir := t.TempDir()

	p, err := New([]string{"pwd"}, KindExec)
	require.NoError(t, err)
	require.NoError(t, p.SetWorkingDirectory(dir))

	resp := mustRun(t, p)
	assert.Equal(t, dir, strings.TrimSpace(resp.Output))
}

func TestOpenBackendReadsUntilEOF(t *testing.T) {
	p, err := New("printf 'line1\\nline2\\n'", KindOpen)
	require.NoError(t, err)

	resp := mustRun(t, p)
	assert.Equal(t, "line1\nline2\n", resp.Output)
}

func TestPipeBackend(t *testing.T) {
	p, err := New("cat", KindPipe)
	require.NoError(t, err)
	require.NoError(t, p.SetDescriptors(strings.NewReader("through the pipe"), nil, nil))

	resp := mustRun(t, p)
	assert.Equal(t, "through the pipe", resp.Output)
}

func TestPipeBackendBlocking(t *testing.T) {
	p, err := New("cat", KindPipe)
	require.NoError(t, err)
	require.NoError(t, p.SetDescriptors(strings.NewReader("blocking"), nil, nil))
	require.NoError(t, p.SetOptions(map[string]bool{OptBlockingPipes: true}))

	resp := mustRun(t, p)
	assert.Equal(t, "blocking", resp.Output)
}

func TestCallbackBackend(t *testing.T) {
	p, err := WithCallback(func() (any, error) { return 42, nil })
	require.NoError(t, err)

	resp := mustRun(t, p)
	assert.Equal(t, 42, resp.Value)
	assert.Equal(t, StatusComplete, p.Status())
}

func TestCallbackError(t *testing.T) {
	errCb := errors.New("callback failed")
	p, err := WithCallback(func() (any, error) { return nil, errCb })
	require.NoError(t, err)

	p.Run()
	_, err = p.Wait(10 * time.Second)
	assert.ErrorIs(t, err, errCb)
	assert.Equal(t, StatusErrored, p.Status())
	assert.True(t, p.IsComplete())
}

func TestSuppressErrorsDowngradesBackendError(t *testing.T) {
	errCb := errors.New("callback failed")
	p, err := WithCallback(func() (any, error) { return nil, errCb })
	require.NoError(t, err)
	require.NoError(t, p.SetOptions(map[string]bool{OptSuppressErrors: true}))

	// the failure lands in the response instead of rejecting the promise.
	resp := mustRun(t, p)
	assert.Equal(t, StatusErrored, resp.Status)
	assert.False(t, resp.Ok())
	assert.Equal(t, StatusErrored, p.Status())
	assert.True(t, p.IsComplete())
}

func TestSuppressErrorsDowngradesSpawnFailure(t *testing.T) {
	p, err := New([]string{"/no/such/binary/exists"}, KindExec)
	require.NoError(t, err)
	require.NoError(t, p.SetOptions(map[string]bool{OptSuppressErrors: true}))

	resp := mustRun(t, p)
	assert.Equal(t, StatusErrored, resp.Status)
	assert.Equal(t, -1, resp.ExitCode)
}

type closeTracker struct {
	*strings.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestStreamBackend(t *testing.T) {
	src := &closeTracker{Reader: strings.NewReader("streamed bytes")}
	p, err := WithStream(src)
	require.NoError(t, err)

	resp := mustRun(t, p)
	assert.Equal(t, "streamed bytes", resp.Output)
	assert.True(t, src.closed)
}

func TestCleanupIdempotence(t *testing.T) {
	p, err := WithCallback(func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	mustRun(t, p)

	require.NoError(t, p.Cleanup())
	require.NoError(t, p.Cleanup())
	require.NoError(t, p.Close())
	assert.True(t, p.IsComplete())
}

func TestTimeout(t *testing.T) {
	p, err := New([]string{"sleep", "5"}, KindExec)
	require.NoError(t, err)

	p.Run()
	start := time.Now()
	_, err = p.Wait(50 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, StatusTimedOut, p.Status())
	assert.True(t, p.IsComplete())

	// give the killed child a moment to be reaped before asking the OS.
	assert.Eventually(t, func() bool { return !p.IsRunning() },
		2*time.Second, 10*time.Millisecond)
}

func TestConfigurationLock(t *testing.T) {
	p, err := New([]string{"sleep", "1"}, KindExec)
	require.NoError(t, err)

	p.Run()
	defer p.Close()

	assert.ErrorIs(t, p.SetEnvironment(map[string]string{"A": "1"}), ErrProcessRunning)
	assert.ErrorIs(t, p.SetWorkingDirectory("/tmp"), ErrProcessRunning)
	assert.ErrorIs(t, p.SetMode("w"), ErrProcessRunning)
	assert.ErrorIs(t, p.SetDescriptors(nil, nil, nil), ErrProcessRunning)
	assert.ErrorIs(t, p.SetOptions(map[string]bool{OptUsePTY: true}), ErrProcessRunning)
	assert.ErrorIs(t, p.SetScheduler(nil), ErrProcessRunning)
}

func TestCustomScheduler(t *testing.T) {
	sched := promise.NewScheduler(&promise.SchedulerConfig{
		MaxGoroutines: 2,
		WaitStrategy:  promise.PollWait(nil),
	})
	defer sched.Close()

	p, err := New([]string{"echo", "scheduled"}, KindExec)
	require.NoError(t, err)
	require.NoError(t, p.SetScheduler(sched))

	resp := mustRun(t, p)
	assert.Equal(t, "scheduled\n", resp.Output)
}

func TestRunTwice(t *testing.T) {
	p, err := WithCallback(func() (any, error) { return 1, nil })
	require.NoError(t, err)

	mustRun(t, p)

	_, err = p.Run().Wait(time.Second)
	assert.ErrorIs(t, err, ErrProcessRunning)
}

func TestWaitBeforeRun(t *testing.T) {
	p, err := New([]string{"true"}, KindExec)
	require.NoError(t, err)

	_, err = p.Wait(time.Second)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestConstructionErrors(t *testing.T) {
	_, err := New([]string{}, KindExec)
	assert.ErrorIs(t, err, ErrMissingCommand)

	_, err = New("", KindShell)
	assert.ErrorIs(t, err, ErrMissingCommand)

	_, err = New(42, KindExec)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New("echo hi", Kind(99))
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = WithCallback(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = WithStream(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInvalidMode(t *testing.T) {
	p, err := New("cat", KindOpen)
	require.NoError(t, err)
	assert.ErrorIs(t, p.SetMode("x"), ErrInvalidMode)
	assert.NoError(t, p.SetMode("w"))
}

func TestInfoAndAccessors(t *testing.T) {
	p, err := New([]string{"echo", "info"}, KindExec)
	require.NoError(t, err)

	assert.Equal(t, StatusIdle, p.Status())
	assert.True(t, p.StartTime().IsZero())
	assert.False(t, p.IsRunning())
	assert.Nil(t, p.Response())

	mustRun(t, p)

	assert.False(t, p.StartTime().IsZero())
	assert.Greater(t, p.Pid(), 0)
	require.NotNil(t, p.Response())

	info := p.Info()
	assert.Equal(t, p.ID().String(), info["id"])
	assert.Equal(t, "exec", info["kind"])
	assert.Equal(t, "complete", info["status"])
	assert.Equal(t, 0, info["exit_code"])
}
