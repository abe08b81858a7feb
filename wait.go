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

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitStrategy is how a Wait call blocks until settlement. The default
// blocks on the settlement channel; PollWait reproduces the busy-poll
// behavior of cooperative runtimes that have nothing to block on. Both
// honor the same contract: return true once done is closed, false once
// timeout elapses first, and block without bound when timeout is zero or
// less.
type WaitStrategy interface {
	Wait(done <-chan struct{}, timeout time.Duration) (settled bool)
}

var defaultWaitStrategy WaitStrategy = ChannelWait()

// ChannelWait returns the strategy that blocks on the settlement channel
// directly.
func ChannelWait() WaitStrategy {
	return channelWait{}
}

type channelWait struct{}

func (channelWait) Wait(done <-chan struct{}, timeout time.Duration) bool {
	if timeout <= 0 {
		<-done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// PollWait returns the strategy that polls the settlement channel and
// sleeps between polls, with the sleep intervals produced by newBackOff.
// A nil newBackOff polls with small exponential intervals starting at 1ms.
func PollWait(newBackOff func() backoff.BackOff) WaitStrategy {
	if newBackOff == nil {
		newBackOff = defaultPollBackOff
	}
	return pollWait{newBackOff: newBackOff}
}

type pollWait struct {
	newBackOff func() backoff.BackOff
}

func defaultPollBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 10 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

func (w pollWait) Wait(done <-chan struct{}, timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	b := w.newBackOff()
	for {
		select {
		case <-done:
			return true
		default:
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return false
		}

		d := b.NextBackOff()
		if d == backoff.Stop {
			b.Reset()
			continue
		}
		if !deadline.IsZero() {
			if remaining := time.Until(deadline); d > remaining {
				d = remaining
			}
		}
		time.Sleep(d)
	}
}
