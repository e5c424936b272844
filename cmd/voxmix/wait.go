// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ik5/voxmix/recorder"
)

// sessionWatch waits for a recording or playback to end on its own.
type sessionWatch struct {
	recorder.NopObserver

	done chan struct{}
	once sync.Once
	last time.Duration
}

func newSessionWatch() *sessionWatch {
	return &sessionWatch{done: make(chan struct{})}
}

func (w *sessionWatch) StateChanged(from, to recorder.State) {
	if from != recorder.Normal && to == recorder.Normal {
		w.once.Do(func() { close(w.done) })
	}
}

func (w *sessionWatch) PlaybackTime(current, total time.Duration) {
	if current-w.last >= time.Second || current == total {
		w.last = current
		log.Debug("playing", zap.Duration("at", current), zap.Duration("total", total))
	}
}

// wait blocks until the session ends or the process is interrupted, in
// which case stop is called.
func (w *sessionWatch) wait(ctx context.Context, stop func() error) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return stop()
	}
}
