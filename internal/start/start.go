// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package start

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// StartFunc is a session's top-level loop: it must return once ctx is
// canceled. tsdb-sine's sample loop and tsdb-bench's select/sums driver are
// both StartFuncs.
type StartFunc func(ctx context.Context) error

// ShutdownTimeoutError means stopTimeout elapsed while run was still
// draining after ctx was canceled. Callers that hold session state needing
// an orderly drain on exit (tsdb-sine's PushQueue, in particular) must treat
// this distinctly from a clean return: run may still be executing and
// touching that state concurrently with whatever cleanup the caller does
// next.
type ShutdownTimeoutError struct {
	Timeout time.Duration
}

func (e *ShutdownTimeoutError) Error() string {
	return fmt.Sprintf("start: run did not return within %s of shutdown", e.Timeout)
}

// Start runs run until os.Interrupt or run itself returns, cancels run's
// context, and waits up to stopTimeout for run to exit. If run has not
// returned by then, Start gives up waiting and reports a
// *ShutdownTimeoutError rather than run's (possibly still pending) error, so
// the caller knows the drain was forced rather than clean.
func Start(ctx context.Context, stopTimeout time.Duration, run StartFunc) error {
	notify := make(chan os.Signal, 3)
	signal.Notify(notify, os.Interrupt)
	ctx, cancel := context.WithCancel(ctx)
	once := &sync.Once{}
	fin := make(chan bool)
	var timedOut atomic.Bool
	unlock := func(timeout bool) {
		once.Do(func() {
			timedOut.Store(timeout)
			close(fin)
		})
	}
	runErr := atomic.Value{}
	go func() {
		err := run(ctx)
		if err != nil {
			runErr.Store(err)
		}
		unlock(false)
	}()
	select {
	case <-notify:
	case <-fin:
	}
	cancel()
	go func() {
		<-time.After(stopTimeout)
		unlock(true)
	}()
	<-fin
	if timedOut.Load() {
		return &ShutdownTimeoutError{Timeout: stopTimeout}
	}
	if err, ok := runErr.Load().(error); ok {
		return err
	}
	return nil
}

func RunAll(ctx context.Context, runs ...func(ctx context.Context) error) error {
	group, ctx := errgroup.WithContext(ctx)
	for _, run := range runs {
		run := run
		group.Go(func() error { return run(ctx) })
	}

	return group.Wait()
}
