// Package supervisor manages named goroutines tied to a shared context:
// panic recovery, optional cancel-on-first-error, restart loops with backoff,
// and context-aware waiting on shutdown.
package supervisor

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	logx "postbot/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc

	log         logx.Logger
	cancelOnErr bool

	errOnce  sync.Once
	firstErr atomic.Value // stores error

	wg sync.WaitGroup
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option {
	return func(s *Supervisor) { s.log = log }
}

// WithCancelOnError makes the first non-nil goroutine error cancel the
// supervisor context.
func WithCancelOnError(enabled bool) Option {
	return func(s *Supervisor) { s.cancelOnErr = enabled }
}

func New(parent context.Context, opts ...Option) *Supervisor {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{ctx: ctx, cancel: cancel}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

func (s *Supervisor) Cancel() { s.cancel() }

// FirstErr returns the first error reported by any supervised goroutine.
func (s *Supervisor) FirstErr() error {
	v := s.firstErr.Load()
	if v == nil {
		return nil
	}
	err, _ := v.(error)
	return err
}

func (s *Supervisor) reportErr(name string, err error) {
	if err == nil {
		return
	}
	s.errOnce.Do(func() { s.firstErr.Store(err) })
	if !s.log.IsZero() {
		s.log.Warn("supervised goroutine error", logx.String("name", name), logx.Err(err))
	}
	if s.cancelOnErr {
		s.cancel()
	}
}

// Go runs fn once under the supervisor. Panics are recovered and reported
// as errors.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reportErr(name, s.runOnce(name, fn))
	}()
}

// Go0 is Go for functions without an error result.
func (s *Supervisor) Go0(name string, fn func(ctx context.Context)) {
	s.Go(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	})
}

func (s *Supervisor) runOnce(name string, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if !s.log.IsZero() {
				s.log.Error("panic in supervised goroutine",
					logx.String("name", name),
					logx.Any("panic", r),
					logx.String("stack", string(debug.Stack())),
				)
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(s.ctx)
}

type restartConfig struct {
	backoffBase time.Duration
	backoffMax  time.Duration
	stopOnClean bool
}

type RestartOption func(*restartConfig)

func WithRestartBackoff(base, max time.Duration) RestartOption {
	return func(c *restartConfig) {
		if base > 0 {
			c.backoffBase = base
		}
		if max > 0 {
			c.backoffMax = max
		}
	}
}

// WithStopOnCleanExit controls whether a nil-error return ends the restart
// loop (default true). Disable for loops that must run for the whole
// supervisor lifetime.
func WithStopOnCleanExit(stop bool) RestartOption {
	return func(c *restartConfig) { c.stopOnClean = stop }
}

// GoRestart runs fn in a restart loop until the supervisor context ends.
// Each exit (error, panic, or clean if configured) is followed by an
// exponential backoff before the next attempt.
func (s *Supervisor) GoRestart(name string, fn func(ctx context.Context) error, opts ...RestartOption) {
	cfg := restartConfig{
		backoffBase: 500 * time.Millisecond,
		backoffMax:  10 * time.Second,
		stopOnClean: true,
	}
	for _, o := range opts {
		o(&cfg)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		backoff := cfg.backoffBase
		for {
			if s.ctx.Err() != nil {
				return
			}
			err := s.runOnce(name, fn)
			if err != nil {
				s.reportErr(name, err)
			} else if cfg.stopOnClean {
				return
			}
			if s.ctx.Err() != nil {
				return
			}
			if !s.log.IsZero() {
				s.log.Debug("restarting supervised goroutine",
					logx.String("name", name),
					logx.Duration("backoff", backoff),
				)
			}
			t := time.NewTimer(backoff)
			select {
			case <-s.ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			backoff *= 2
			if backoff > cfg.backoffMax {
				backoff = cfg.backoffMax
			}
		}
	}()
}

// GoRestart0 is GoRestart for functions without an error result.
func (s *Supervisor) GoRestart0(name string, fn func(ctx context.Context), opts ...RestartOption) {
	s.GoRestart(name, func(ctx context.Context) error {
		fn(ctx)
		return nil
	}, opts...)
}

// Wait blocks until all supervised goroutines have returned or ctx ends.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	if ctx == nil {
		<-done
		return s.FirstErr()
	}
	select {
	case <-done:
		return s.FirstErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}
