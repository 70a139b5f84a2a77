package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"
)

// SignalContext is canceled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// Loops tracks the background workers of a service so main can wait for
// them to drain after the HTTP server has stopped.
type Loops struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewLoops(logger *slog.Logger) *Loops {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loops{logger: logger}
}

// Go runs fn in its own goroutine. A panic is logged with its stack and
// ends only that loop.
func (l *Loops) Go(ctx context.Context, name string, fn func(context.Context)) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				l.logger.Error("background loop panicked",
					"loop", name, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			}
		}()
		l.logger.Info("background loop started", "loop", name)
		fn(ctx)
		l.logger.Info("background loop stopped", "loop", name)
	}()
}

// Wait blocks until every loop has returned or timeout elapses. It reports
// whether all loops finished.
func (l *Loops) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		l.logger.Warn("background loops still running at shutdown", "timeout", timeout)
		return false
	}
}
