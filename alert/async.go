package alert

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AsyncConfig configures the async dispatch decorator.
type AsyncConfig struct {
	// Timeout bounds each detached delivery.
	// Default: 10 seconds
	Timeout time.Duration

	// Logger receives delivery failures. Default: no-op.
	Logger *zap.Logger
}

// AsyncDispatcher runs the wrapped dispatcher on a detached goroutine.
//
// Dispatch always returns nil: the caller's state transition must not roll
// back on notification failure. Delivery errors and panics are logged at the
// async boundary. Wait blocks until in-flight deliveries finish, so tests can
// observe delivery and shutdown can drain.
type AsyncDispatcher struct {
	inner  Dispatcher
	config AsyncConfig
	wg     sync.WaitGroup
}

// NewAsyncDispatcher wraps inner with detached, failure-isolated dispatch.
func NewAsyncDispatcher(inner Dispatcher, config AsyncConfig) *AsyncDispatcher {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &AsyncDispatcher{inner: inner, config: config}
}

// Dispatch delivers a in the background and returns immediately.
func (d *AsyncDispatcher) Dispatch(_ context.Context, a Alert) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.config.Logger.Error("alert dispatcher panicked",
					zap.String("type", a.Type),
					zap.Any("panic", r),
				)
			}
		}()

		// Detached from the caller's context: the breaker's transition has
		// already committed and must not be tied to the caller's lifetime.
		ctx, cancel := context.WithTimeout(context.Background(), d.config.Timeout)
		defer cancel()

		if err := d.inner.Dispatch(ctx, a); err != nil {
			d.config.Logger.Error("alert delivery failed",
				zap.String("type", a.Type),
				zap.String("severity", string(a.Severity)),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// Wait blocks until all in-flight deliveries complete or ctx is done.
func (d *AsyncDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
