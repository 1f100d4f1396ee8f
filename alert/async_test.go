package alert

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAsyncDispatcher_DeliversInBackground(t *testing.T) {
	var delivered atomic.Int64
	inner := DispatcherFunc(func(ctx context.Context, a Alert) error {
		delivered.Add(1)
		return nil
	})

	d := NewAsyncDispatcher(inner, AsyncConfig{})

	if err := d.Dispatch(context.Background(), Alert{Type: TypeAIGeneration}); err != nil {
		t.Fatalf("Dispatch() error = %v, want nil", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if delivered.Load() != 1 {
		t.Errorf("delivered = %d, want 1", delivered.Load())
	}
}

func TestAsyncDispatcher_SwallowsDeliveryError(t *testing.T) {
	inner := DispatcherFunc(func(ctx context.Context, a Alert) error {
		return errors.New("destination unreachable")
	})

	d := NewAsyncDispatcher(inner, AsyncConfig{})

	if err := d.Dispatch(context.Background(), Alert{Type: TypeEcommerceAPI}); err != nil {
		t.Fatalf("Dispatch() error = %v, want nil", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestAsyncDispatcher_RecoversPanic(t *testing.T) {
	inner := DispatcherFunc(func(ctx context.Context, a Alert) error {
		panic("dispatcher bug")
	})

	d := NewAsyncDispatcher(inner, AsyncConfig{})

	if err := d.Dispatch(context.Background(), Alert{}); err != nil {
		t.Fatalf("Dispatch() error = %v, want nil", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestAsyncDispatcher_WaitHonorsContext(t *testing.T) {
	block := make(chan struct{})
	inner := DispatcherFunc(func(ctx context.Context, a Alert) error {
		<-block
		return nil
	})

	d := NewAsyncDispatcher(inner, AsyncConfig{})
	_ = d.Dispatch(context.Background(), Alert{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}

	close(block)
}
