package notifier

import (
	"context"
	"errors"
	"testing"
)

func TestFuture_SettlesOnce(t *testing.T) {
	f := newFuture()

	if _, settled, _ := f.Result(); settled {
		t.Fatal("Expected new future to be pending")
	}

	first := errors.New("first")
	if !f.reject(first) {
		t.Error("Expected first reject to settle the future")
	}
	if f.reject(errors.New("second")) {
		t.Error("Expected second reject to be ignored")
	}
	if f.resolve(nil) {
		t.Error("Expected resolve after reject to be ignored")
	}

	srv, settled, err := f.Result()
	if !settled || srv != nil || err != first {
		t.Errorf("Result() = %v, %v, %v", srv, settled, err)
	}

	select {
	case <-f.Done():
	default:
		t.Error("Expected Done to be closed")
	}
}

func TestFuture_WaitHonoursContext(t *testing.T) {
	f := newFuture()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	// Wait does not settle the future
	if _, settled, _ := f.Result(); settled {
		t.Error("Expected future to remain pending")
	}
}
