package notifier

import (
	"context"
	"sync"

	"hooknotify/pkg/listener"
)

// Future is the deferred result of Start. It settles exactly once.
type Future struct {
	once   sync.Once
	done   chan struct{}
	server *listener.Server
	err    error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(server *listener.Server) bool {
	return f.settle(server, nil)
}

func (f *Future) reject(err error) bool {
	return f.settle(nil, err)
}

// settle reports whether this call settled the future
func (f *Future) settle(server *listener.Server, err error) bool {
	settled := false
	f.once.Do(func() {
		f.server = server
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once the future has settled
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done.
// Cancelling ctx does not abort the bind.
func (f *Future) Wait(ctx context.Context) (*listener.Server, error) {
	select {
	case <-f.done:
		return f.server, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking. settled is false until the future settles.
func (f *Future) Result() (server *listener.Server, settled bool, err error) {
	select {
	case <-f.done:
		return f.server, true, f.err
	default:
		return nil, false, nil
	}
}
