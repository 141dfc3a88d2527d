package notifier

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"hooknotify/pkg/listener"
)

var (
	contextType      = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType        = reflect.TypeOf((*error)(nil)).Elem()
	notificationType = reflect.TypeOf(listener.Notification{})
)

// Registry holds the single current consumer
type Registry struct {
	mu       sync.RWMutex
	consumer listener.ConsumerFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register replaces the current consumer with fn.
//
// fn may be any func value. Its parameters are filled by type: a
// context.Context receives the request context, a *listener.Notification or
// listener.Notification receives the notification and anything else gets its
// zero value. A non-nil error as the last result marks the delivery failed.
// A value that is not a func is rejected and the previous consumer kept.
func (r *Registry) Register(fn any) (bool, error) {
	consumer, err := adapt(fn)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.consumer = consumer
	return true, nil
}

// Consumer returns the registered consumer, if any
func (r *Registry) Consumer() (listener.ConsumerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.consumer, r.consumer != nil
}

func adapt(fn any) (listener.ConsumerFunc, error) {
	switch f := fn.(type) {
	case nil:
		return nil, &InvalidConsumerError{Type: "nil"}
	case listener.ConsumerFunc:
		if f == nil {
			return nil, &InvalidConsumerError{Type: fmt.Sprintf("%T", fn)}
		}
		return f, nil
	case func(context.Context, *listener.Notification) error:
		if f == nil {
			return nil, &InvalidConsumerError{Type: fmt.Sprintf("%T", fn)}
		}
		return f, nil
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return nil, &InvalidConsumerError{Type: fmt.Sprintf("%T", fn)}
	}

	t := v.Type()
	numIn := t.NumIn()
	if t.IsVariadic() {
		numIn--
	}

	returnsError := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType

	return func(ctx context.Context, n *listener.Notification) error {
		args := make([]reflect.Value, numIn)
		for i := range args {
			args[i] = argument(ctx, t.In(i), n)
		}

		out := v.Call(args)
		if !returnsError {
			return nil
		}
		if err, _ := out[len(out)-1].Interface().(error); err != nil {
			return err
		}
		return nil
	}, nil
}

func argument(ctx context.Context, t reflect.Type, n *listener.Notification) reflect.Value {
	switch {
	case t == contextType:
		if ctx == nil {
			ctx = context.Background()
		}
		return reflect.ValueOf(&ctx).Elem()
	case t == reflect.PointerTo(notificationType) && n != nil:
		return reflect.ValueOf(n)
	case t == notificationType && n != nil:
		return reflect.ValueOf(*n)
	default:
		return reflect.Zero(t)
	}
}
