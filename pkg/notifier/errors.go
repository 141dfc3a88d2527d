package notifier

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConsumer matches any *InvalidConsumerError
	ErrInvalidConsumer = errors.New("consumer is not callable")

	// ErrMissingConsumer is returned by Start when nothing is registered
	ErrMissingConsumer = errors.New("no consumer registered, listener not started")

	// ErrBind matches any *BindError
	ErrBind = errors.New("failed to bind listener")
)

// InvalidConsumerError reports a Register call with a value that is not a func
type InvalidConsumerError struct {
	Type string
}

func (e *InvalidConsumerError) Error() string {
	return fmt.Sprintf("consumer must be a function, got %s", e.Type)
}

func (e *InvalidConsumerError) Is(target error) bool {
	return target == ErrInvalidConsumer
}

// BindError wraps a failure raised while creating or binding the listener
type BindError struct {
	Port int
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind listener on port %d: %v", e.Port, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func (e *BindError) Is(target error) bool {
	return target == ErrBind
}
