package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
)

const (
	MinPort = 0
	MaxPort = 65535
)

var (
	// ErrInvalidEndpoint matches any *InvalidEndpointError
	ErrInvalidEndpoint = errors.New("invalid listener endpoint")

	// ErrInvalidPort matches any *InvalidPortError
	ErrInvalidPort = errors.New("invalid listener port")
)

// InvalidEndpointError reports a listener.endpoint that is not a string
type InvalidEndpointError struct {
	Value any
}

func (e *InvalidEndpointError) Error() string {
	return fmt.Sprintf("listener.endpoint must be a string, got %T", e.Value)
}

func (e *InvalidEndpointError) Is(target error) bool {
	return target == ErrInvalidEndpoint
}

// InvalidPortError reports a listener port that cannot be bound
type InvalidPortError struct {
	Value  any
	Reason string
}

func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("listener.port %s, got %v (%T)", e.Reason, e.Value, e.Value)
}

func (e *InvalidPortError) Is(target error) bool {
	return target == ErrInvalidPort
}

// Normalize returns a copy of cfg with listener.endpoint rewritten to begin with "/".
// Values that are not strings are left for Validate to reject.
func Normalize(cfg Config) Config {
	out := cfg.Clone()
	listener, ok := out.Section(ListenerKey)
	if !ok {
		return out
	}
	if endpoint, ok := listener["endpoint"].(string); ok && !strings.HasPrefix(endpoint, "/") {
		listener["endpoint"] = "/" + endpoint
	}
	return out
}

// Validate checks the shape of the listener section.
// Only listener.endpoint and listener.port are inspected; a missing listener
// section is valid.
func Validate(cfg Config) error {
	listener, ok := cfg.Section(ListenerKey)
	if !ok {
		return nil
	}

	if endpoint := listener["endpoint"]; endpoint != nil {
		if _, ok := endpoint.(string); !ok {
			return &InvalidEndpointError{Value: endpoint}
		}
	}

	if port := listener["port"]; port != nil {
		if _, err := PortNumber(port); err != nil {
			return err
		}
	}

	return nil
}

// ValidateConfig normalizes candidate and validates the result.
// The candidate itself is never modified.
func ValidateConfig(candidate Config) (Config, error) {
	normalized := Normalize(candidate)
	if err := Validate(normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

// PortNumber converts a numeric configuration value to a TCP port
func PortNumber(value any) (int, error) {
	var port float64

	if number, ok := value.(json.Number); ok {
		f, err := number.Float64()
		if err != nil {
			return 0, &InvalidPortError{Value: value, Reason: "must be a number"}
		}
		port = f
	} else {
		v := reflect.ValueOf(value)
		switch v.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			port = float64(v.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			port = float64(v.Uint())
		case reflect.Float32, reflect.Float64:
			port = v.Float()
		default:
			return 0, &InvalidPortError{Value: value, Reason: "must be a number"}
		}
	}

	if port != math.Trunc(port) {
		return 0, &InvalidPortError{Value: value, Reason: "must be a whole number"}
	}
	if port < MinPort || port > MaxPort {
		return 0, &InvalidPortError{Value: value, Reason: fmt.Sprintf("must be between %d and %d", MinPort, MaxPort)}
	}

	return int(port), nil
}
