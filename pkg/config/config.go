package config

import (
	"fmt"
	"strings"
)

// Section keys understood by hooknotify. Any other key is carried through untouched.
const (
	ListenerKey = "listener"
	JournalKey  = "journal"
	ConsumerKey = "consumer"
)

const (
	// DefaultPort is the TCP port bound when neither the configuration nor PORT set one
	DefaultPort = 3000

	// DefaultEndpoint is the URL path the webhook is served on
	DefaultEndpoint = "/webhook"

	// DefaultSignatureHeader carries the HMAC-SHA256 digest of the request body
	DefaultSignatureHeader = "X-Hub-Signature-256"

	DefaultMaxPayloadBytes = 1_000_000 // 1 MB

	// HTTP server timeouts in seconds
	DefaultReadTimeout  = 10
	DefaultWriteTimeout = 10
	DefaultIdleTimeout  = 60
)

// Config is a configuration tree. Nested sections are stored as map[string]any.
type Config map[string]any

// Default returns a fresh copy of the built-in configuration
func Default() Config {
	return Config{
		ListenerKey: map[string]any{
			"port":              DefaultPort,
			"endpoint":          DefaultEndpoint,
			"host":              "",
			"signature_header":  DefaultSignatureHeader,
			"max_payload_bytes": DefaultMaxPayloadBytes,
			"rate_limit":        0,
			"read_timeout":      DefaultReadTimeout,
			"write_timeout":     DefaultWriteTimeout,
			"idle_timeout":      DefaultIdleTimeout,
			"methods":           []any{"POST"},
		},
	}
}

// Clone returns a deep copy of the configuration.
// Sections and slices are copied; scalar values are shared.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	return Config(cloneMap(c))
}

// Section returns the nested section stored under key
func (c Config) Section(key string) (map[string]any, bool) {
	value, ok := c[key]
	if !ok {
		return nil, false
	}
	return asMap(value)
}

// Lookup walks a dotted path such as "listener.port"
func (c Config) Lookup(path string) (any, bool) {
	var current any = map[string]any(c)
	for _, part := range strings.Split(path, ".") {
		section, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = section[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// String returns the string stored at path, or "" when absent or not a string
func (c Config) String(path string) string {
	value, ok := c.Lookup(path)
	if !ok {
		return ""
	}
	s, _ := value.(string)
	return s
}

// asMap reports whether v is a nested section and returns it as map[string]any.
// YAML mappings with non-string keys are converted to a new map.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Config:
		return map[string]any(m), true
	case map[any]any:
		converted := make(map[string]any, len(m))
		for key, value := range m {
			converted[fmt.Sprint(key)] = value
		}
		return converted, true
	}
	return nil, false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(v any) any {
	if section, ok := asMap(v); ok {
		return cloneMap(section)
	}
	switch s := v.(type) {
	case []any:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), s...)
	}
	return v
}
