package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ListenerSettings is the typed view of the listener section used by the HTTP factory
type ListenerSettings struct {
	Host            string   `mapstructure:"host"`
	Port            int      `mapstructure:"port"`
	Endpoint        string   `mapstructure:"endpoint"`
	Secret          string   `mapstructure:"secret"`
	SignatureHeader string   `mapstructure:"signature_header"`
	MaxPayloadBytes int64    `mapstructure:"max_payload_bytes"`
	RateLimit       int      `mapstructure:"rate_limit"` // requests per minute per IP, 0 disables
	ReadTimeout     int      `mapstructure:"read_timeout"`
	WriteTimeout    int      `mapstructure:"write_timeout"`
	IdleTimeout     int      `mapstructure:"idle_timeout"`
	Methods         []string `mapstructure:"methods"`
}

// ConsumerSettings configures the command-running consumer of the CLI
type ConsumerSettings struct {
	Exec    any    `mapstructure:"exec"` // string or list
	Timeout int    `mapstructure:"timeout"`
	Dir     string `mapstructure:"dir"`
}

// JournalSettings configures the delivery journal
type JournalSettings struct {
	Path string `mapstructure:"path"`
}

const DefaultConsumerTimeout = 30

// DecodeListener decodes the listener section of cfg.
// Fields left at their zero value fall back to the defaults.
func DecodeListener(cfg Config) (*ListenerSettings, error) {
	settings := &ListenerSettings{}
	if err := decodeSection(cfg, ListenerKey, settings); err != nil {
		return nil, err
	}

	if settings.Endpoint == "" {
		settings.Endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(settings.Endpoint, "/") {
		settings.Endpoint = "/" + settings.Endpoint
	}
	if settings.SignatureHeader == "" {
		settings.SignatureHeader = DefaultSignatureHeader
	}
	if settings.MaxPayloadBytes == 0 {
		settings.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if settings.ReadTimeout == 0 {
		settings.ReadTimeout = DefaultReadTimeout
	}
	if settings.WriteTimeout == 0 {
		settings.WriteTimeout = DefaultWriteTimeout
	}
	if settings.IdleTimeout == 0 {
		settings.IdleTimeout = DefaultIdleTimeout
	}
	if len(settings.Methods) == 0 {
		settings.Methods = []string{http.MethodPost}
	}
	for i, method := range settings.Methods {
		settings.Methods[i] = strings.ToUpper(method)
	}

	var errs []error
	if settings.MaxPayloadBytes < 0 {
		errs = append(errs, fmt.Errorf("listener.max_payload_bytes must be positive, got %d", settings.MaxPayloadBytes))
	}
	if settings.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("listener.rate_limit must not be negative, got %d", settings.RateLimit))
	}
	for name, value := range map[string]int{
		"read_timeout":  settings.ReadTimeout,
		"write_timeout": settings.WriteTimeout,
		"idle_timeout":  settings.IdleTimeout,
	} {
		if value < 0 {
			errs = append(errs, fmt.Errorf("listener.%s must be positive, got %d", name, value))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return settings, nil
}

// DecodeConsumer decodes the consumer section of cfg
func DecodeConsumer(cfg Config) (*ConsumerSettings, error) {
	settings := &ConsumerSettings{}
	if err := decodeSection(cfg, ConsumerKey, settings); err != nil {
		return nil, err
	}
	if settings.Timeout == 0 {
		settings.Timeout = DefaultConsumerTimeout
	}
	if settings.Timeout < 0 {
		return nil, fmt.Errorf("consumer.timeout must be positive, got %d", settings.Timeout)
	}
	return settings, nil
}

// DecodeJournal decodes the journal section of cfg
func DecodeJournal(cfg Config) (*JournalSettings, error) {
	settings := &JournalSettings{}
	if err := decodeSection(cfg, JournalKey, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func decodeSection(cfg Config, key string, result any) error {
	section, ok := cfg.Section(key)
	if !ok {
		if value, present := cfg[key]; present && value != nil {
			return fmt.Errorf("%s: expected a mapping, got %T", key, value)
		}
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("%s: create decoder: %w", key, err)
	}
	if err := decoder.Decode(section); err != nil {
		return fmt.Errorf("%s: parse config: %w", key, err)
	}
	return nil
}

// Timeout converts a number of seconds to a duration
func Timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
