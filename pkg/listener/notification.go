package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Notification describes one inbound webhook request
type Notification struct {
	ID         string
	RequestID  string
	Method     string
	Path       string
	Query      url.Values
	Header     http.Header
	Body       []byte
	RemoteAddr string
	ReceivedAt time.Time
}

// ConsumerFunc receives every notification accepted by a listener
type ConsumerFunc func(ctx context.Context, n *Notification) error

// Logger is the logging surface used throughout hooknotify. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Delivery is the metadata kept about a handled request. It never holds the body.
type Delivery struct {
	NotificationID string
	RequestID      string
	Method         string
	Path           string
	RemoteAddr     string
	Status         int
	ReceivedAt     time.Time
	Duration       time.Duration
	Error          string
}

// Recorder stores delivery metadata
type Recorder interface {
	Record(ctx context.Context, delivery Delivery) error
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newNotification builds a notification from an already-read request body
func newNotification(r *http.Request, body []byte, receivedAt time.Time) *Notification {
	return &Notification{
		ID:         uuid.NewString(),
		RequestID:  middleware.GetReqID(r.Context()),
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.Query(),
		Header:     r.Header.Clone(),
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		ReceivedAt: receivedAt,
	}
}

// Decode unmarshals the JSON body into v
func (n *Notification) Decode(v any) error {
	if err := json.Unmarshal(n.Body, v); err != nil {
		return fmt.Errorf("failed to decode notification %s: %w", n.ID, err)
	}
	return nil
}
