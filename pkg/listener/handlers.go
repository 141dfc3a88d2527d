package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hooknotify/pkg/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// RequestTimeout bounds a single request including the consumer call
	RequestTimeout = 60 * time.Second

	HealthPath = "/health"

	// maxResponseMargin caps the time reserved for writing the response
	maxResponseMargin = time.Second
)

// ErrConsumerTimeout is returned when the consumer outlives the response deadline
var ErrConsumerTimeout = errors.New("consumer exceeded the response deadline")

// webhookHandler serves one configured endpoint
type webhookHandler struct {
	settings *config.ListenerSettings
	consumer ConsumerFunc
	recorder Recorder
	logger   Logger
}

// Router creates and configures the HTTP router
func (h *webhookHandler) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(requestLogger(h.logger))

	if h.settings.RateLimit > 0 {
		r.Use(NewRateLimitMiddleware(h.settings.RateLimit, h.logger))
	}

	if h.settings.Endpoint != HealthPath {
		r.Get(HealthPath, h.HandleHealth)
	}

	for _, method := range h.settings.Methods {
		r.Method(method, h.settings.Endpoint, http.HandlerFunc(h.HandleNotification))
	}

	return r
}

// HandleNotification reads the request, checks it and invokes the consumer once
func (h *webhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	receivedAt := time.Now()
	delivery := Delivery{
		RequestID:  middleware.GetReqID(r.Context()),
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		ReceivedAt: receivedAt,
	}

	// ContentLength can be -1 when unknown, the limited read below catches those
	if r.ContentLength > h.settings.MaxPayloadBytes {
		h.reject(w, r, &delivery, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.settings.MaxPayloadBytes+1))
	if err != nil {
		h.logger.Error("Failed to read request body", "error", err, "path", r.URL.Path)
		h.reject(w, r, &delivery, http.StatusBadRequest, "Failed to read payload")
		return
	}
	if int64(len(body)) > h.settings.MaxPayloadBytes {
		h.reject(w, r, &delivery, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	if h.settings.Secret != "" {
		signature := r.Header.Get(h.settings.SignatureHeader)
		if !VerifySignature(body, signature, h.settings.Secret) {
			h.logger.Warn("Invalid webhook signature", "path", r.URL.Path, "ip", r.RemoteAddr)
			h.reject(w, r, &delivery, http.StatusForbidden, "Invalid signature")
			return
		}
	}

	notification := newNotification(r, body, receivedAt)
	delivery.NotificationID = notification.ID

	if err := h.consume(r.Context(), notification, receivedAt.Add(h.consumerBudget())); err != nil {
		if errors.Is(err, ErrConsumerTimeout) {
			h.logger.Error("Consumer timed out", "error", err, "id", notification.ID)
			delivery.Error = err.Error()
			h.finish(r, &delivery, http.StatusGatewayTimeout)
			h.respondJSON(w, http.StatusGatewayTimeout, map[string]string{
				"error": "Consumer timed out",
				"id":    notification.ID,
			})
			return
		}

		h.logger.Error("Consumer failed", "error", err, "id", notification.ID)
		delivery.Error = err.Error()
		h.finish(r, &delivery, http.StatusInternalServerError)
		h.respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Consumer failed",
			"id":    notification.ID,
		})
		return
	}

	h.finish(r, &delivery, http.StatusAccepted)
	h.respondJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"id":     notification.ID,
	})
}

// consumerBudget is how long the consumer may run so that the response
// still fits within the server's write timeout
func (h *webhookHandler) consumerBudget() time.Duration {
	writeTimeout := config.Timeout(h.settings.WriteTimeout)
	if writeTimeout <= 0 {
		return RequestTimeout
	}
	margin := min(writeTimeout/10, maxResponseMargin)
	return writeTimeout - margin
}

// consume runs the consumer until it returns or the deadline passes.
// A consumer that ignores its context keeps running in the background.
func (h *webhookHandler) consume(ctx context.Context, n *Notification, deadline time.Time) error {
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("consumer panicked: %v", rec)
			}
		}()
		done <- h.consumer(ctx, n)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrConsumerTimeout, err)
	}
	return err
}

// HandleHealth handles health check requests
func (h *webhookHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"endpoint": h.settings.Endpoint,
		"methods":  h.settings.Methods,
	})
}

func (h *webhookHandler) reject(w http.ResponseWriter, r *http.Request, delivery *Delivery, status int, message string) {
	delivery.Error = message
	h.finish(r, delivery, status)
	h.respondJSON(w, status, map[string]string{"error": message})
}

// finish stamps the outcome and hands the delivery to the recorder
func (h *webhookHandler) finish(r *http.Request, delivery *Delivery, status int) {
	delivery.Status = status
	delivery.Duration = time.Since(delivery.ReceivedAt)

	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(context.WithoutCancel(r.Context()), *delivery); err != nil {
		h.logger.Error("Failed to record delivery", "error", err, "request_id", delivery.RequestID)
	}
}

// respondJSON sends a JSON response
func (h *webhookHandler) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", "error", err)
	}
}
