package journal

import "time"

// Entry is one recorded delivery. Payloads are never stored.
type Entry struct {
	ID             int64     `json:"id"`
	NotificationID *string   `json:"notification_id,omitempty"` // nullable, unset for rejected requests
	RequestID      string    `json:"request_id"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	RemoteAddr     string    `json:"remote_addr"`
	Status         int       `json:"status"`
	ReceivedAt     time.Time `json:"received_at"`
	DurationMS     int64     `json:"duration_ms"`
	ErrorMessage   *string   `json:"error,omitempty"` // nullable
}

// Succeeded reports whether the consumer accepted the delivery
func (e *Entry) Succeeded() bool {
	return e.Status >= 200 && e.Status < 300
}
