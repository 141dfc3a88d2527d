// Package listener implements the HTTP listener factory used by hooknotify.
//
// A Factory turns the active configuration and a consumer into a Listener,
// and Listen binds it to a port and returns the running Server handle.
//
// The default HTTPFactory provides:
//   - A chi router serving the configured endpoint for the configured methods
//   - Request ID, real IP, panic recovery and request timeout middleware
//   - Optional per-IP rate limiting
//   - Optional HMAC-SHA256 body signature verification
//   - Payload size limits
//   - Delivery metadata recording through a Recorder
//
// Each request that passes the checks above invokes the consumer exactly once.
package listener
