package server

// contextKey is a private key type; string keys would collide with other
// packages sharing the request context.
type contextKey string

const (
	// contextKeyRequestID carries the request ID attached by the request ID
	// middleware and echoed in error responses.
	contextKeyRequestID contextKey = "requestID"
	// contextKeyAPIVersion carries the negotiated comparison API version.
	contextKeyAPIVersion contextKey = "apiVersion"
)
