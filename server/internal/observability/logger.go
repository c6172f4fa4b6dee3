// Package observability provides request-scoped structured logging for the
// matching API.
package observability

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// LogFieldRequestID is the field name for request ID.
	LogFieldRequestID = "request_id"
	// LogFieldOwnerID is the field name for the requesting owner ID.
	LogFieldOwnerID = "owner_id"
	// LogFieldDuration is the field name for duration in milliseconds.
	LogFieldDuration = "duration_ms"
	// LogFieldCandidates is the field name for candidate count.
	LogFieldCandidates = "candidates"
)

// RequestContext carries the logger and timing for a single API request.
type RequestContext struct {
	RequestID string
	OwnerID   string
	StartTime time.Time
	Logger    *slog.Logger
}

// NewRequestContext creates a request context with a generated request ID.
func NewRequestContext(logger *slog.Logger, ownerID string) *RequestContext {
	if logger == nil {
		logger = slog.Default()
	}
	requestID := uuid.NewString()
	return &RequestContext{
		RequestID: requestID,
		OwnerID:   ownerID,
		StartTime: time.Now(),
		Logger: logger.With(
			slog.String(LogFieldRequestID, requestID),
			slog.String(LogFieldOwnerID, ownerID),
		),
	}
}

// DurationMS returns the elapsed time since the request started.
func (rc *RequestContext) DurationMS() int64 {
	return time.Since(rc.StartTime).Milliseconds()
}
