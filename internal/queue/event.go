// Package queue defines message payloads exchanged over the message broker.
package queue

// AuditQueueName is the durable queue carrying security audit events.
const AuditQueueName = "audit.events"

// AuditEvent is published fire-and-forget whenever a handler records a
// security-relevant action (registration, login success/failure, password
// reset, email verification). It carries everything the consumer needs to
// append an audit_logs row without touching the primary request path.
type AuditEvent struct {
	EventID   string         `json:"event_id"`
	UserID    *uint64        `json:"user_id,omitempty"` // nil for anonymous/failed actions
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address"`
	UserAgent string         `json:"user_agent,omitempty"`
	CreatedAt string         `json:"created_at"` // RFC 3339, UTC
}
