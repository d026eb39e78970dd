package model

import "time"

// AuditLog mirrors the append-only `audit_logs` table. Rows are written by
// the queue consumer and never read back by this service.
type AuditLog struct {
	ID        uint64
	EventID   string  // uuid assigned at publish time
	UserID    *uint64 // nullable for anonymous or failed actions
	Action    string
	Details   string // JSON-encoded structured details
	IPAddress string
	UserAgent string
	CreatedAt time.Time
}
