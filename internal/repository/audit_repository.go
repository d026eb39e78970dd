package repository

import (
	"context"
	"database/sql"

	"github.com/zeawatch/backend/internal/model"
)

// AuditRepo appends rows to the write-only `audit_logs` table. The queue
// consumer is its only caller; nothing in the request path reads it back.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert appends one audit row. The INSERT IGNORE on the unique event_id
// keeps redelivered queue messages from producing duplicate rows.
func (r *AuditRepo) Insert(ctx context.Context, entry model.AuditLog) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO audit_logs (event_id, user_id, action, details, ip_address, user_agent, created_at) VALUES (?,?,?,?,?,?,?)",
		entry.EventID, entry.UserID, entry.Action, entry.Details, entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	return err
}
