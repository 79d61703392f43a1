package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tradegate-bot/tradegate/internal/models"
)

// AuditRepository appends and reads the moderation audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append writes one audit entry. Entries are append-only.
func (r *AuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	const query = `INSERT INTO audit_log (id, thread_id, user_id, action, details, created_at)
VALUES (:id, :thread_id, :user_id, :action, :details, :created_at)`
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// ListForThread returns a thread's trail, oldest first.
func (r *AuditRepository) ListForThread(ctx context.Context, threadID string, limit int) ([]models.AuditEntry, error) {
	const query = `SELECT id, thread_id, user_id, action, details, created_at
FROM audit_log WHERE thread_id = ? ORDER BY created_at ASC LIMIT ?`
	var entries []models.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, threadID, limit); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
