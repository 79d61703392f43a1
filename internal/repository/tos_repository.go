package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tradegate-bot/tradegate/internal/models"
)

// TosRepository persists pending TOS prompts so a restart can resolve expired
// ones instead of leaving threads stuck in the pending state.
type TosRepository struct {
	db *sqlx.DB
}

// NewTosRepository constructs the repository.
func NewTosRepository(db *sqlx.DB) *TosRepository {
	return &TosRepository{db: db}
}

// Save stores or refreshes the prompt for a thread.
func (r *TosRepository) Save(ctx context.Context, prompt *models.TosPrompt) error {
	const query = `INSERT INTO tos_prompts (thread_id, owner_id, message_id, sent_at, deadline)
VALUES (:thread_id, :owner_id, :message_id, :sent_at, :deadline)
ON CONFLICT (thread_id)
DO UPDATE SET owner_id = excluded.owner_id, message_id = excluded.message_id,
              sent_at = excluded.sent_at, deadline = excluded.deadline`
	if _, err := r.db.NamedExecContext(ctx, query, prompt); err != nil {
		return fmt.Errorf("save tos prompt: %w", err)
	}
	return nil
}

// Delete removes a prompt, reporting whether it still existed.
func (r *TosRepository) Delete(ctx context.Context, threadID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tos_prompts WHERE thread_id = ?`, threadID)
	if err != nil {
		return false, fmt.Errorf("delete tos prompt: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete tos prompt affected: %w", err)
	}
	return affected > 0, nil
}

// All returns every persisted prompt, for the boot-time resolve pass.
func (r *TosRepository) All(ctx context.Context) ([]models.TosPrompt, error) {
	const query = `SELECT thread_id, owner_id, message_id, sent_at, deadline FROM tos_prompts ORDER BY sent_at ASC`
	var prompts []models.TosPrompt
	if err := r.db.SelectContext(ctx, &prompts, query); err != nil {
		return nil, fmt.Errorf("list tos prompts: %w", err)
	}
	return prompts, nil
}
