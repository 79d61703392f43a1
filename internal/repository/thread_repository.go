package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tradegate-bot/tradegate/internal/models"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

// ThreadRepository is the thread registry: denormalized thread rows plus the
// durable auto-close schedules the sweep polls.
type ThreadRepository struct {
	db *sqlx.DB
}

// NewThreadRepository constructs the repository.
func NewThreadRepository(db *sqlx.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// Upsert inserts or refreshes a thread row.
func (r *ThreadRepository) Upsert(ctx context.Context, thread *models.Thread) error {
	const query = `INSERT INTO threads (thread_id, parent_channel_id, guild_id, owner_id, name, url, status, archived, locked, auto_close_at, created_at, updated_at)
VALUES (:thread_id, :parent_channel_id, :guild_id, :owner_id, :name, :url, :status, :archived, :locked, :auto_close_at, :created_at, :updated_at)
ON CONFLICT (thread_id)
DO UPDATE SET name = excluded.name, url = excluded.url, status = excluded.status,
              archived = excluded.archived, locked = excluded.locked,
              auto_close_at = excluded.auto_close_at, updated_at = excluded.updated_at`
	now := time.Now().UTC()
	if thread.CreatedAt.IsZero() {
		thread.CreatedAt = now
	}
	thread.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, query, thread); err != nil {
		return fmt.Errorf("upsert thread: %w", err)
	}
	return nil
}

// Get fetches a thread by ID.
func (r *ThreadRepository) Get(ctx context.Context, threadID string) (*models.Thread, error) {
	const query = `SELECT thread_id, parent_channel_id, guild_id, owner_id, name, url, status, archived, locked, auto_close_at, created_at, updated_at
FROM threads WHERE thread_id = ?`
	var thread models.Thread
	if err := r.db.GetContext(ctx, &thread, query, threadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return &thread, nil
}

// UpdateStatus transitions a thread's status.
func (r *ThreadRepository) UpdateStatus(ctx context.Context, threadID string, status models.ThreadStatus) error {
	const query = `UPDATE threads SET status = ?, updated_at = ? WHERE thread_id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), threadID); err != nil {
		return fmt.Errorf("update thread status: %w", err)
	}
	return nil
}

// SetClosed marks a thread archived+locked with a terminal status and clears
// any displayed deadline.
func (r *ThreadRepository) SetClosed(ctx context.Context, threadID string, status models.ThreadStatus) error {
	const query = `UPDATE threads SET status = ?, archived = 1, locked = 1, auto_close_at = NULL, updated_at = ? WHERE thread_id = ?`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), threadID); err != nil {
		return fmt.Errorf("close thread: %w", err)
	}
	return nil
}

// ScheduleAutoClose arms the auto-close deadline. A thread holds at most one
// schedule; arming an already-armed thread is a no-op and returns false.
func (r *ThreadRepository) ScheduleAutoClose(ctx context.Context, threadID string, fireAt time.Time) (bool, error) {
	const insert = `INSERT INTO auto_close_schedules (thread_id, fire_at) VALUES (?, ?)
ON CONFLICT (thread_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, insert, threadID, fireAt.UTC())
	if err != nil {
		return false, fmt.Errorf("schedule auto close: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("schedule auto close affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	const mark = `UPDATE threads SET status = ?, auto_close_at = ?, updated_at = ? WHERE thread_id = ?`
	if _, err := r.db.ExecContext(ctx, mark, models.ThreadStatusAutoCloseScheduled, fireAt.UTC(), time.Now().UTC(), threadID); err != nil {
		return false, fmt.Errorf("mark auto close: %w", err)
	}
	return true, nil
}

// CancelAutoClose removes an armed schedule. Returns false when no schedule
// existed, so a cancel racing the sweep degrades to a no-op.
func (r *ThreadRepository) CancelAutoClose(ctx context.Context, threadID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auto_close_schedules WHERE thread_id = ?`, threadID)
	if err != nil {
		return false, fmt.Errorf("cancel auto close: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel auto close affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	const revert = `UPDATE threads SET status = ?, auto_close_at = NULL, updated_at = ? WHERE thread_id = ?`
	if _, err := r.db.ExecContext(ctx, revert, models.ThreadStatusTosAccepted, time.Now().UTC(), threadID); err != nil {
		return true, fmt.Errorf("revert auto close status: %w", err)
	}
	return true, nil
}

// DueSchedules returns thread IDs whose deadline has elapsed.
func (r *ThreadRepository) DueSchedules(ctx context.Context, now time.Time) ([]string, error) {
	const query = `SELECT thread_id FROM auto_close_schedules WHERE fire_at <= ? ORDER BY fire_at ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, now.UTC()); err != nil {
		return nil, fmt.Errorf("due schedules: %w", err)
	}
	return ids, nil
}

// ClaimSchedule deletes a due schedule and reports whether this caller won it.
// The delete doubles as the existence re-check before acting: a schedule
// cancelled between query and claim simply yields false.
func (r *ThreadRepository) ClaimSchedule(ctx context.Context, threadID string, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auto_close_schedules WHERE thread_id = ? AND fire_at <= ?`, threadID, now.UTC())
	if err != nil {
		return false, fmt.Errorf("claim schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim schedule affected: %w", err)
	}
	return affected > 0, nil
}

// CountOpen returns the number of threads not in a terminal state.
func (r *ThreadRepository) CountOpen(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM threads WHERE status NOT IN (?, ?, ?)`
	var count int
	err := r.db.GetContext(ctx, &count, query,
		models.ThreadStatusTosDeclined, models.ThreadStatusTosAutoDeclined, models.ThreadStatusClosed)
	if err != nil {
		return 0, fmt.Errorf("count open threads: %w", err)
	}
	return count, nil
}
