package service

import (
	"context"
	"time"

	"github.com/tradegate-bot/tradegate/internal/models"
	"github.com/tradegate-bot/tradegate/pkg/config"
)

// ConfigSource yields a fresh snapshot of the bot settings per operation so
// external config edits take effect on the next event.
type ConfigSource interface {
	Bot() config.BotConfig
}

// ThreadStore is the thread-registry contract the core consumes.
type ThreadStore interface {
	Upsert(ctx context.Context, thread *models.Thread) error
	Get(ctx context.Context, threadID string) (*models.Thread, error)
	UpdateStatus(ctx context.Context, threadID string, status models.ThreadStatus) error
	SetClosed(ctx context.Context, threadID string, status models.ThreadStatus) error
	ScheduleAutoClose(ctx context.Context, threadID string, fireAt time.Time) (bool, error)
	CancelAutoClose(ctx context.Context, threadID string) (bool, error)
	DueSchedules(ctx context.Context, now time.Time) ([]string, error)
	ClaimSchedule(ctx context.Context, threadID string, now time.Time) (bool, error)
}

// ReviewStore is the review-store contract the core consumes.
type ReviewStore interface {
	Record(ctx context.Context, review *models.Review) error
	HasReviewed(ctx context.Context, giverID, receiverID, threadID string) (bool, error)
	CountForThread(ctx context.Context, threadID string) (int, error)
	CountForThreadExcluding(ctx context.Context, threadID, userID string) (int, error)
	Aggregate(ctx context.Context, userID string) (models.ReviewAggregate, error)
}

// PromptStore persists pending TOS prompts across restarts.
type PromptStore interface {
	Save(ctx context.Context, prompt *models.TosPrompt) error
	Delete(ctx context.Context, threadID string) (bool, error)
	All(ctx context.Context) ([]models.TosPrompt, error)
}

// AuditStore appends trail entries.
type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
}

// NoticeSender delivers log-channel notices asynchronously; delivery is
// best-effort and must never block or fail an operation.
type NoticeSender interface {
	Send(content string)
}

// ReviewPrompter posts the review UI into a thread once the TOS gate resolves
// to accepted. Implemented by ReviewService; injected into the TOS gate to
// keep the dependency one-directional.
type ReviewPrompter interface {
	PostReviewPrompt(ctx context.Context, threadID, ownerID string) error
}

// ThreadCloser archives, locks, persists and audits a closure.
type ThreadCloser interface {
	Close(ctx context.Context, threadID string, actorID *string, reason, notice string) error
}
