package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradegate-bot/tradegate/internal/models"
	"github.com/tradegate-bot/tradegate/internal/platform"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

// CloseDecision is the outcome of evaluating a manual close request.
type CloseDecision struct {
	Allowed           bool
	NeedsConfirmation bool
	Reason            string
}

// ClosePolicyService decides who may close a thread and performs the close.
// It also implements ThreadCloser for the auto-close sweeper.
type ClosePolicyService struct {
	cfg     ConfigSource
	threads ThreadStore
	reviews ReviewStore
	audit   AuditStore
	msgr    platform.Messenger
	notices NoticeSender
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewClosePolicyService constructs the service.
func NewClosePolicyService(
	cfg ConfigSource,
	threads ThreadStore,
	reviews ReviewStore,
	audit AuditStore,
	msgr platform.Messenger,
	notices NoticeSender,
	metrics *MetricsService,
	logger *zap.Logger,
) *ClosePolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClosePolicyService{
		cfg:     cfg,
		threads: threads,
		reviews: reviews,
		audit:   audit,
		msgr:    msgr,
		notices: notices,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Decide evaluates the close request without mutating anything.
//
// Owners with at least one review from someone else close immediately;
// owners with none must confirm first. Admin status grants force-close on
// any tracked thread. Everyone else is denied. Admin membership is read
// fresh from config on every call.
func (s *ClosePolicyService) Decide(ctx context.Context, actor platform.User, thread *models.Thread) (CloseDecision, error) {
	if s.isAdmin(actor) {
		return CloseDecision{Allowed: true, Reason: models.CloseReasonAdminForce}, nil
	}
	if actor.ID != thread.OwnerID {
		return CloseDecision{}, nil
	}

	count, err := s.reviews.CountForThreadExcluding(ctx, thread.ID, thread.OwnerID)
	if err != nil {
		return CloseDecision{}, err
	}
	if count > 0 {
		return CloseDecision{Allowed: true, Reason: models.CloseReasonOwner}, nil
	}
	return CloseDecision{NeedsConfirmation: true, Reason: models.CloseReasonOwnerNoReviews}, nil
}

// RequestClose handles the close command. It either closes the thread,
// asks the owner for confirmation, or denies the actor.
func (s *ClosePolicyService) RequestClose(ctx context.Context, actor platform.User, threadID string) (CloseDecision, error) {
	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return CloseDecision{}, err
	}
	if thread.Status.Terminal() {
		return CloseDecision{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "This post is already closed.")
	}

	decision, err := s.Decide(ctx, actor, thread)
	if err != nil {
		return CloseDecision{}, err
	}
	if !decision.Allowed && !decision.NeedsConfirmation {
		return decision, appErrors.Clone(appErrors.ErrPolicyDenied, "Only the thread owner or a moderator can close this post.")
	}
	if decision.NeedsConfirmation {
		prompt := "⚠️ This post has no reviews yet. Reply `Yes` to close it anyway."
		if _, err := s.msgr.SendMessage(ctx, threadID, prompt); err != nil {
			s.logger.Warn("confirmation prompt failed", zap.String("thread_id", threadID), zap.Error(err))
		}
		return decision, nil
	}

	notice := closedNotice(decision.Reason, actor.ID)
	if err := s.Close(ctx, threadID, &actor.ID, decision.Reason, notice); err != nil {
		return decision, err
	}
	return decision, nil
}

// ConfirmClose completes the no-review close once the owner answers the
// confirmation prompt. The answer must be `Yes`, compared case-insensitively;
// anything else is rejected. Ownership and the review count are re-checked
// here rather than trusted from the earlier prompt.
func (s *ClosePolicyService) ConfirmClose(ctx context.Context, actor platform.User, threadID, answer string) error {
	if !strings.EqualFold(strings.TrimSpace(answer), "yes") {
		return appErrors.Clone(appErrors.ErrValidation, "Reply `Yes` to confirm closing without reviews.")
	}

	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return err
	}
	if thread.Status.Terminal() {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "This post is already closed.")
	}
	if actor.ID != thread.OwnerID {
		return appErrors.Clone(appErrors.ErrNotOwner, "Only the thread owner can confirm this.")
	}

	// A review may have landed between prompt and answer; prefer the
	// regular owner close in that case.
	reason := models.CloseReasonOwnerNoReviews
	count, err := s.reviews.CountForThreadExcluding(ctx, threadID, thread.OwnerID)
	if err != nil {
		return err
	}
	if count > 0 {
		reason = models.CloseReasonOwner
	}

	return s.Close(ctx, threadID, &actor.ID, reason, closedNotice(reason, actor.ID))
}

// Close archives and locks the thread, cancels any armed auto-close,
// persists the terminal state and appends the audit record. actorID is nil
// for system-initiated closes.
func (s *ClosePolicyService) Close(ctx context.Context, threadID string, actorID *string, reason, notice string) error {
	if _, err := s.threads.CancelAutoClose(ctx, threadID); err != nil {
		s.logger.Warn("cancel schedule on close", zap.String("thread_id", threadID), zap.Error(err))
	}

	if notice != "" {
		if _, err := s.msgr.SendMessage(ctx, threadID, notice); err != nil {
			s.logger.Warn("close notice failed", zap.String("thread_id", threadID), zap.Error(err))
		}
	}
	if err := s.msgr.ArchiveThread(ctx, threadID, true, true); err != nil {
		return fmt.Errorf("archive thread %s: %w", threadID, err)
	}
	if err := s.threads.SetClosed(ctx, threadID, models.ThreadStatusClosed); err != nil {
		return fmt.Errorf("persist close %s: %w", threadID, err)
	}

	entry := &models.AuditEntry{
		ThreadID: &threadID,
		UserID:   actorID,
		Action:   models.AuditActionThreadClosed,
		Details:  "reason=" + reason,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("append audit entry", zap.String("thread_id", threadID), zap.Error(err))
	}

	actor := "system"
	if actorID != nil {
		actor = *actorID
	}
	s.notices.Send(fmt.Sprintf("🔒 Thread %s closed (%s) by %s", threadID, reason, actor))
	return nil
}

// isAdmin reports whether the actor is in the configured admin allowlist or
// carries one of the configured admin roles.
func (s *ClosePolicyService) isAdmin(actor platform.User) bool {
	cfg := s.cfg.Bot()
	if containsString(cfg.AdminUserIDs, actor.ID) {
		return true
	}
	for _, role := range actor.RoleIDs {
		if containsString(cfg.AdminRoleIDs, role) {
			return true
		}
	}
	return false
}

func closedNotice(reason, actorID string) string {
	switch reason {
	case models.CloseReasonAdminForce:
		return fmt.Sprintf("🔒 This post was closed by a moderator (<@%s>).", actorID)
	case models.CloseReasonOwnerNoReviews:
		return "🔒 Post closed by the owner with no reviews."
	default:
		return "🔒 Post closed by the owner. Thanks for trading!"
	}
}
