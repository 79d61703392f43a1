package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tradegate-bot/tradegate/internal/models"
	"github.com/tradegate-bot/tradegate/internal/platform"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

// TOS outcome labels for metrics and audit details.
const (
	tosOutcomeAccepted = "accepted"
	tosOutcomeDeclined = "declined"
	tosOutcomeTimeout  = "timeout"
)

const timeoutNotice = "⏱️ No response to the terms in time. This post has been auto-closed."

// TosGateService gates a newly created thread behind terms acceptance with a
// bounded wait. Prompts live in a keyed in-memory store owned by this service
// and are mirrored to the PromptStore so a restart can resolve expired ones.
type TosGateService struct {
	cfg      ConfigSource
	threads  ThreadStore
	prompts  PromptStore
	audit    AuditStore
	msgr     platform.Messenger
	reviewUI ReviewPrompter
	metrics  *MetricsService
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingPrompt

	now func() time.Time
}

type pendingPrompt struct {
	prompt models.TosPrompt
	timer  *time.Timer
}

// NewTosGateService constructs the gate.
func NewTosGateService(
	cfg ConfigSource,
	threads ThreadStore,
	prompts PromptStore,
	audit AuditStore,
	msgr platform.Messenger,
	reviewUI ReviewPrompter,
	metrics *MetricsService,
	logger *zap.Logger,
) *TosGateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TosGateService{
		cfg:      cfg,
		threads:  threads,
		prompts:  prompts,
		audit:    audit,
		msgr:     msgr,
		reviewUI: reviewUI,
		metrics:  metrics,
		logger:   logger,
		pending:  make(map[string]*pendingPrompt),
		now:      time.Now,
	}
}

// HandleThreadCreate opens a TOS prompt for threads created in a tracked
// forum. Untracked forums are ignored with a debug log only. Titles matching
// a banned pattern are rejected before any prompt opens.
func (s *TosGateService) HandleThreadCreate(ctx context.Context, ev platform.ThreadCreateEvent) error {
	cfg := s.cfg.Bot()

	if !containsString(cfg.TrackedForums, ev.ParentChannelID) {
		s.logger.Debug("thread outside tracked forums",
			zap.String("thread_id", ev.ThreadID), zap.String("parent_id", ev.ParentChannelID))
		return nil
	}

	if pattern, banned := matchBannedTitle(cfg.BannedTitlePatterns, ev.Name); banned {
		return s.rejectTitle(ctx, ev, pattern)
	}

	thread := &models.Thread{
		ID:              ev.ThreadID,
		ParentChannelID: ev.ParentChannelID,
		GuildID:         ev.GuildID,
		OwnerID:         ev.OwnerID,
		Name:            ev.Name,
		URL:             ev.URL,
		Status:          models.ThreadStatusTosPending,
	}
	if err := s.threads.Upsert(ctx, thread); err != nil {
		return err
	}

	if err := s.msgr.JoinThread(ctx, ev.ThreadID); err != nil {
		s.logger.Debug("join thread failed", zap.String("thread_id", ev.ThreadID), zap.Error(err))
	}

	now := s.now().UTC()
	deadline := now.Add(cfg.TosTimeout)
	content := strings.ReplaceAll(cfg.TosMessage, "{timeout}", cfg.TosTimeout.String())

	// Persist before sending so a failed send still leaves a prompt for the
	// timeout backstop to resolve; the thread can never park in TOS_PENDING.
	prompt := models.TosPrompt{
		ThreadID: ev.ThreadID,
		OwnerID:  ev.OwnerID,
		SentAt:   now,
		Deadline: deadline,
	}
	if err := s.prompts.Save(ctx, &prompt); err != nil {
		return err
	}

	messageID, err := s.msgr.SendMessage(ctx, ev.ThreadID, content)
	if err != nil {
		s.arm(prompt, deadline.Sub(now))
		return fmt.Errorf("send tos prompt: %w", err)
	}

	prompt.MessageID = messageID
	if err := s.prompts.Save(ctx, &prompt); err != nil {
		s.logger.Error("save prompt message id", zap.String("thread_id", ev.ThreadID), zap.Error(err))
	}

	s.arm(prompt, deadline.Sub(now))
	s.logger.Info("tos prompt opened",
		zap.String("thread_id", ev.ThreadID), zap.Time("deadline", deadline))
	return nil
}

// Accept resolves the gate in the owner's favor and hands off to the review UI.
func (s *TosGateService) Accept(ctx context.Context, actor platform.User, threadID string) error {
	p, err := s.take(actor, threadID, "accept the terms")
	if err != nil {
		return err
	}

	if _, err := s.prompts.Delete(ctx, threadID); err != nil {
		s.logger.Error("delete persisted prompt", zap.String("thread_id", threadID), zap.Error(err))
	}
	if p.MessageID != "" {
		if err := s.msgr.DeleteMessage(ctx, threadID, p.MessageID); err != nil {
			s.logger.Warn("delete prompt message", zap.String("thread_id", threadID), zap.Error(err))
		}
	}

	if err := s.threads.UpdateStatus(ctx, threadID, models.ThreadStatusTosAccepted); err != nil {
		return err
	}
	s.appendAudit(ctx, threadID, &actor.ID, models.AuditActionTosAccepted, "")
	s.metrics.TosOutcome(tosOutcomeAccepted)

	if err := s.reviewUI.PostReviewPrompt(ctx, threadID, p.OwnerID); err != nil {
		s.logger.Warn("post review prompt", zap.String("thread_id", threadID), zap.Error(err))
	}
	return nil
}

// Decline resolves the gate against the owner and closes the thread for good.
func (s *TosGateService) Decline(ctx context.Context, actor platform.User, threadID string) error {
	p, err := s.take(actor, threadID, "decline the terms")
	if err != nil {
		return err
	}

	if _, err := s.prompts.Delete(ctx, threadID); err != nil {
		s.logger.Error("delete persisted prompt", zap.String("thread_id", threadID), zap.Error(err))
	}

	cfg := s.cfg.Bot()
	if p.MessageID != "" {
		if err := s.msgr.EditMessage(ctx, threadID, p.MessageID, cfg.TosDeclineMessage); err != nil {
			s.logger.Warn("edit prompt message", zap.String("thread_id", threadID), zap.Error(err))
		}
	}

	if err := s.msgr.ArchiveThread(ctx, threadID, true, true); err != nil {
		s.logger.Error("archive declined thread", zap.String("thread_id", threadID), zap.Error(err))
	}
	if err := s.threads.SetClosed(ctx, threadID, models.ThreadStatusTosDeclined); err != nil {
		return err
	}
	s.appendAudit(ctx, threadID, &actor.ID, models.AuditActionTosDeclined, "")
	s.metrics.TosOutcome(tosOutcomeDeclined)
	return nil
}

// Timeout fires when the countdown elapses. It is a no-op when accept or
// decline already resolved the prompt: the keyed store's delete-under-lock is
// the exactly-once commit point, whichever side gets there first wins.
func (s *TosGateService) Timeout(ctx context.Context, threadID string) {
	s.mu.Lock()
	p, ok := s.pending[threadID]
	if ok {
		delete(s.pending, threadID)
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.expire(ctx, p.prompt)
}

// HandleMessage enforces suppression: while a prompt is pending, any non-bot
// message posted after the prompt's send time is deleted.
func (s *TosGateService) HandleMessage(ctx context.Context, ev platform.MessageEvent) error {
	if ev.Author.Bot {
		return nil
	}

	s.mu.Lock()
	p, ok := s.pending[ev.ThreadID]
	var sentAt time.Time
	if ok {
		sentAt = p.prompt.SentAt
	}
	s.mu.Unlock()

	if !ok || !ev.CreatedAt.After(sentAt) {
		return nil
	}

	if err := s.msgr.DeleteMessage(ctx, ev.ThreadID, ev.MessageID); err != nil {
		s.logger.Warn("suppress message failed",
			zap.String("thread_id", ev.ThreadID), zap.String("message_id", ev.MessageID), zap.Error(err))
		return nil
	}
	s.metrics.MessageSuppressed()
	return nil
}

// ResolveExpired is the boot pass over persisted prompts: expired ones are
// resolved as timeouts, live ones are re-armed so both the countdown and the
// suppression window survive a restart.
func (s *TosGateService) ResolveExpired(ctx context.Context) error {
	prompts, err := s.prompts.All(ctx)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for _, p := range prompts {
		if p.Expired(now) {
			s.expire(ctx, p)
			continue
		}
		s.arm(p, p.Deadline.Sub(now))
	}
	return nil
}

// PendingCount reports the number of live prompts.
func (s *TosGateService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *TosGateService) arm(prompt models.TosPrompt, d time.Duration) {
	if d < 0 {
		d = 0
	}
	p := &pendingPrompt{prompt: prompt}
	p.timer = time.AfterFunc(d, func() {
		s.Timeout(context.Background(), prompt.ThreadID)
	})

	s.mu.Lock()
	s.pending[prompt.ThreadID] = p
	s.mu.Unlock()
}

// take removes the pending prompt for the thread if the actor may resolve it.
// Removal under the lock guarantees exactly one of accept, decline, and
// timeout performs the terminal transition.
func (s *TosGateService) take(actor platform.User, threadID, verb string) (models.TosPrompt, error) {
	s.mu.Lock()
	p, ok := s.pending[threadID]
	if ok && actor.ID != p.prompt.OwnerID {
		s.mu.Unlock()
		return models.TosPrompt{}, appErrors.Clone(appErrors.ErrNotOwner,
			fmt.Sprintf("Only the thread owner can %s.", verb))
	}
	if ok {
		delete(s.pending, threadID)
		if p.timer != nil {
			p.timer.Stop()
		}
	}
	s.mu.Unlock()

	if !ok {
		return models.TosPrompt{}, appErrors.Clone(appErrors.ErrPreconditionFailed,
			"There is no pending terms prompt for this post.")
	}
	return p.prompt, nil
}

func (s *TosGateService) expire(ctx context.Context, p models.TosPrompt) {
	won, err := s.prompts.Delete(ctx, p.ThreadID)
	if err != nil {
		s.logger.Error("delete expired prompt", zap.String("thread_id", p.ThreadID), zap.Error(err))
	} else if !won {
		return
	}

	if _, err := s.msgr.SendMessage(ctx, p.ThreadID, timeoutNotice); err != nil {
		s.logger.Warn("timeout notice failed", zap.String("thread_id", p.ThreadID), zap.Error(err))
	}
	if err := s.msgr.ArchiveThread(ctx, p.ThreadID, true, true); err != nil {
		s.logger.Error("archive timed-out thread", zap.String("thread_id", p.ThreadID), zap.Error(err))
	}
	if err := s.threads.SetClosed(ctx, p.ThreadID, models.ThreadStatusTosAutoDeclined); err != nil {
		s.logger.Error("close timed-out thread", zap.String("thread_id", p.ThreadID), zap.Error(err))
		return
	}
	s.appendAudit(ctx, p.ThreadID, nil, models.AuditActionTosTimedOut, models.CloseReasonTimeout)
	s.metrics.TosOutcome(tosOutcomeTimeout)
	s.logger.Info("tos prompt timed out", zap.String("thread_id", p.ThreadID))
}

func (s *TosGateService) rejectTitle(ctx context.Context, ev platform.ThreadCreateEvent, pattern string) error {
	thread := &models.Thread{
		ID:              ev.ThreadID,
		ParentChannelID: ev.ParentChannelID,
		GuildID:         ev.GuildID,
		OwnerID:         ev.OwnerID,
		Name:            ev.Name,
		URL:             ev.URL,
		Status:          models.ThreadStatusClosed,
		Archived:        true,
		Locked:          true,
	}
	if err := s.threads.Upsert(ctx, thread); err != nil {
		return err
	}

	notice := fmt.Sprintf("🚫 Thread title contains a prohibited word (%q). This thread has been closed.", pattern)
	if _, err := s.msgr.SendMessage(ctx, ev.ThreadID, notice); err != nil {
		s.logger.Warn("title rejection notice failed", zap.String("thread_id", ev.ThreadID), zap.Error(err))
	}
	if err := s.msgr.ArchiveThread(ctx, ev.ThreadID, true, true); err != nil {
		s.logger.Error("archive rejected thread", zap.String("thread_id", ev.ThreadID), zap.Error(err))
	}
	s.appendAudit(ctx, ev.ThreadID, &ev.OwnerID, models.AuditActionTitleRejected, "banned_word="+pattern)
	return nil
}

func (s *TosGateService) appendAudit(ctx context.Context, threadID string, userID *string, action, details string) {
	entry := &models.AuditEntry{
		ThreadID: &threadID,
		UserID:   userID,
		Action:   action,
		Details:  details,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error("append audit entry", zap.String("thread_id", threadID), zap.String("action", action), zap.Error(err))
	}
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func matchBannedTitle(patterns []string, title string) (string, bool) {
	lower := strings.ToLower(title)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return pattern, true
		}
	}
	return "", false
}
