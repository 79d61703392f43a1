package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradegate-bot/tradegate/internal/models"
	"github.com/tradegate-bot/tradegate/internal/platform"
	"github.com/tradegate-bot/tradegate/internal/repository"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

// participationScanLimit bounds the history scan for the participation check.
const participationScanLimit = 100

// SubmitReviewInput is the validated payload for one review submission.
type SubmitReviewInput struct {
	ThreadID string `validate:"required"`
	Rating   int    `validate:"required,min=1,max=10"`
	Notes    string `validate:"max=200"`
}

// ReviewService collects one review per (giver, thread) after TOS acceptance
// and drives the first-review auto-close arming.
type ReviewService struct {
	cfg      ConfigSource
	reviews  ReviewStore
	threads  ThreadStore
	audit    AuditStore
	msgr     platform.Messenger
	notices  NoticeSender
	cache    *repository.CacheRepository
	validate *validator.Validate
	metrics  *MetricsService
	logger   *zap.Logger

	tones  TonePools
	randFn func(n int) int
	now    func() time.Time
}

// NewReviewService constructs the service.
func NewReviewService(
	cfg ConfigSource,
	reviews ReviewStore,
	threads ThreadStore,
	audit AuditStore,
	msgr platform.Messenger,
	notices NoticeSender,
	cache *repository.CacheRepository,
	validate *validator.Validate,
	tones TonePools,
	metrics *MetricsService,
	logger *zap.Logger,
) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cache == nil {
		cache = repository.NewCacheRepository(nil, nil)
	}
	return &ReviewService{
		cfg:      cfg,
		reviews:  reviews,
		threads:  threads,
		audit:    audit,
		msgr:     msgr,
		notices:  notices,
		cache:    cache,
		validate: validate,
		metrics:  metrics,
		logger:   logger,
		tones:    tones,
		randFn:   rand.Intn,
		now:      time.Now,
	}
}

// Submit records one review from giver about the thread owner.
//
// Denials (self-review, not a participant, duplicate) and validation failures
// are expected outcomes surfaced to the actor without state mutation. The
// store's uniqueness constraint backstops the duplicate check against
// concurrent submissions.
func (s *ReviewService) Submit(ctx context.Context, giver platform.User, in SubmitReviewInput) (*models.Review, error) {
	thread, err := s.threads.Get(ctx, in.ThreadID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "This post isn't tracked for reviews.")
		}
		return nil, err
	}

	switch thread.Status {
	case models.ThreadStatusTosAccepted, models.ThreadStatusAutoCloseScheduled:
	default:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "Reviews aren't open on this post.")
	}

	if giver.ID == thread.OwnerID {
		return nil, appErrors.ErrSelfReview
	}

	if err := s.validate.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("Rating must be a whole number from %d to %d; notes up to %d characters.",
				models.MinRating, models.MaxRating, models.MaxNotesLength))
	}

	already, err := s.reviews.HasReviewed(ctx, giver.ID, thread.OwnerID, thread.ID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, appErrors.ErrDuplicateReview
	}

	authors, err := s.msgr.RecentAuthors(ctx, thread.ID, participationScanLimit)
	if err != nil {
		return nil, fmt.Errorf("participation check: %w", err)
	}
	if !containsString(authors, giver.ID) {
		return nil, appErrors.ErrNotParticipant
	}

	review := &models.Review{
		ID:         uuid.NewString(),
		GiverID:    giver.ID,
		ReceiverID: thread.OwnerID,
		ThreadID:   thread.ID,
		Rating:     in.Rating,
		CreatedAt:  s.now().UTC(),
	}
	if in.Notes != "" {
		notes := in.Notes
		review.Notes = &notes
	}

	// Persistence first; a concurrent duplicate loses here and is reported
	// as the same denial the fast path produces.
	if err := s.reviews.Record(ctx, review); err != nil {
		return nil, err
	}
	s.metrics.ReviewRecorded()

	count, err := s.reviews.CountForThread(ctx, thread.ID)
	if err != nil {
		s.logger.Error("count thread reviews", zap.String("thread_id", thread.ID), zap.Error(err))
		count = -1
	}
	if count == 1 {
		s.armAutoClose(ctx, thread)
	}

	s.refreshDisplay(ctx, thread)
	s.cache.Invalidate(ctx, "dashboard:*")
	s.appendAudit(ctx, thread.ID, &giver.ID, models.AuditActionReviewRecorded,
		fmt.Sprintf("rating=%d", in.Rating))
	s.notices.Send(fmt.Sprintf("✅ Review recorded: %s rated %s %d/10 in thread %s",
		giver.ID, thread.OwnerID, in.Rating, thread.ID))

	return review, nil
}

// CancelAutoClose removes the armed deadline. Owner only; cancelling when no
// schedule is armed degrades to a scoped rejection.
func (s *ReviewService) CancelAutoClose(ctx context.Context, actor platform.User, threadID string) error {
	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return err
	}
	if actor.ID != thread.OwnerID {
		return appErrors.Clone(appErrors.ErrNotOwner, "Only the thread owner can cancel the auto-close.")
	}

	removed, err := s.threads.CancelAutoClose(ctx, threadID)
	if err != nil {
		return err
	}
	if !removed {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "No auto-close is scheduled for this post.")
	}

	s.appendAudit(ctx, threadID, &actor.ID, models.AuditActionAutoCloseCancelled, "")
	if _, err := s.msgr.SendMessage(ctx, threadID, "🔓 Auto-close cancelled. This post stays open."); err != nil {
		s.logger.Warn("cancel notice failed", zap.String("thread_id", threadID), zap.Error(err))
	}
	return nil
}

// PostReviewPrompt publishes the review UI message after TOS acceptance:
// the owner's current star display, or a flavor line when they have none.
func (s *ReviewService) PostReviewPrompt(ctx context.Context, threadID, ownerID string) error {
	agg, err := s.reviews.Aggregate(ctx, ownerID)
	if err != nil {
		return err
	}

	var content string
	if agg.Count == 0 {
		content = "😶 " + s.tones.Pick(5.0, s.randFn)
	} else {
		content = fmt.Sprintf("📊 %s — %s", StarDisplay(agg.AvgRating, agg.Count), s.tones.Pick(agg.AvgRating, s.randFn))
	}

	if _, err := s.msgr.SendMessage(ctx, threadID, content); err != nil {
		return fmt.Errorf("post review prompt: %w", err)
	}
	return nil
}

func (s *ReviewService) armAutoClose(ctx context.Context, thread *models.Thread) {
	cfg := s.cfg.Bot()
	if !cfg.AutoCloseEnabled {
		return
	}

	fireAt := s.now().UTC().Add(time.Duration(cfg.AutoCloseHours) * time.Hour)
	armed, err := s.threads.ScheduleAutoClose(ctx, thread.ID, fireAt)
	if err != nil {
		s.logger.Error("arm auto close", zap.String("thread_id", thread.ID), zap.Error(err))
		return
	}
	if !armed {
		return
	}

	s.appendAudit(ctx, thread.ID, nil, models.AuditActionAutoCloseArmed,
		fmt.Sprintf("fire_at=%s", fireAt.Format(time.RFC3339)))
	notice := fmt.Sprintf("⏳ First review received. This post will auto-close in %dh unless <@%s> cancels.",
		cfg.AutoCloseHours, thread.OwnerID)
	if _, err := s.msgr.SendMessage(ctx, thread.ID, notice); err != nil {
		s.logger.Warn("auto-close notice failed", zap.String("thread_id", thread.ID), zap.Error(err))
	}
}

func (s *ReviewService) refreshDisplay(ctx context.Context, thread *models.Thread) {
	agg, err := s.reviews.Aggregate(ctx, thread.OwnerID)
	if err != nil {
		s.logger.Warn("aggregate refresh failed", zap.String("thread_id", thread.ID), zap.Error(err))
		return
	}
	content := fmt.Sprintf("📊 %s", StarDisplay(agg.AvgRating, agg.Count))
	if _, err := s.msgr.SendMessage(ctx, thread.ID, content); err != nil {
		s.logger.Warn("display refresh failed", zap.String("thread_id", thread.ID), zap.Error(err))
	}
}

func (s *ReviewService) appendAudit(ctx context.Context, threadID string, userID *string, action, details string) {
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
