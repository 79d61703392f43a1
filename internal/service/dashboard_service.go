package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradegate-bot/tradegate/internal/dto"
	"github.com/tradegate-bot/tradegate/internal/models"
	"github.com/tradegate-bot/tradegate/internal/repository"
)

// Cache keys and TTLs for the read-only dashboard. Short TTLs keep pages a
// little stale at most; writes never invalidate synchronously.
const (
	cacheKeyOverview    = "dashboard:overview"
	cacheKeyUsers       = "dashboard:users"
	cacheKeyLeaderboard = "dashboard:leaderboard"
	cacheKeyUserFmt     = "dashboard:user:%s"
	cacheKeyThreadFmt   = "dashboard:thread:%s"

	cacheTTLSummary = 60 * time.Second
	cacheTTLDetail  = 30 * time.Second
)

const (
	profileReviewLimit    = 10
	threadAuditLimit      = 50
	leaderboardLimit      = 20
	leaderboardMinReviews = 3
)

// DashboardReviewStore is the review access the dashboard needs beyond the
// core ReviewStore.
type DashboardReviewStore interface {
	ReviewStore
	LatestReceived(ctx context.Context, userID string, limit int) ([]models.Review, error)
	LatestGiven(ctx context.Context, userID string, limit int) ([]models.Review, error)
	ListForThread(ctx context.Context, threadID string) ([]models.Review, error)
	Leaderboard(ctx context.Context, limit, minCount int) ([]models.LeaderboardEntry, error)
	UsersWithActivity(ctx context.Context) ([]models.UserActivity, error)
	Overview(ctx context.Context) (total int, avg float64, activeUsers int, err error)
}

// DashboardThreadStore adds the open-thread count to the core ThreadStore.
type DashboardThreadStore interface {
	ThreadStore
	CountOpen(ctx context.Context) (int, error)
}

// DashboardAuditStore reads the trail for the thread page.
type DashboardAuditStore interface {
	ListForThread(ctx context.Context, threadID string, limit int) ([]models.AuditEntry, error)
}

// DashboardService serves the read-only reputation dashboard with a
// cache-aside layer in front of the store.
type DashboardService struct {
	reviews    DashboardReviewStore
	threads    DashboardThreadStore
	audit      DashboardAuditStore
	cache      *repository.CacheRepository
	summaryTTL time.Duration
	logger     *zap.Logger
}

// NewDashboardService constructs the service. summaryTTL tunes how long the
// list and overview pages may stay stale; zero keeps the default.
func NewDashboardService(
	reviews DashboardReviewStore,
	threads DashboardThreadStore,
	audit DashboardAuditStore,
	cache *repository.CacheRepository,
	summaryTTL time.Duration,
	logger *zap.Logger,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if summaryTTL <= 0 {
		summaryTTL = cacheTTLSummary
	}
	return &DashboardService{
		reviews:    reviews,
		threads:    threads,
		audit:      audit,
		cache:      cache,
		summaryTTL: summaryTTL,
		logger:     logger,
	}
}

// Overview returns the landing summary.
func (s *DashboardService) Overview(ctx context.Context) (*dto.OverviewResponse, error) {
	var cached dto.OverviewResponse
	if err := s.cache.Get(ctx, cacheKeyOverview, &cached); err == nil {
		return &cached, nil
	}

	total, avg, activeUsers, err := s.reviews.Overview(ctx)
	if err != nil {
		return nil, err
	}
	open, err := s.threads.CountOpen(ctx)
	if err != nil {
		return nil, err
	}

	resp := &dto.OverviewResponse{
		TotalReviews:  total,
		AverageRating: avg,
		ActiveUsers:   activeUsers,
		OpenThreads:   open,
		StarDisplay:   StarDisplay(avg, total),
	}
	s.cacheSet(ctx, cacheKeyOverview, resp, s.summaryTTL)
	return resp, nil
}

// Users returns every user with any review activity.
func (s *DashboardService) Users(ctx context.Context) ([]dto.UserSummary, error) {
	var cached []dto.UserSummary
	if err := s.cache.Get(ctx, cacheKeyUsers, &cached); err == nil {
		return cached, nil
	}

	rows, err := s.reviews.UsersWithActivity(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, dto.UserSummary{
			UserID:      row.UserID,
			AvgRating:   row.AvgRating,
			StarDisplay: StarDisplay(row.AvgRating, row.Received),
			Received:    row.Received,
			Given:       row.Given,
		})
	}
	s.cacheSet(ctx, cacheKeyUsers, out, s.summaryTTL)
	return out, nil
}

// UserProfile returns the per-user drill-down. Users with zero activity still
// resolve, with the no-rating display.
func (s *DashboardService) UserProfile(ctx context.Context, userID string) (*dto.UserProfileResponse, error) {
	key := fmt.Sprintf(cacheKeyUserFmt, userID)
	var cached dto.UserProfileResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	agg, err := s.reviews.Aggregate(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := s.reviews.LatestReceived(ctx, userID, profileReviewLimit)
	if err != nil {
		return nil, err
	}
	given, err := s.reviews.LatestGiven(ctx, userID, profileReviewLimit)
	if err != nil {
		return nil, err
	}

	resp := &dto.UserProfileResponse{
		UserID:         userID,
		AvgRating:      agg.AvgRating,
		ReviewCount:    agg.Count,
		StarDisplay:    StarDisplay(agg.AvgRating, agg.Count),
		RecentReceived: toReviewItems(received),
		RecentGiven:    toReviewItems(given),
	}
	s.cacheSet(ctx, key, resp, cacheTTLDetail)
	return resp, nil
}

// Thread returns the per-thread drill-down with its reviews and audit trail.
func (s *DashboardService) Thread(ctx context.Context, threadID string) (*dto.ThreadDetailResponse, error) {
	key := fmt.Sprintf(cacheKeyThreadFmt, threadID)
	var cached dto.ThreadDetailResponse
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListForThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	trail, err := s.audit.ListForThread(ctx, threadID, threadAuditLimit)
	if err != nil {
		return nil, err
	}

	resp := &dto.ThreadDetailResponse{
		ThreadID:    thread.ID,
		OwnerID:     thread.OwnerID,
		Name:        thread.Name,
		Status:      string(thread.Status),
		AutoCloseAt: thread.AutoCloseAt,
		Reviews:     toReviewItems(reviews),
		Audit:       toAuditItems(trail),
	}
	s.cacheSet(ctx, key, resp, cacheTTLDetail)
	return resp, nil
}

// Leaderboard ranks receivers by average rating; receivers with fewer than
// the minimum number of reviews are excluded.
func (s *DashboardService) Leaderboard(ctx context.Context) (*dto.LeaderboardResponse, error) {
	var cached dto.LeaderboardResponse
	if err := s.cache.Get(ctx, cacheKeyLeaderboard, &cached); err == nil {
		return &cached, nil
	}

	entries, err := s.reviews.Leaderboard(ctx, leaderboardLimit, leaderboardMinReviews)
	if err != nil {
		return nil, err
	}

	resp := &dto.LeaderboardResponse{
		MinReviews: leaderboardMinReviews,
		Rows:       make([]dto.LeaderboardRow, 0, len(entries)),
	}
	for i, e := range entries {
		resp.Rows = append(resp.Rows, dto.LeaderboardRow{
			Rank:        i + 1,
			UserID:      e.UserID,
			AvgRating:   e.AvgRating,
			ReviewCount: e.Count,
			StarDisplay: StarDisplay(e.AvgRating, e.Count),
		})
	}
	s.cacheSet(ctx, cacheKeyLeaderboard, resp, s.summaryTTL)
	return resp, nil
}

func (s *DashboardService) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func toReviewItems(reviews []models.Review) []dto.ReviewItem {
	out := make([]dto.ReviewItem, 0, len(reviews))
	for _, r := range reviews {
		item := dto.ReviewItem{
			GiverID:    r.GiverID,
			ReceiverID: r.ReceiverID,
			ThreadID:   r.ThreadID,
			Rating:     r.Rating,
			CreatedAt:  r.CreatedAt,
		}
		if r.Notes != nil {
			item.Notes = *r.Notes
		}
		out = append(out, item)
	}
	return out
}

func toAuditItems(entries []models.AuditEntry) []dto.AuditItem {
	out := make([]dto.AuditItem, 0, len(entries))
	for _, e := range entries {
		item := dto.AuditItem{
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		}
		if e.UserID != nil {
			item.UserID = *e.UserID
		}
		out = append(out, item)
	}
	return out
}
