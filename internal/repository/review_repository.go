package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/tradegate-bot/tradegate/internal/models"
	appErrors "github.com/tradegate-bot/tradegate/pkg/errors"
)

// ReviewRepository persists reviews. The UNIQUE(giver, receiver, thread)
// constraint is the concurrency backstop for duplicate prevention; a rejected
// insert surfaces as ErrDuplicateReview, an expected outcome.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Record inserts a review. Returns appErrors.ErrDuplicateReview when the
// (giver, receiver, thread) triple already exists.
func (r *ReviewRepository) Record(ctx context.Context, review *models.Review) error {
	const query = `INSERT INTO reviews (id, giver_id, receiver_id, thread_id, rating, notes, created_at)
VALUES (:id, :giver_id, :receiver_id, :thread_id, :rating, :notes, :created_at)`
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, review); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return appErrors.ErrDuplicateReview
		}
		return fmt.Errorf("record review: %w", err)
	}
	return nil
}

// HasReviewed reports whether the giver already reviewed the receiver in the thread.
func (r *ReviewRepository) HasReviewed(ctx context.Context, giverID, receiverID, threadID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM reviews WHERE giver_id = ? AND receiver_id = ? AND thread_id = ?`
	var count int
	if err := r.db.GetContext(ctx, &count, query, giverID, receiverID, threadID); err != nil {
		return false, fmt.Errorf("has reviewed: %w", err)
	}
	return count > 0, nil
}

// CountForThread returns the number of reviews recorded in a thread.
func (r *ReviewRepository) CountForThread(ctx context.Context, threadID string) (int, error) {
	const query = `SELECT COUNT(*) FROM reviews WHERE thread_id = ?`
	var count int
	if err := r.db.GetContext(ctx, &count, query, threadID); err != nil {
		return 0, fmt.Errorf("count thread reviews: %w", err)
	}
	return count, nil
}

// CountForThreadExcluding counts reviews in a thread given by anyone but userID.
func (r *ReviewRepository) CountForThreadExcluding(ctx context.Context, threadID, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM reviews WHERE thread_id = ? AND giver_id != ?`
	var count int
	if err := r.db.GetContext(ctx, &count, query, threadID, userID); err != nil {
		return 0, fmt.Errorf("count thread reviews excluding giver: %w", err)
	}
	return count, nil
}

// Aggregate returns the average rating and count a user has received.
func (r *ReviewRepository) Aggregate(ctx context.Context, userID string) (models.ReviewAggregate, error) {
	const query = `SELECT COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS review_count
FROM reviews WHERE receiver_id = ?`
	var agg models.ReviewAggregate
	if err := r.db.GetContext(ctx, &agg, query, userID); err != nil {
		return models.ReviewAggregate{}, fmt.Errorf("aggregate reviews: %w", err)
	}
	return agg, nil
}

// LatestReceived returns the newest reviews a user has received.
func (r *ReviewRepository) LatestReceived(ctx context.Context, userID string, limit int) ([]models.Review, error) {
	const query = `SELECT id, giver_id, receiver_id, thread_id, rating, notes, created_at
FROM reviews WHERE receiver_id = ? ORDER BY created_at DESC LIMIT ?`
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, userID, limit); err != nil {
		return nil, fmt.Errorf("latest received reviews: %w", err)
	}
	return reviews, nil
}

// LatestGiven returns the newest reviews a user has given.
func (r *ReviewRepository) LatestGiven(ctx context.Context, userID string, limit int) ([]models.Review, error) {
	const query = `SELECT id, giver_id, receiver_id, thread_id, rating, notes, created_at
FROM reviews WHERE giver_id = ? ORDER BY created_at DESC LIMIT ?`
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, userID, limit); err != nil {
		return nil, fmt.Errorf("latest given reviews: %w", err)
	}
	return reviews, nil
}

// ListForThread returns all reviews recorded in a thread, oldest first.
func (r *ReviewRepository) ListForThread(ctx context.Context, threadID string) ([]models.Review, error) {
	const query = `SELECT id, giver_id, receiver_id, thread_id, rating, notes, created_at
FROM reviews WHERE thread_id = ? ORDER BY created_at ASC`
	var reviews []models.Review
	if err := r.db.SelectContext(ctx, &reviews, query, threadID); err != nil {
		return nil, fmt.Errorf("list thread reviews: %w", err)
	}
	return reviews, nil
}

// Leaderboard ranks receivers by average rating, requiring a minimum count so
// a single 10 does not top the board.
func (r *ReviewRepository) Leaderboard(ctx context.Context, limit, minCount int) ([]models.LeaderboardEntry, error) {
	const query = `SELECT receiver_id AS user_id, AVG(rating) AS avg_rating, COUNT(*) AS review_count
FROM reviews GROUP BY receiver_id HAVING COUNT(*) >= ?
ORDER BY avg_rating DESC, review_count DESC LIMIT ?`
	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, minCount, limit); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}

// UsersWithActivity lists every user that has given or received a review,
// with their aggregates, for the dashboard roster.
func (r *ReviewRepository) UsersWithActivity(ctx context.Context) ([]models.UserActivity, error) {
	const query = `SELECT u.user_id,
       COALESCE((SELECT AVG(rating) FROM reviews WHERE receiver_id = u.user_id), 0) AS avg_rating,
       (SELECT COUNT(*) FROM reviews WHERE receiver_id = u.user_id) AS received,
       (SELECT COUNT(*) FROM reviews WHERE giver_id = u.user_id) AS given
FROM (SELECT giver_id AS user_id FROM reviews UNION SELECT receiver_id FROM reviews) u
ORDER BY avg_rating DESC, u.user_id ASC`
	var users []models.UserActivity
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("users with activity: %w", err)
	}
	return users, nil
}

// Overview returns homepage totals: review count, average rating, and the
// number of users who have given or received a review.
func (r *ReviewRepository) Overview(ctx context.Context) (total int, avg float64, activeUsers int, err error) {
	row := r.db.QueryRowxContext(ctx, `SELECT COUNT(*), COALESCE(AVG(rating), 0) FROM reviews`)
	if err = row.Scan(&total, &avg); err != nil {
		return 0, 0, 0, fmt.Errorf("overview totals: %w", err)
	}

	const activeQuery = `SELECT COUNT(*) FROM (
SELECT giver_id AS user_id FROM reviews UNION SELECT receiver_id FROM reviews)`
	if err = r.db.GetContext(ctx, &activeUsers, activeQuery); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return total, avg, 0, nil
		}
		return 0, 0, 0, fmt.Errorf("overview active users: %w", err)
	}
	return total, avg, activeUsers, nil
}
