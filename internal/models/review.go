package models

import "time"

// Rating bounds for a review.
const (
	MinRating = 1
	MaxRating = 10
)

// MaxNotesLength bounds the free-text notes attached to a review.
const MaxNotesLength = 200

// Review is one participant's rating of a thread owner. Unique per
// (giver, receiver, thread); immutable once written.
type Review struct {
	ID         string    `db:"id" json:"id"`
	GiverID    string    `db:"giver_id" json:"giver_id"`
	ReceiverID string    `db:"receiver_id" json:"receiver_id"`
	ThreadID   string    `db:"thread_id" json:"thread_id"`
	Rating     int       `db:"rating" json:"rating"`
	Notes      *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ReviewAggregate summarises the reviews a user has received.
type ReviewAggregate struct {
	AvgRating float64 `db:"avg_rating" json:"avg_rating"`
	Count     int     `db:"review_count" json:"review_count"`
}

// UserActivity is the dashboard roster row: one user with review activity.
type UserActivity struct {
	UserID    string  `db:"user_id" json:"user_id"`
	AvgRating float64 `db:"avg_rating" json:"avg_rating"`
	Received  int     `db:"received" json:"received"`
	Given     int     `db:"given" json:"given"`
}

// LeaderboardEntry ranks receivers by average rating.
type LeaderboardEntry struct {
	UserID    string  `db:"user_id" json:"user_id"`
	AvgRating float64 `db:"avg_rating" json:"avg_rating"`
	Count     int     `db:"review_count" json:"review_count"`
}
