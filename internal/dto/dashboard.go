package dto

import "time"

// OverviewResponse is the landing summary of the dashboard.
type OverviewResponse struct {
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	ActiveUsers   int     `json:"active_users"`
	OpenThreads   int     `json:"open_threads"`
	StarDisplay   string  `json:"star_display"`
}

// UserSummary is one roster row: a user with any review activity.
type UserSummary struct {
	UserID      string  `json:"user_id"`
	AvgRating   float64 `json:"avg_rating"`
	StarDisplay string  `json:"star_display"`
	Received    int     `json:"received"`
	Given       int     `json:"given"`
}

// ReviewItem is one review as shown on profile and thread pages.
type ReviewItem struct {
	GiverID    string    `json:"giver_id"`
	ReceiverID string    `json:"receiver_id"`
	ThreadID   string    `json:"thread_id"`
	Rating     int       `json:"rating"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserProfileResponse is the per-user drill-down.
type UserProfileResponse struct {
	UserID         string       `json:"user_id"`
	AvgRating      float64      `json:"avg_rating"`
	ReviewCount    int          `json:"review_count"`
	StarDisplay    string       `json:"star_display"`
	RecentReceived []ReviewItem `json:"recent_received"`
	RecentGiven    []ReviewItem `json:"recent_given"`
}

// AuditItem is one trail record on the thread page.
type AuditItem struct {
	Action    string    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadDetailResponse is the per-thread drill-down.
type ThreadDetailResponse struct {
	ThreadID    string       `json:"thread_id"`
	OwnerID     string       `json:"owner_id"`
	Name        string       `json:"name"`
	Status      string       `json:"status"`
	AutoCloseAt *time.Time   `json:"auto_close_at,omitempty"`
	Reviews     []ReviewItem `json:"reviews"`
	Audit       []AuditItem  `json:"audit"`
}

// LeaderboardRow ranks one receiver.
type LeaderboardRow struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	AvgRating   float64 `json:"avg_rating"`
	ReviewCount int     `json:"review_count"`
	StarDisplay string  `json:"star_display"`
}

// LeaderboardResponse is the ranked list plus its inclusion threshold.
type LeaderboardResponse struct {
	MinReviews int              `json:"min_reviews"`
	Rows       []LeaderboardRow `json:"rows"`
}
