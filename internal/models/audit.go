package models

import "time"

// Audit actions recorded by the core.
const (
	AuditActionTosAccepted        = "TOS_ACCEPTED"
	AuditActionTosDeclined        = "TOS_DECLINED"
	AuditActionTosTimedOut        = "TOS_TIMED_OUT"
	AuditActionTitleRejected      = "TITLE_REJECTED"
	AuditActionReviewRecorded     = "REVIEW_RECORDED"
	AuditActionAutoCloseArmed     = "AUTO_CLOSE_ARMED"
	AuditActionAutoCloseCancelled = "AUTO_CLOSE_CANCELLED"
	AuditActionThreadClosed       = "THREAD_CLOSED"
)

// Closure reasons distinguish who or what closed a thread.
const (
	CloseReasonOwner          = "owner-close"
	CloseReasonOwnerNoReviews = "owner-close-no-reviews"
	CloseReasonAdminForce     = "admin-force-close"
	CloseReasonTimeout        = "timeout-auto-close"
	CloseReasonPolicy         = "policy-auto-close"
)

// AuditEntry is one append-only trail record.
type AuditEntry struct {
	ID        string    `db:"id" json:"id"`
	ThreadID  *string   `db:"thread_id" json:"thread_id,omitempty"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
