package models

import "time"

// TosPrompt is the one active terms prompt for a pending thread. Destroyed on
// accept, decline, or timeout; persisted so a restart can resolve expired
// prompts instead of leaving threads stuck.
type TosPrompt struct {
	ThreadID  string    `db:"thread_id" json:"thread_id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	MessageID string    `db:"message_id" json:"message_id"`
	SentAt    time.Time `db:"sent_at" json:"sent_at"`
	Deadline  time.Time `db:"deadline" json:"deadline"`
}

// Expired reports whether the prompt deadline has passed.
func (p TosPrompt) Expired(now time.Time) bool {
	return !now.Before(p.Deadline)
}
