package models

import "time"

// ThreadStatus tracks the lifecycle of a marketplace thread.
type ThreadStatus string

const (
	ThreadStatusOpen               ThreadStatus = "OPEN"
	ThreadStatusTosPending         ThreadStatus = "TOS_PENDING"
	ThreadStatusTosAccepted        ThreadStatus = "TOS_ACCEPTED"
	ThreadStatusTosDeclined        ThreadStatus = "TOS_DECLINED"
	ThreadStatusTosAutoDeclined    ThreadStatus = "TOS_AUTO_DECLINED"
	ThreadStatusAutoCloseScheduled ThreadStatus = "AUTO_CLOSE_SCHEDULED"
	ThreadStatusClosed             ThreadStatus = "CLOSED"
)

// Terminal reports whether no further interaction is possible for the status.
func (s ThreadStatus) Terminal() bool {
	switch s {
	case ThreadStatusTosDeclined, ThreadStatusTosAutoDeclined, ThreadStatusClosed:
		return true
	}
	return false
}

// Thread is the denormalized record of one forum post. Created on the
// thread-create event and mutated through the lifecycle; never deleted.
type Thread struct {
	ID              string       `db:"thread_id" json:"thread_id"`
	ParentChannelID string       `db:"parent_channel_id" json:"parent_channel_id"`
	GuildID         string       `db:"guild_id" json:"guild_id"`
	OwnerID         string       `db:"owner_id" json:"owner_id"`
	Name            string       `db:"name" json:"name"`
	URL             string       `db:"url" json:"url"`
	Status          ThreadStatus `db:"status" json:"status"`
	Archived        bool         `db:"archived" json:"archived"`
	Locked          bool         `db:"locked" json:"locked"`
	AutoCloseAt     *time.Time   `db:"auto_close_at" json:"auto_close_at,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// AutoCloseSchedule is the durable fact backing the auto-close sweep. At most
// one active schedule exists per thread.
type AutoCloseSchedule struct {
	ThreadID string    `db:"thread_id" json:"thread_id"`
	FireAt   time.Time `db:"fire_at" json:"fire_at"`
}
