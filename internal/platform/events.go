package platform

import "time"

// User identifies an actor on the chat platform.
type User struct {
	ID      string
	Bot     bool
	RoleIDs []string
}

// ThreadCreateEvent fires when a new forum post is created.
type ThreadCreateEvent struct {
	ThreadID        string
	ParentChannelID string
	GuildID         string
	OwnerID         string
	Name            string
	URL             string
	CreatedAt       time.Time
}

// MessageEvent fires for every message posted in a tracked thread.
type MessageEvent struct {
	MessageID string
	ThreadID  string
	Author    User
	CreatedAt time.Time
}
