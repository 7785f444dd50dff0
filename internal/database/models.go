package database

// GuildConfig is the per-guild configuration record. A guild that has never
// been configured gets a default record (empty channel, no events, no
// actions, no redirects) created on first reference.
type GuildConfig struct {
	GuildID      string
	LogChannelID string
	Events       []string
	EventActions []EventAction
	LogChannels  []LogChannel
	CreatedAt    int64
	UpdatedAt    int64
}

// EventAction binds a user-authored action script to an event name.
// Immutable once created; removal is by id.
type EventAction struct {
	ID         string
	Event      string
	ActionCode string
	CreatedAt  int64
}

// LogChannel redirects one event's log output to a channel. Multiple
// redirects for the same event fan the message out.
type LogChannel struct {
	ID        string
	Event     string
	ChannelID string
	CreatedAt int64
}

// OpResult reports whether a mutation was applied and how many records it
// touched. Mutations against an unknown guild return Applied=false together
// with ErrNotFound.
type OpResult struct {
	Applied  bool
	Affected int64
}
