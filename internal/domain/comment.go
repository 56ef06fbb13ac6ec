package domain

import "time"

// Comment is an append-only entry in a ticket thread. Internal comments
// are never surfaced to customers and never trigger outbound mail.
type Comment struct {
	ID         string
	TicketID   string
	AuthorID   string
	Message    string
	IsInternal bool
	To         []string
	CC         []string
	CreatedAt  time.Time
}

// Attachment stores metadata for a file referenced by a ticket or comment.
// Only the storage key is kept here; upload handling lives elsewhere.
type Attachment struct {
	ID         string
	TicketID   string
	CommentID  *string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
