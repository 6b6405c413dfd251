package memory

import "context"

// DefaultHistoryLimit is how many prior turns are fetched per request when
// history is enabled.
const DefaultHistoryLimit = 3

// Key identifies one stored transcript: a user within a room.
type Key struct {
	ServerID string // Matrix room ID
	UserID   string // Matrix user ID of the human participant
}

// History persists per-(room, user) transcripts. The transcript is an
// append-only log; nothing is ever evicted.
//
// Implementations must be safe for concurrent use.
type History interface {
	// Recent returns up to limit of the newest messages for key, oldest first.
	Recent(ctx context.Context, key Key, limit int) ([]Message, error)

	// Append adds msgs to the end of key's transcript, in order.
	Append(ctx context.Context, key Key, msgs ...Message) error
}
