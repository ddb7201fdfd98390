package conversation

import "context"

// Role tags who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one role-tagged utterance in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Store maps a user identifier to that user's ordered turn history.
//
// Get returns an empty history for unknown users. Put replaces the
// stored history wholesale; there is no partial append, callers
// read-modify-write the full sequence.
type Store interface {
	Get(ctx context.Context, userID string) ([]Turn, error)
	Put(ctx context.Context, userID string, turns []Turn) error
	// Count reports how many users currently have a non-empty history.
	Count(ctx context.Context) (int, error)
	Close() error
}
