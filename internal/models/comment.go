package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is one entry in a post's append-only comment log. IDs are
// assigned server-side and Seq is a per-post monotonic sequence number,
// so every viewer of a post converges on the same log order no matter
// what order the broadcasts arrive in.
type Comment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PostID    uuid.UUID `json:"postId" db:"post_id"`
	Text      string    `json:"text" db:"text"`
	Author    string    `json:"author" db:"author"`
	Seq       int64     `json:"seq" db:"seq"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
