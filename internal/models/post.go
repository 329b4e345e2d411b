package models

import (
	"time"

	"github.com/google/uuid"
)

type Post struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Content        string    `json:"content" db:"content"`
	ImageURL       string    `json:"imageUrl,omitempty" db:"image_url"`
	AuthorID       uuid.UUID `json:"authorId" db:"author_id"`
	AuthorUsername string    `json:"authorUsername" db:"author_username"`
	Published      bool      `json:"published" db:"published"`
	CommentCount   int       `json:"commentCount" db:"comment_count"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}
