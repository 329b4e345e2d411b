package database

import (
	"context"
	"fmt"

	"whisply/internal/config"
	"whisply/internal/models"

	"github.com/google/uuid"
)

// Adapter is the persistence contract consumed by the actors. Mongo is
// the primary backend, Postgres and an in-memory map are alternatives
// selected through config.
type Adapter interface {
	// Users
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)

	// Posts
	SavePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	GetAllPosts(ctx context.Context) ([]*models.Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error

	// Comments
	SaveComment(ctx context.Context, comment *models.Comment) error
	GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error)
	GetAllComments(ctx context.Context) ([]*models.Comment, error)

	Close(ctx context.Context) error
}

// NewAdapter builds the adapter named by the database config.
func NewAdapter(ctx context.Context, cfg *config.DatabaseConfig) (Adapter, error) {
	switch cfg.Type {
	case "mongo":
		return NewMongoDB(cfg.URI, cfg.Name)
	case "postgres":
		return NewPostgres(ctx, cfg.URI)
	case "memory":
		return NewMemoryAdapter(), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}
