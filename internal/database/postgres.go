// internal/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"whisply/internal/models"
	"whisply/internal/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresDB represents a PostgreSQL database connection
type PostgresDB struct {
	DB *sqlx.DB
}

// NewPostgres creates a new PostgreSQL-backed adapter
func NewPostgres(ctx context.Context, connectionString string) (*PostgresDB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %v", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL!")

	pg := &PostgresDB{DB: db}
	if err := pg.initSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

func (p *PostgresDB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		reset_token TEXT,
		reset_token_expiry TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS posts (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		author_id UUID NOT NULL,
		author_username TEXT NOT NULL DEFAULT '',
		published BOOLEAN NOT NULL DEFAULT FALSE,
		comment_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS comments (
		id UUID PRIMARY KEY,
		post_id UUID NOT NULL,
		text TEXT NOT NULL,
		author TEXT NOT NULL,
		seq BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_comments_post_seq ON comments (post_id, seq);
	`
	if _, err := p.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %v", err)
	}
	return nil
}

func (p *PostgresDB) Close(ctx context.Context) error {
	return p.DB.Close()
}

// --- Users ---

func (p *PostgresDB) SaveUser(ctx context.Context, user *models.User) error {
	query := `
	INSERT INTO users (id, username, email, password_hash, reset_token, reset_token_expiry, created_at, updated_at)
	VALUES (:id, :username, :email, :password_hash, :reset_token, :reset_token_expiry, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		username = EXCLUDED.username,
		email = EXCLUDED.email,
		password_hash = EXCLUDED.password_hash,
		reset_token = EXCLUDED.reset_token,
		reset_token_expiry = EXCLUDED.reset_token_expiry,
		updated_at = EXCLUDED.updated_at`
	if _, err := p.DB.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("failed to save user: %v", err)
	}
	return nil
}

func (p *PostgresDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return &user, nil
}

func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user, `SELECT * FROM users WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, utils.NewUserNotFoundError(email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %v", err)
	}
	return &user, nil
}

func (p *PostgresDB) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := p.DB.GetContext(ctx, &user,
		`SELECT * FROM users WHERE reset_token = $1 AND reset_token_expiry > NOW()`, token)
	if err == sql.ErrNoRows {
		return nil, utils.NewAppError(utils.ErrExpiredResetToken, "Invalid or expired token", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by reset token: %v", err)
	}
	return &user, nil
}

// --- Posts ---

func (p *PostgresDB) SavePost(ctx context.Context, post *models.Post) error {
	query := `
	INSERT INTO posts (id, title, content, image_url, author_id, author_username, published, comment_count, created_at, updated_at)
	VALUES (:id, :title, :content, :image_url, :author_id, :author_username, :published, :comment_count, :created_at, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		content = EXCLUDED.content,
		image_url = EXCLUDED.image_url,
		published = EXCLUDED.published,
		comment_count = EXCLUDED.comment_count,
		updated_at = EXCLUDED.updated_at`
	if _, err := p.DB.NamedExecContext(ctx, query, post); err != nil {
		return fmt.Errorf("failed to save post: %v", err)
	}
	return nil
}

func (p *PostgresDB) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := p.DB.GetContext(ctx, &post, `SELECT * FROM posts WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, utils.NewPostNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %v", err)
	}
	return &post, nil
}

func (p *PostgresDB) GetAllPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := p.DB.SelectContext(ctx, &posts, `SELECT * FROM posts ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %v", err)
	}
	return posts, nil
}

func (p *PostgresDB) DeletePost(ctx context.Context, id uuid.UUID) error {
	res, err := p.DB.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %v", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return utils.NewPostNotFoundError(id.String())
	}
	if _, err := p.DB.ExecContext(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete post comments: %v", err)
	}
	return nil
}

// --- Comments ---

func (p *PostgresDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	query := `
	INSERT INTO comments (id, post_id, text, author, seq, created_at)
	VALUES (:id, :post_id, :text, :author, :seq, :created_at)
	ON CONFLICT (id) DO NOTHING`
	if _, err := p.DB.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("failed to save comment: %v", err)
	}
	return nil
}

func (p *PostgresDB) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := p.DB.SelectContext(ctx, &comments,
		`SELECT * FROM comments WHERE post_id = $1 ORDER BY seq ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get post comments: %v", err)
	}
	return comments, nil
}

func (p *PostgresDB) GetAllComments(ctx context.Context) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := p.DB.SelectContext(ctx, &comments, `SELECT * FROM comments ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %v", err)
	}
	return comments, nil
}
