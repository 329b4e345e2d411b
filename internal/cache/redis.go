package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"whisply/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	commentPrefix = "comments"

	// Only the tail of each post's log is cached; older entries come
	// from the database on a miss.
	maxCached = 100
)

// CommentCache keeps the most recent slice of each post's comment log in
// Redis so the post-view load does not hit the database for the hot path.
type CommentCache struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings it to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*CommentCache, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &CommentCache{cli: cli}, nil
}

func key(postID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", commentPrefix, postID)
}

// PushComment appends a comment to the post's cached log tail.
func (c *CommentCache) PushComment(ctx context.Context, comment *models.Comment) error {
	raw, err := json.Marshal(comment)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}

	k := key(comment.PostID)
	pipe := c.cli.TxPipeline()
	pipe.RPush(ctx, k, raw)
	pipe.LTrim(ctx, k, -maxCached, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis push comment: %w", err)
	}
	return nil
}

// ListComments returns the cached tail of the post's log in append order.
// An empty result means a miss; the caller falls back to the database.
func (c *CommentCache) ListComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	vals, err := c.cli.LRange(ctx, key(postID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange: %w", err)
	}

	out := make([]*models.Comment, 0, len(vals))
	for _, raw := range vals {
		var comment models.Comment
		if err := json.Unmarshal([]byte(raw), &comment); err != nil {
			return nil, fmt.Errorf("unmarshal comment: %w", err)
		}
		out = append(out, &comment)
	}
	return out, nil
}

// Invalidate drops a post's cached log, used when the post is deleted.
func (c *CommentCache) Invalidate(ctx context.Context, postID uuid.UUID) error {
	return c.cli.Del(ctx, key(postID)).Err()
}
