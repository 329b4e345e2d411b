package database

import (
	"context"
	"sort"
	"sync"

	"whisply/internal/models"
	"whisply/internal/utils"

	"github.com/google/uuid"
)

// MemoryAdapter is a map-backed Adapter used for local runs, the
// simulator and tests.
type MemoryAdapter struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]*models.User
	posts    map[uuid.UUID]*models.Post
	comments map[uuid.UUID]*models.Comment
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		users:    make(map[uuid.UUID]*models.User),
		posts:    make(map[uuid.UUID]*models.Post),
		comments: make(map[uuid.UUID]*models.Comment),
	}
}

func (m *MemoryAdapter) Close(ctx context.Context) error { return nil }

// --- Users ---

func (m *MemoryAdapter) SaveUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := *user
	m.users[user.ID] = &u
	return nil
}

func (m *MemoryAdapter) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if user, ok := m.users[id]; ok {
		u := *user
		return &u, nil
	}
	return nil, utils.NewUserNotFoundError(id.String())
}

func (m *MemoryAdapter) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			u := *user
			return &u, nil
		}
	}
	return nil, utils.NewUserNotFoundError(email)
}

func (m *MemoryAdapter) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.ResetToken != nil && *user.ResetToken == token {
			u := *user
			return &u, nil
		}
	}
	return nil, utils.NewAppError(utils.ErrExpiredResetToken, "Invalid or expired token", nil)
}

// --- Posts ---

func (m *MemoryAdapter) SavePost(ctx context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *post
	m.posts[post.ID] = &p
	return nil
}

func (m *MemoryAdapter) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if post, ok := m.posts[id]; ok {
		p := *post
		return &p, nil
	}
	return nil, utils.NewPostNotFoundError(id.String())
}

func (m *MemoryAdapter) GetAllPosts(ctx context.Context) ([]*models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	posts := make([]*models.Post, 0, len(m.posts))
	for _, post := range m.posts {
		p := *post
		posts = append(posts, &p)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (m *MemoryAdapter) DeletePost(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return utils.NewPostNotFoundError(id.String())
	}
	delete(m.posts, id)
	for cid, comment := range m.comments {
		if comment.PostID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

// --- Comments ---

func (m *MemoryAdapter) SaveComment(ctx context.Context, comment *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *comment
	m.comments[comment.ID] = &c
	return nil
}

func (m *MemoryAdapter) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var comments []*models.Comment
	for _, comment := range m.comments {
		if comment.PostID == postID {
			c := *comment
			comments = append(comments, &c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].Seq < comments[j].Seq })
	return comments, nil
}

func (m *MemoryAdapter) GetAllComments(ctx context.Context) ([]*models.Comment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	comments := make([]*models.Comment, 0, len(m.comments))
	for _, comment := range m.comments {
		c := *comment
		comments = append(comments, &c)
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].Seq < comments[j].Seq })
	return comments, nil
}
