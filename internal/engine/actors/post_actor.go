package actors

import (
	stdctx "context"
	"log"
	"sort"
	"strings"
	"time"

	"whisply/internal/database"
	"whisply/internal/models"
	"whisply/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// GetCountsMsg asks an actor for the size of its collection.
type GetCountsMsg struct{}

// Message types for PostActor
type (
	CreatePostMsg struct {
		Title          string
		Content        string
		ImageURL       string
		AuthorID       uuid.UUID
		AuthorUsername string
		Published      bool
	}

	GetPostMsg struct {
		PostID uuid.UUID
	}

	// ListPostsMsg returns posts newest first. With PublishedOnly set,
	// drafts are filtered out. With AuthorID set, only that author's
	// posts are returned (drafts included, for the dashboard).
	ListPostsMsg struct {
		AuthorID      uuid.UUID
		PublishedOnly bool
	}

	UpdatePostMsg struct {
		PostID    uuid.UUID
		AuthorID  uuid.UUID
		Title     string
		Content   string
		ImageURL  string
		Published *bool
	}

	DeletePostMsg struct {
		PostID   uuid.UUID
		AuthorID uuid.UUID
	}

	IncrementCommentCountMsg struct {
		PostID uuid.UUID
	}

	GetDashboardStatsMsg struct {
		AuthorID uuid.UUID
	}

	loadPostsFromDBMsg struct{}
)

// MonthCount is one bucket of the dashboard posts-per-month series.
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// DashboardStats summarizes one author's posts for the dashboard charts.
type DashboardStats struct {
	TotalPosts    int          `json:"totalPosts"`
	Published     int          `json:"published"`
	Drafts        int          `json:"drafts"`
	TotalComments int          `json:"totalComments"`
	PostsPerMonth []MonthCount `json:"postsPerMonth"`
}

// PostActor owns the post collection: CRUD, publish/draft state and the
// per-author dashboard aggregates.
type PostActor struct {
	postsByID map[uuid.UUID]*models.Post
	db        database.Adapter
	metrics   *utils.MetricsCollector
}

func NewPostActor(db database.Adapter, metrics *utils.MetricsCollector) actor.Actor {
	return &PostActor{
		postsByID: make(map[uuid.UUID]*models.Post),
		db:        db,
		metrics:   metrics,
	}
}

func (a *PostActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		context.Send(context.Self(), &loadPostsFromDBMsg{})

	case *loadPostsFromDBMsg:
		a.handleLoadPosts()

	case *CreatePostMsg:
		a.handleCreatePost(context, msg)

	case *GetPostMsg:
		if post, exists := a.postsByID[msg.PostID]; exists {
			context.Respond(post)
		} else {
			context.Respond(utils.NewPostNotFoundError(msg.PostID.String()))
		}

	case *ListPostsMsg:
		context.Respond(a.listPosts(msg))

	case *UpdatePostMsg:
		a.handleUpdatePost(context, msg)

	case *DeletePostMsg:
		a.handleDeletePost(context, msg)

	case *IncrementCommentCountMsg:
		a.handleIncrementCommentCount(msg)

	case *GetDashboardStatsMsg:
		context.Respond(a.dashboardStats(msg.AuthorID))

	case *GetCountsMsg:
		context.Respond(len(a.postsByID))

	default:
		log.Printf("PostActor: Unknown message type %T", msg)
	}
}

func (a *PostActor) handleLoadPosts() {
	ctx := stdctx.Background()
	posts, err := a.db.GetAllPosts(ctx)
	if err != nil {
		log.Printf("PostActor: failed to load posts: %v", err)
		return
	}
	for _, post := range posts {
		a.postsByID[post.ID] = post
	}
	log.Printf("PostActor: loaded %d posts into cache.", len(posts))
}

func (a *PostActor) handleCreatePost(context actor.Context, msg *CreatePostMsg) {
	startTime := time.Now()

	if strings.TrimSpace(msg.Title) == "" || strings.TrimSpace(msg.Content) == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Title and content are required", nil))
		return
	}

	now := time.Now()
	newPost := &models.Post{
		ID:             uuid.New(),
		Title:          msg.Title,
		Content:        msg.Content,
		ImageURL:       msg.ImageURL,
		AuthorID:       msg.AuthorID,
		AuthorUsername: msg.AuthorUsername,
		Published:      msg.Published,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := a.db.SavePost(stdctx.Background(), newPost); err != nil {
		log.Printf("PostActor: failed to persist post %s: %v", newPost.ID, err)
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save post", err))
		return
	}

	a.postsByID[newPost.ID] = newPost
	a.metrics.AddOperationLatency("create_post", time.Since(startTime))
	context.Respond(newPost)
}

func (a *PostActor) listPosts(msg *ListPostsMsg) []*models.Post {
	posts := make([]*models.Post, 0, len(a.postsByID))
	for _, post := range a.postsByID {
		if msg.PublishedOnly && !post.Published {
			continue
		}
		if msg.AuthorID != uuid.Nil && post.AuthorID != msg.AuthorID {
			continue
		}
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}

func (a *PostActor) handleUpdatePost(context actor.Context, msg *UpdatePostMsg) {
	post, exists := a.postsByID[msg.PostID]
	if !exists {
		context.Respond(utils.NewPostNotFoundError(msg.PostID.String()))
		return
	}
	if post.AuthorID != msg.AuthorID {
		context.Respond(utils.NewAppError(utils.ErrForbidden, "Only the author can edit a post", nil))
		return
	}

	if strings.TrimSpace(msg.Title) != "" {
		post.Title = msg.Title
	}
	if strings.TrimSpace(msg.Content) != "" {
		post.Content = msg.Content
	}
	if msg.ImageURL != "" {
		post.ImageURL = msg.ImageURL
	}
	if msg.Published != nil {
		post.Published = *msg.Published
	}
	post.UpdatedAt = time.Now()

	if err := a.db.SavePost(stdctx.Background(), post); err != nil {
		log.Printf("PostActor: failed to persist update for post %s: %v", post.ID, err)
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save post", err))
		return
	}
	context.Respond(post)
}

func (a *PostActor) handleDeletePost(context actor.Context, msg *DeletePostMsg) {
	post, exists := a.postsByID[msg.PostID]
	if !exists {
		context.Respond(utils.NewPostNotFoundError(msg.PostID.String()))
		return
	}
	if post.AuthorID != msg.AuthorID {
		context.Respond(utils.NewAppError(utils.ErrForbidden, "Only the author can delete a post", nil))
		return
	}

	if err := a.db.DeletePost(stdctx.Background(), msg.PostID); err != nil {
		log.Printf("PostActor: failed to delete post %s: %v", msg.PostID, err)
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to delete post", err))
		return
	}

	delete(a.postsByID, msg.PostID)
	context.Respond(true)
}

func (a *PostActor) handleIncrementCommentCount(msg *IncrementCommentCountMsg) {
	post, exists := a.postsByID[msg.PostID]
	if !exists {
		return
	}
	post.CommentCount++
	if err := a.db.SavePost(stdctx.Background(), post); err != nil {
		// The count is advisory; the comment itself is already durable.
		log.Printf("PostActor: failed to persist comment count for post %s: %v", post.ID, err)
	}
}

func (a *PostActor) dashboardStats(authorID uuid.UUID) *DashboardStats {
	stats := &DashboardStats{}
	buckets := make(map[string]int)

	for _, post := range a.postsByID {
		if post.AuthorID != authorID {
			continue
		}
		stats.TotalPosts++
		if post.Published {
			stats.Published++
		} else {
			stats.Drafts++
		}
		stats.TotalComments += post.CommentCount
		buckets[post.CreatedAt.Format("2006-01")]++
	}

	months := make([]string, 0, len(buckets))
	for month := range buckets {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		stats.PostsPerMonth = append(stats.PostsPerMonth, MonthCount{Month: month, Count: buckets[month]})
	}
	return stats
}
