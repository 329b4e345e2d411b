package actors

import (
	"testing"
	"time"

	"whisply/internal/database"
	"whisply/internal/models"
	"whisply/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnPostActor(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(database.NewMemoryAdapter(), utils.NewMetricsCollector())
	})
	return system, system.Root.Spawn(props)
}

func request(t *testing.T, system *actor.ActorSystem, pid *actor.PID, msg interface{}) interface{} {
	t.Helper()
	future := system.Root.RequestFuture(pid, msg, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	return result
}

func TestPostActorCreateAndGet(t *testing.T) {
	system, pid := spawnPostActor(t)
	authorID := uuid.New()

	result := request(t, system, pid, &CreatePostMsg{
		Title:          "Hello world",
		Content:        "First post",
		AuthorID:       authorID,
		AuthorUsername: "alice",
		Published:      true,
	})

	post, ok := result.(*models.Post)
	require.True(t, ok, "expected a post, got %T", result)
	assert.Equal(t, "Hello world", post.Title)
	assert.Equal(t, "alice", post.AuthorUsername)
	assert.True(t, post.Published)
	assert.NotEqual(t, uuid.Nil, post.ID)

	result = request(t, system, pid, &GetPostMsg{PostID: post.ID})
	fetched, ok := result.(*models.Post)
	require.True(t, ok)
	assert.Equal(t, post.ID, fetched.ID)
}

func TestPostActorRejectsEmptyFields(t *testing.T) {
	system, pid := spawnPostActor(t)

	result := request(t, system, pid, &CreatePostMsg{Title: "  ", Content: "body", AuthorID: uuid.New()})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)
}

func TestPostActorGetMissingPost(t *testing.T) {
	system, pid := spawnPostActor(t)

	result := request(t, system, pid, &GetPostMsg{PostID: uuid.New()})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrPostNotFound, appErr.Code)
}

func TestPostActorListFiltersDrafts(t *testing.T) {
	system, pid := spawnPostActor(t)
	authorID := uuid.New()

	request(t, system, pid, &CreatePostMsg{Title: "Published", Content: "x", AuthorID: authorID, Published: true})
	request(t, system, pid, &CreatePostMsg{Title: "Draft", Content: "x", AuthorID: authorID, Published: false})

	result := request(t, system, pid, &ListPostsMsg{PublishedOnly: true})
	posts, ok := result.([]*models.Post)
	require.True(t, ok)
	require.Len(t, posts, 1)
	assert.Equal(t, "Published", posts[0].Title)

	result = request(t, system, pid, &ListPostsMsg{AuthorID: authorID})
	posts = result.([]*models.Post)
	assert.Len(t, posts, 2, "author listing includes drafts")
}

func TestPostActorUpdateOnlyByAuthor(t *testing.T) {
	system, pid := spawnPostActor(t)
	authorID := uuid.New()

	created := request(t, system, pid, &CreatePostMsg{Title: "Original", Content: "x", AuthorID: authorID}).(*models.Post)

	result := request(t, system, pid, &UpdatePostMsg{
		PostID:   created.ID,
		AuthorID: uuid.New(),
		Title:    "Hijacked",
	})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrForbidden, appErr.Code)

	published := true
	result = request(t, system, pid, &UpdatePostMsg{
		PostID:    created.ID,
		AuthorID:  authorID,
		Title:     "Edited",
		Published: &published,
	})
	updated, ok := result.(*models.Post)
	require.True(t, ok)
	assert.Equal(t, "Edited", updated.Title)
	assert.True(t, updated.Published)
	assert.Equal(t, "x", updated.Content, "empty fields in the update leave the value alone")
}

func TestPostActorDelete(t *testing.T) {
	system, pid := spawnPostActor(t)
	authorID := uuid.New()

	created := request(t, system, pid, &CreatePostMsg{Title: "Doomed", Content: "x", AuthorID: authorID}).(*models.Post)

	result := request(t, system, pid, &DeletePostMsg{PostID: created.ID, AuthorID: uuid.New()})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrForbidden, appErr.Code)

	result = request(t, system, pid, &DeletePostMsg{PostID: created.ID, AuthorID: authorID})
	assert.Equal(t, true, result)

	result = request(t, system, pid, &GetPostMsg{PostID: created.ID})
	_, ok = result.(*utils.AppError)
	assert.True(t, ok)
}

func TestPostActorDashboardStats(t *testing.T) {
	system, pid := spawnPostActor(t)
	authorID := uuid.New()

	request(t, system, pid, &CreatePostMsg{Title: "One", Content: "x", AuthorID: authorID, Published: true})
	request(t, system, pid, &CreatePostMsg{Title: "Two", Content: "x", AuthorID: authorID, Published: false})
	request(t, system, pid, &CreatePostMsg{Title: "Other", Content: "x", AuthorID: uuid.New(), Published: true})

	result := request(t, system, pid, &GetDashboardStatsMsg{AuthorID: authorID})
	stats, ok := result.(*DashboardStats)
	require.True(t, ok)
	assert.Equal(t, 2, stats.TotalPosts)
	assert.Equal(t, 1, stats.Published)
	assert.Equal(t, 1, stats.Drafts)
	require.Len(t, stats.PostsPerMonth, 1)
	assert.Equal(t, time.Now().Format("2006-01"), stats.PostsPerMonth[0].Month)
	assert.Equal(t, 2, stats.PostsPerMonth[0].Count)
}
