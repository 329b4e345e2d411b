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

func spawnCommentActors(t *testing.T) (*actor.ActorSystem, *actor.PID, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	db := database.NewMemoryAdapter()

	postProps := actor.PropsFromProducer(func() actor.Actor {
		return NewPostActor(db, utils.NewMetricsCollector())
	})
	postPID := system.Root.Spawn(postProps)

	commentProps := actor.PropsFromProducer(func() actor.Actor {
		return NewCommentActor(postPID, db, nil)
	})
	commentPID := system.Root.Spawn(commentProps)

	return system, postPID, commentPID
}

func createTestPost(t *testing.T, system *actor.ActorSystem, postPID *actor.PID) *models.Post {
	t.Helper()
	result := request(t, system, postPID, &CreatePostMsg{
		Title:     "A post",
		Content:   "with comments",
		AuthorID:  uuid.New(),
		Published: true,
	})
	post, ok := result.(*models.Post)
	require.True(t, ok, "expected a post, got %T", result)
	return post
}

func TestCommentActorAssignsIDsAndSequence(t *testing.T) {
	system, postPID, commentPID := spawnCommentActors(t)
	post := createTestPost(t, system, postPID)

	first := request(t, system, commentPID, &CreateCommentMsg{
		PostID: post.ID,
		Text:   "first!",
		Author: "alice",
	})
	c1, ok := first.(*models.Comment)
	require.True(t, ok, "expected a comment, got %T", first)
	assert.NotEqual(t, uuid.Nil, c1.ID)
	assert.Equal(t, int64(1), c1.Seq)
	assert.Equal(t, "alice", c1.Author)

	second := request(t, system, commentPID, &CreateCommentMsg{
		PostID: post.ID,
		Text:   "second",
		Author: "bob",
	})
	c2 := second.(*models.Comment)
	assert.Equal(t, int64(2), c2.Seq)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestCommentActorReplaysInAppendOrder(t *testing.T) {
	system, postPID, commentPID := spawnCommentActors(t)
	post := createTestPost(t, system, postPID)

	texts := []string{"one", "two", "three"}
	for _, text := range texts {
		request(t, system, commentPID, &CreateCommentMsg{PostID: post.ID, Text: text, Author: "alice"})
	}

	result := request(t, system, commentPID, &GetCommentsForPostMsg{PostID: post.ID})
	comments, ok := result.([]*models.Comment)
	require.True(t, ok)
	require.Len(t, comments, 3)
	for i, comment := range comments {
		assert.Equal(t, texts[i], comment.Text)
		assert.Equal(t, int64(i+1), comment.Seq)
	}
}

func TestCommentActorRejectsEmptyText(t *testing.T) {
	system, postPID, commentPID := spawnCommentActors(t)
	post := createTestPost(t, system, postPID)

	result := request(t, system, commentPID, &CreateCommentMsg{PostID: post.ID, Text: "   \n\t", Author: "alice"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrInvalidInput, appErr.Code)

	result = request(t, system, commentPID, &GetCommentsForPostMsg{PostID: post.ID})
	assert.Empty(t, result.([]*models.Comment))
}

func TestCommentActorRejectsMissingPost(t *testing.T) {
	system, _, commentPID := spawnCommentActors(t)

	result := request(t, system, commentPID, &CreateCommentMsg{PostID: uuid.New(), Text: "orphan", Author: "alice"})
	appErr, ok := result.(*utils.AppError)
	require.True(t, ok)
	assert.Equal(t, utils.ErrPostNotFound, appErr.Code)
}

func TestCommentActorDefaultsAnonymousAuthor(t *testing.T) {
	system, postPID, commentPID := spawnCommentActors(t)
	post := createTestPost(t, system, postPID)

	result := request(t, system, commentPID, &CreateCommentMsg{PostID: post.ID, Text: "no name given"})
	comment := result.(*models.Comment)
	assert.Equal(t, "Anonymous", comment.Author)
}

func TestCommentActorBumpsPostCommentCount(t *testing.T) {
	system, postPID, commentPID := spawnCommentActors(t)
	post := createTestPost(t, system, postPID)

	request(t, system, commentPID, &CreateCommentMsg{PostID: post.ID, Text: "counted", Author: "alice"})

	// The count update is a fire-and-forget message to the post actor.
	assert.Eventually(t, func() bool {
		result := request(t, system, postPID, &GetPostMsg{PostID: post.ID})
		fetched, ok := result.(*models.Post)
		return ok && fetched.CommentCount == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCommentActorCountMessages(t *testing.T) {
	system, postPID, commentPID := spawnCommentActors(t)
	post := createTestPost(t, system, postPID)

	request(t, system, commentPID, &CreateCommentMsg{PostID: post.ID, Text: "a", Author: "x"})
	request(t, system, commentPID, &CreateCommentMsg{PostID: post.ID, Text: "b", Author: "x"})

	assert.Equal(t, 2, request(t, system, commentPID, &GetCommentCountMsg{PostID: post.ID}))
	assert.Equal(t, 2, request(t, system, commentPID, &GetCountsMsg{}))
}
