package actors

import (
	stdctx "context"
	"log"
	"strings"
	"time"

	"whisply/internal/cache"
	"whisply/internal/database"
	"whisply/internal/models"
	"whisply/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for CommentActor
type (
	CreateCommentMsg struct {
		PostID uuid.UUID `json:"postId"`
		Text   string    `json:"text"`
		Author string    `json:"author"`
	}

	GetCommentsForPostMsg struct {
		PostID uuid.UUID `json:"postId"`
	}

	GetCommentCountMsg struct {
		PostID uuid.UUID `json:"postId"`
	}

	loadCommentsFromDBMsg struct{}
)

// CommentActor owns the append-only comment log of every post. It
// assigns ids and per-post sequence numbers, so persistence is the
// single source of truth for log order. Broadcast happens after the
// actor confirms the write.
type CommentActor struct {
	comments     map[uuid.UUID]*models.Comment
	postComments map[uuid.UUID][]uuid.UUID
	nextSeq      map[uuid.UUID]int64
	postActor    *actor.PID
	db           database.Adapter
	cache        *cache.CommentCache // nil when the cache is disabled
}

func NewCommentActor(postActor *actor.PID, db database.Adapter, commentCache *cache.CommentCache) actor.Actor {
	return &CommentActor{
		comments:     make(map[uuid.UUID]*models.Comment),
		postComments: make(map[uuid.UUID][]uuid.UUID),
		nextSeq:      make(map[uuid.UUID]int64),
		postActor:    postActor,
		db:           db,
		cache:        commentCache,
	}
}

func (a *CommentActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("CommentActor started with PID: %v", context.Self())
		context.Send(context.Self(), &loadCommentsFromDBMsg{})

	case *loadCommentsFromDBMsg:
		a.handleLoadComments()

	case *CreateCommentMsg:
		a.handleCreateComment(context, msg)

	case *GetCommentsForPostMsg:
		a.handleGetPostComments(context, msg)

	case *GetCommentCountMsg:
		context.Respond(len(a.postComments[msg.PostID]))

	case *GetCountsMsg:
		context.Respond(len(a.comments))

	default:
		log.Printf("CommentActor: Unknown message type %T", msg)
	}
}

func (a *CommentActor) handleLoadComments() {
	log.Println("CommentActor: Loading initial comments from database...")
	ctx := stdctx.Background()

	comments, err := a.db.GetAllComments(ctx)
	if err != nil {
		log.Printf("CommentActor: CRITICAL - Failed to load initial comments: %v", err)
		return
	}

	for _, comment := range comments {
		a.comments[comment.ID] = comment
		a.postComments[comment.PostID] = append(a.postComments[comment.PostID], comment.ID)
		if comment.Seq > a.nextSeq[comment.PostID] {
			a.nextSeq[comment.PostID] = comment.Seq
		}
	}

	log.Printf("CommentActor: Finished loading %d comments into cache.", len(comments))
}

func (a *CommentActor) handleCreateComment(context actor.Context, msg *CreateCommentMsg) {
	if strings.TrimSpace(msg.Text) == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Comment text is required", nil))
		return
	}

	ctx := stdctx.Background()

	// The comment subsystem only reads the post store to confirm the
	// post exists before appending to its log.
	if _, err := a.db.GetPost(ctx, msg.PostID); err != nil {
		log.Printf("CommentActor: rejecting comment for missing post %s", msg.PostID)
		context.Respond(utils.NewPostNotFoundError(msg.PostID.String()))
		return
	}

	author := msg.Author
	if strings.TrimSpace(author) == "" {
		author = "Anonymous"
	}

	a.nextSeq[msg.PostID]++
	comment := &models.Comment{
		ID:        uuid.New(),
		PostID:    msg.PostID,
		Text:      msg.Text,
		Author:    author,
		Seq:       a.nextSeq[msg.PostID],
		CreatedAt: time.Now(),
	}

	if err := a.db.SaveComment(ctx, comment); err != nil {
		log.Printf("CommentActor: failed to persist comment %s: %v", comment.ID, err)
		a.nextSeq[msg.PostID]--
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save comment", err))
		return
	}

	a.comments[comment.ID] = comment
	a.postComments[msg.PostID] = append(a.postComments[msg.PostID], comment.ID)

	if a.cache != nil {
		if err := a.cache.PushComment(ctx, comment); err != nil {
			log.Printf("CommentActor: cache push failed for comment %s: %v", comment.ID, err)
		}
	}

	context.Send(a.postActor, &IncrementCommentCountMsg{PostID: msg.PostID})
	context.Respond(comment)
}

func (a *CommentActor) handleGetPostComments(context actor.Context, msg *GetCommentsForPostMsg) {
	ids := a.postComments[msg.PostID]
	comments := make([]*models.Comment, 0, len(ids))
	for _, id := range ids {
		if comment, ok := a.comments[id]; ok {
			comments = append(comments, comment)
		}
	}
	context.Respond(comments)
}
