package engine

import (
	"whisply/internal/cache"
	"whisply/internal/database"
	"whisply/internal/engine/actors"
	"whisply/internal/mail"
	"whisply/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Engine spawns and wires the application's actors.
type Engine struct {
	userSupervisor *actor.PID
	postActor      *actor.PID
	commentActor   *actor.PID
}

func NewEngine(
	system *actor.ActorSystem,
	db database.Adapter,
	commentCache *cache.CommentCache,
	mailer mail.Sender,
	frontendURL string,
	metrics *utils.MetricsCollector,
) *Engine {
	context := system.Root

	postProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewPostActor(db, metrics)
	})
	postPID := context.Spawn(postProps)

	// The comment actor notifies the post actor about new comments, so
	// it is spawned second.
	commentProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewCommentActor(postPID, db, commentCache)
	})
	commentPID := context.Spawn(commentProps)

	userProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserSupervisor(db, mailer, frontendURL)
	})
	userPID := context.Spawn(userProps)

	return &Engine{
		userSupervisor: userPID,
		postActor:      postPID,
		commentActor:   commentPID,
	}
}

// GetUserSupervisor returns the PID of the user supervisor
func (e *Engine) GetUserSupervisor() *actor.PID {
	return e.userSupervisor
}

// GetPostActor returns the PID of the post actor
func (e *Engine) GetPostActor() *actor.PID {
	return e.postActor
}

// GetCommentActor returns the PID of the comment actor
func (e *Engine) GetCommentActor() *actor.PID {
	return e.commentActor
}
