package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"whisply/internal/cache"
	"whisply/internal/engine"
	"whisply/internal/realtime"
	"whisply/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Hub            *realtime.Hub
	Metrics        *utils.MetricsCollector
	CommentCache   *cache.CommentCache // nil when the cache is disabled
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	hub *realtime.Hub,
	metrics *utils.MetricsCollector,
	commentCache *cache.CommentCache,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Hub:            hub,
		Metrics:        metrics,
		CommentCache:   commentCache,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// request sends a message to an actor and waits for the response.
func (s *Server) request(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	return future.Result()
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("HTTP Handler: failed to encode response: %v", err)
	}
}

// respondIfAppError writes the error when the actor answered with an
// *AppError, and reports whether it did.
func (s *Server) respondIfAppError(w http.ResponseWriter, result interface{}) bool {
	if appErr, ok := result.(*utils.AppError); ok {
		s.Metrics.IncrementErrors()
		http.Error(w, appErr.Message, utils.AppErrorToHTTPStatus(appErr.Code))
		return true
	}
	return false
}
