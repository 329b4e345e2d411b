package handlers

import (
	"net/http"
	"time"

	"whisply/internal/engine/actors"
)

// HandleHealth handles health check requests
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postResult, err := s.request(s.Engine.GetPostActor(), &actors.GetCountsMsg{})
		if err != nil {
			http.Error(w, "Failed to get post count", http.StatusInternalServerError)
			return
		}
		postCount, _ := postResult.(int)

		commentResult, err := s.request(s.Engine.GetCommentActor(), &actors.GetCountsMsg{})
		if err != nil {
			http.Error(w, "Failed to get comment count", http.StatusInternalServerError)
			return
		}
		commentCount, _ := commentResult.(int)

		s.respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":        "healthy",
			"post_count":    postCount,
			"comment_count": commentCount,
			"active_rooms":  s.Hub.RoomCount(),
			"metrics":       s.Metrics.Snapshot(),
			"server_time":   time.Now(),
		})
	}
}
