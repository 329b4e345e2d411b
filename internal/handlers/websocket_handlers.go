package handlers

import (
	"log"
	"net/http"

	"whisply/internal/engine/actors"
	"whisply/internal/realtime"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: check the Origin header against config.AllowedOrigins
		return true
	},
}

// HandleWebSocket handles realtime connection requests. A client joins
// the room of the post it is viewing; the post must exist.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postIDStr := r.URL.Query().Get("postId")
		if postIDStr == "" {
			http.Error(w, "postId query parameter required", http.StatusBadRequest)
			return
		}

		postID, err := uuid.Parse(postIDStr)
		if err != nil {
			http.Error(w, "Invalid post ID format", http.StatusBadRequest)
			return
		}

		// The room key is only handed out for posts that exist.
		result, err := s.request(s.Engine.GetPostActor(), &actors.GetPostMsg{PostID: postID})
		if err != nil {
			http.Error(w, "Failed to look up post", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Realtime upgrade failed for room %s: %v", postID, err)
			// Cannot write an HTTP error after an upgrade attempt.
			return
		}

		client := &realtime.Client{
			Hub:    s.Hub,
			PostID: postID.String(),
			Conn:   conn,
			Send:   make(chan []byte, 256),
		}
		client.Hub.Register <- client

		log.Printf("Realtime client joined room %s", postID)

		go client.WritePump()
		go client.ReadPump()
	}
}
