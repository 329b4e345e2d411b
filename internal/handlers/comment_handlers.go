package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"whisply/internal/engine/actors"
	"whisply/internal/models"

	"github.com/google/uuid"
)

// CreateCommentRequest represents a request to append a comment to a
// post's log. Author is a client-supplied display name.
type CreateCommentRequest struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

// PostWithCommentsResponse is the post-view payload: the post plus its
// full comment log in append order.
type PostWithCommentsResponse struct {
	Post     *models.Post      `json:"post"`
	Comments []*models.Comment `json:"comments"`
}

// HandleGetPost serves the post-detail view: post plus historical
// comments, replayed in stored order.
func (s *Server) HandleGetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.Metrics.IncrementRequests()

		postID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Invalid post ID format", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetPostActor(), &actors.GetPostMsg{PostID: postID})
		if err != nil {
			http.Error(w, "Failed to get post", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		post, ok := result.(*models.Post)
		if !ok {
			http.Error(w, "Invalid response type", http.StatusInternalServerError)
			return
		}

		comments, err := s.loadComments(r, post)
		if err != nil {
			http.Error(w, "Failed to get comments", http.StatusInternalServerError)
			return
		}

		s.Metrics.AddOperationLatency("get_post_view", time.Since(start))
		s.respondJSON(w, http.StatusOK, PostWithCommentsResponse{
			Post:     post,
			Comments: comments,
		})
	}
}

// loadComments reads the comment log cache-first. The cache holds only
// the tail of long logs, so it is authoritative only when it covers the
// whole log; otherwise the comment actor serves it.
func (s *Server) loadComments(r *http.Request, post *models.Post) ([]*models.Comment, error) {
	if s.CommentCache != nil {
		cached, err := s.CommentCache.ListComments(r.Context(), post.ID)
		if err != nil {
			log.Printf("HTTP Handler: comment cache read failed for post %s: %v", post.ID, err)
		} else if len(cached) > 0 && len(cached) >= post.CommentCount {
			return cached, nil
		}
	}

	result, err := s.request(s.Engine.GetCommentActor(), &actors.GetCommentsForPostMsg{PostID: post.ID})
	if err != nil {
		return nil, err
	}
	comments, ok := result.([]*models.Comment)
	if !ok {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// HandleCreateComment appends a comment to a post's durable log. The
// response carries the server-assigned id and sequence number; the
// submitting client broadcasts that confirmed record to the room, so
// persistence and relay share one source of truth.
func (s *Server) HandleCreateComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.Metrics.IncrementRequests()

		postID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Invalid post ID format", http.StatusBadRequest)
			return
		}

		var req CreateCommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetCommentActor(), &actors.CreateCommentMsg{
			PostID: postID,
			Text:   req.Text,
			Author: req.Author,
		})
		if err != nil {
			http.Error(w, "Failed to create comment", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.Metrics.AddOperationLatency("create_comment", time.Since(start))
		s.respondJSON(w, http.StatusCreated, result)
	}
}
