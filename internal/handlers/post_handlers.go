package handlers

import (
	"encoding/json"
	"net/http"

	"whisply/internal/engine/actors"
	"whisply/internal/middleware"
	"whisply/internal/models"

	"github.com/google/uuid"
)

// CreatePostRequest represents a request to create a new post
type CreatePostRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl"`
	Published bool   `json:"published"`
}

// UpdatePostRequest represents a request to edit an existing post.
// Published is a pointer so "leave as is" and "set draft" are distinct.
type UpdatePostRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageUrl"`
	Published *bool  `json:"published"`
}

// authorUsername resolves the display name for the authenticated author.
func (s *Server) authorUsername(userID uuid.UUID) string {
	result, err := s.request(s.Engine.GetUserSupervisor(), &actors.GetUserProfileMsg{UserID: userID})
	if err != nil {
		return ""
	}
	if user, ok := result.(*models.User); ok {
		return user.Username
	}
	return ""
}

// HandleCreatePost handles requests to create a new post
func (s *Server) HandleCreatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req CreatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}

		if req.Title == "" || req.Content == "" {
			http.Error(w, "Title and content are required", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetPostActor(), &actors.CreatePostMsg{
			Title:          req.Title,
			Content:        req.Content,
			ImageURL:       req.ImageURL,
			AuthorID:       userID,
			AuthorUsername: s.authorUsername(userID),
			Published:      req.Published,
		})
		if err != nil {
			http.Error(w, "Failed to create post", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusCreated, result)
	}
}

// HandleListPosts returns all published posts, newest first
func (s *Server) HandleListPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := s.request(s.Engine.GetPostActor(), &actors.ListPostsMsg{PublishedOnly: true})
		if err != nil {
			http.Error(w, "Failed to list posts", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]interface{}{"posts": result})
	}
}

// HandleMyPosts returns all of the authenticated author's posts,
// drafts included
func (s *Server) HandleMyPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := s.request(s.Engine.GetPostActor(), &actors.ListPostsMsg{AuthorID: userID})
		if err != nil {
			http.Error(w, "Failed to list posts", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]interface{}{"posts": result})
	}
}

// HandleUpdatePost handles edits and publish/draft toggles
func (s *Server) HandleUpdatePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		postID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Invalid post ID format", http.StatusBadRequest)
			return
		}

		var req UpdatePostRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request format", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetPostActor(), &actors.UpdatePostMsg{
			PostID:    postID,
			AuthorID:  userID,
			Title:     req.Title,
			Content:   req.Content,
			ImageURL:  req.ImageURL,
			Published: req.Published,
		})
		if err != nil {
			http.Error(w, "Failed to update post", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusOK, result)
	}
}

// HandleDeletePost removes a post and its comment log
func (s *Server) HandleDeletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		postID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			http.Error(w, "Invalid post ID format", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetPostActor(), &actors.DeletePostMsg{
			PostID:   postID,
			AuthorID: userID,
		})
		if err != nil {
			http.Error(w, "Failed to delete post", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		if s.CommentCache != nil {
			if err := s.CommentCache.Invalidate(r.Context(), postID); err != nil {
				// Stale cache entries are harmless once the post is gone.
				s.Metrics.IncrementErrors()
			}
		}

		s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}
