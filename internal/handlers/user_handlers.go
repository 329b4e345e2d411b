package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"whisply/internal/engine/actors"
	"whisply/internal/middleware"
	"whisply/internal/types"

	"github.com/google/uuid"
)

// SignupRequest represents a request to register a new user
type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest represents a request to log in a user
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest carries the current and replacement password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// HandleSignup handles requests to register a new user
func (s *Server) HandleSignup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		if req.Username == "" || req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
			http.Error(w, "All fields are required", http.StatusBadRequest)
			return
		}
		if req.Password != req.ConfirmPassword {
			http.Error(w, "Passwords do not match", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetUserSupervisor(), &actors.RegisterUserMsg{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			http.Error(w, "Failed to register user", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusCreated, result)
	}
}

// HandleLogin handles requests to log in a user
func (s *Server) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}

		log.Printf("HTTP Handler: Received login request for email: %s", req.Email)

		result, err := s.request(s.Engine.GetUserSupervisor(), &actors.LoginMsg{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			log.Printf("HTTP Handler: Error getting login result: %v", err)
			http.Error(w, "Failed to process login", http.StatusInternalServerError)
			return
		}

		loginResp, ok := result.(*types.LoginResponse)
		if !ok {
			log.Printf("HTTP Handler: Invalid response type: %T", result)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !loginResp.Success {
			s.respondJSON(w, http.StatusUnauthorized, loginResp)
			return
		}

		userID, err := uuid.Parse(loginResp.UserID)
		if err != nil {
			log.Printf("HTTP Handler: Invalid user ID format: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		token, err := middleware.GenerateToken(userID)
		if err != nil {
			log.Printf("HTTP Handler: Failed to generate token: %v", err)
			http.Error(w, "Failed to generate auth token", http.StatusInternalServerError)
			return
		}
		loginResp.Token = token

		s.respondJSON(w, http.StatusOK, loginResp)
	}
}

// HandleMe returns the authenticated user's profile
func (s *Server) HandleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := s.request(s.Engine.GetUserSupervisor(), &actors.GetUserProfileMsg{UserID: userID})
		if err != nil {
			http.Error(w, "Failed to get user profile", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusOK, result)
	}
}

// HandleChangePassword swaps the authenticated user's password
func (s *Server) HandleChangePassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var req ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		if req.CurrentPassword == "" || req.NewPassword == "" {
			http.Error(w, "Current and new password are required", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetUserSupervisor(), &actors.ChangePasswordMsg{
			UserID:          userID,
			CurrentPassword: req.CurrentPassword,
			NewPassword:     req.NewPassword,
		})
		if err != nil {
			http.Error(w, "Failed to change password", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// HandleForgotPassword issues a password-reset token and mails it
func (s *Server) HandleForgotPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			http.Error(w, "Email is required", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetUserSupervisor(), &actors.ForgotPasswordMsg{Email: req.Email})
		if err != nil {
			http.Error(w, "Failed to process request", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset email sent"})
	}
}

// HandleResetPassword consumes a reset token from the URL path
func (s *Server) HandleResetPassword() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")
		if token == "" {
			http.Error(w, "Invalid token", http.StatusBadRequest)
			return
		}

		var req struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
			http.Error(w, "Password is required", http.StatusBadRequest)
			return
		}

		result, err := s.request(s.Engine.GetUserSupervisor(), &actors.ResetPasswordMsg{
			Token:       token,
			NewPassword: req.Password,
		})
		if err != nil {
			http.Error(w, "Failed to reset password", http.StatusInternalServerError)
			return
		}
		if s.respondIfAppError(w, result) {
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]string{"message": "Password reset successfully"})
	}
}
