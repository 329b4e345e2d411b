package actors

import (
	stdctx "context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"whisply/internal/database"
	"whisply/internal/mail"
	"whisply/internal/models"
	"whisply/internal/types"
	"whisply/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Message types for the user supervisor
type (
	RegisterUserMsg struct {
		Username string
		Email    string
		Password string
	}

	LoginMsg struct {
		Email    string
		Password string
	}

	GetUserProfileMsg struct {
		UserID uuid.UUID
	}

	ChangePasswordMsg struct {
		UserID          uuid.UUID
		CurrentPassword string
		NewPassword     string
	}

	ForgotPasswordMsg struct {
		Email string
	}

	ResetPasswordMsg struct {
		Token       string
		NewPassword string
	}
)

const resetTokenTTL = time.Hour

// UserSupervisor handles account lifecycle: registration, login and the
// password-reset flow. All state lives in the database adapter.
type UserSupervisor struct {
	db          database.Adapter
	mailer      mail.Sender
	frontendURL string
}

func NewUserSupervisor(db database.Adapter, mailer mail.Sender, frontendURL string) actor.Actor {
	return &UserSupervisor{
		db:          db,
		mailer:      mailer,
		frontendURL: frontendURL,
	}
}

func (s *UserSupervisor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *RegisterUserMsg:
		s.handleRegister(context, msg)

	case *LoginMsg:
		s.handleLogin(context, msg)

	case *GetUserProfileMsg:
		s.handleGetProfile(context, msg)

	case *ChangePasswordMsg:
		s.handleChangePassword(context, msg)

	case *ForgotPasswordMsg:
		s.handleForgotPassword(context, msg)

	case *ResetPasswordMsg:
		s.handleResetPassword(context, msg)

	default:
		if _, ok := msg.(*actor.Started); !ok {
			log.Printf("UserSupervisor: Unknown message type %T", msg)
		}
	}
}

func (s *UserSupervisor) handleRegister(context actor.Context, msg *RegisterUserMsg) {
	if msg.Username == "" || msg.Email == "" || msg.Password == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Username, email and password are required", nil))
		return
	}

	ctx := stdctx.Background()
	email := strings.ToLower(msg.Email)

	if _, err := s.db.GetUserByEmail(ctx, email); err == nil {
		context.Respond(utils.NewAppError(utils.ErrUserAlreadyExists, "Email already registered", nil))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(msg.Password), bcrypt.DefaultCost)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Failed to hash password", err))
		return
	}

	now := time.Now()
	user := &models.User{
		ID:             uuid.New(),
		Username:       msg.Username,
		Email:          email,
		HashedPassword: string(hashed),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.db.SaveUser(ctx, user); err != nil {
		log.Printf("UserSupervisor: failed to persist user %s: %v", user.ID, err)
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save user", err))
		return
	}

	log.Printf("UserSupervisor: registered user %s (%s)", user.Username, user.ID)
	context.Respond(user)
}

func (s *UserSupervisor) handleLogin(context actor.Context, msg *LoginMsg) {
	ctx := stdctx.Background()

	user, err := s.db.GetUserByEmail(ctx, strings.ToLower(msg.Email))
	if err != nil {
		context.Respond(&types.LoginResponse{Success: false, Error: "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(msg.Password)); err != nil {
		context.Respond(&types.LoginResponse{Success: false, Error: "Invalid credentials"})
		return
	}

	context.Respond(&types.LoginResponse{
		Success:  true,
		UserID:   user.ID.String(),
		Username: user.Username,
	})
}

func (s *UserSupervisor) handleGetProfile(context actor.Context, msg *GetUserProfileMsg) {
	user, err := s.db.GetUser(stdctx.Background(), msg.UserID)
	if err != nil {
		context.Respond(utils.NewUserNotFoundError(msg.UserID.String()))
		return
	}
	context.Respond(user)
}

func (s *UserSupervisor) handleChangePassword(context actor.Context, msg *ChangePasswordMsg) {
	ctx := stdctx.Background()

	user, err := s.db.GetUser(ctx, msg.UserID)
	if err != nil {
		context.Respond(utils.NewUserNotFoundError(msg.UserID.String()))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(msg.CurrentPassword)); err != nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidCredentials, "Current password incorrect", nil))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(msg.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Failed to hash password", err))
		return
	}

	user.HashedPassword = string(hashed)
	user.UpdatedAt = time.Now()
	if err := s.db.SaveUser(ctx, user); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save user", err))
		return
	}
	context.Respond(true)
}

func (s *UserSupervisor) handleForgotPassword(context actor.Context, msg *ForgotPasswordMsg) {
	ctx := stdctx.Background()

	user, err := s.db.GetUserByEmail(ctx, strings.ToLower(msg.Email))
	if err != nil {
		context.Respond(utils.NewUserNotFoundError(msg.Email))
		return
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to generate reset token", err))
		return
	}
	token := hex.EncodeToString(buf)
	expiry := time.Now().Add(resetTokenTTL)

	user.ResetToken = &token
	user.ResetTokenExpiry = &expiry
	user.UpdatedAt = time.Now()
	if err := s.db.SaveUser(ctx, user); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save reset token", err))
		return
	}

	resetURL := fmt.Sprintf("%s/reset/%s", s.frontendURL, token)
	if err := s.mailer.Send(user.Email, "Reset Your Password", mail.PasswordResetBody(resetURL)); err != nil {
		log.Printf("UserSupervisor: failed to send reset mail to %s: %v", user.Email, err)
		context.Respond(utils.NewAppError(utils.ErrMailer, "Failed to send reset email", err))
		return
	}

	context.Respond(true)
}

func (s *UserSupervisor) handleResetPassword(context actor.Context, msg *ResetPasswordMsg) {
	ctx := stdctx.Background()

	if msg.Token == "" || msg.NewPassword == "" {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Token and password are required", nil))
		return
	}

	user, err := s.db.GetUserByResetToken(ctx, msg.Token)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrExpiredResetToken, "Invalid or expired token", err))
		return
	}

	// Expiry is enforced by the adapter query for SQL backends; check
	// again here so the memory adapter behaves the same.
	if user.ResetTokenExpiry == nil || user.ResetTokenExpiry.Before(time.Now()) {
		context.Respond(utils.NewAppError(utils.ErrExpiredResetToken, "Invalid or expired token", nil))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(msg.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		context.Respond(utils.NewAppError(utils.ErrInvalidInput, "Failed to hash password", err))
		return
	}

	user.HashedPassword = string(hashed)
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
	user.UpdatedAt = time.Now()
	if err := s.db.SaveUser(ctx, user); err != nil {
		context.Respond(utils.NewAppError(utils.ErrDatabase, "Failed to save user", err))
		return
	}

	context.Respond(true)
}
