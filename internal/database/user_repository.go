package database

import (
	"context"
	"fmt"
	"time"

	"whisply/internal/models"
	"whisply/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserDocument represents user data in MongoDB
type UserDocument struct {
	ID               string     `bson:"_id"`
	Username         string     `bson:"username"`
	Email            string     `bson:"email"`
	HashedPassword   string     `bson:"passwordHash"`
	ResetToken       *string    `bson:"resetToken,omitempty"`
	ResetTokenExpiry *time.Time `bson:"resetTokenExpiry,omitempty"`
	CreatedAt        time.Time  `bson:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt"`
}

func userDocumentFromModel(user *models.User) *UserDocument {
	return &UserDocument{
		ID:               user.ID.String(),
		Username:         user.Username,
		Email:            user.Email,
		HashedPassword:   user.HashedPassword,
		ResetToken:       user.ResetToken,
		ResetTokenExpiry: user.ResetTokenExpiry,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
}

func (doc *UserDocument) toModel() (*models.User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in document: %v", err)
	}
	return &models.User{
		ID:               id,
		Username:         doc.Username,
		Email:            doc.Email,
		HashedPassword:   doc.HashedPassword,
		ResetToken:       doc.ResetToken,
		ResetTokenExpiry: doc.ResetTokenExpiry,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}, nil
}

// SaveUser creates or updates a user in MongoDB
func (m *MongoDB) SaveUser(ctx context.Context, user *models.User) error {
	doc := userDocumentFromModel(user)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	if _, err := m.Users.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save user: %v", err)
	}
	return nil
}

// GetUser retrieves a user by ID
func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %v", err)
	}
	return doc.toModel()
}

// GetUserByEmail retrieves a user by email address
func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewUserNotFoundError(email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %v", err)
	}
	return doc.toModel()
}

// GetUserByResetToken retrieves a user holding a live password-reset token
func (m *MongoDB) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	var doc UserDocument
	filter := bson.M{
		"resetToken":       token,
		"resetTokenExpiry": bson.M{"$gt": time.Now()},
	}
	err := m.Users.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewAppError(utils.ErrExpiredResetToken, "Invalid or expired token", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by reset token: %v", err)
	}
	return doc.toModel()
}
