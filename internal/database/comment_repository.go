package database

import (
	"context"
	"fmt"
	"time"

	"whisply/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CommentDocument represents comment data in MongoDB
type CommentDocument struct {
	ID        string    `bson:"_id"`
	PostID    string    `bson:"postId"`
	Text      string    `bson:"text"`
	Author    string    `bson:"author"`
	Seq       int64     `bson:"seq"`
	CreatedAt time.Time `bson:"createdAt"`
}

func commentDocumentFromModel(comment *models.Comment) *CommentDocument {
	return &CommentDocument{
		ID:        comment.ID.String(),
		PostID:    comment.PostID.String(),
		Text:      comment.Text,
		Author:    comment.Author,
		Seq:       comment.Seq,
		CreatedAt: comment.CreatedAt,
	}
}

func (doc *CommentDocument) toModel() (*models.Comment, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid comment ID in document: %v", err)
	}
	postID, err := uuid.Parse(doc.PostID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID in document: %v", err)
	}
	return &models.Comment{
		ID:        id,
		PostID:    postID,
		Text:      doc.Text,
		Author:    doc.Author,
		Seq:       doc.Seq,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// SaveComment appends a comment to the durable log. Upsert keyed by ID
// keeps the write idempotent against network retries.
func (m *MongoDB) SaveComment(ctx context.Context, comment *models.Comment) error {
	doc := commentDocumentFromModel(comment)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	if _, err := m.Comments.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save comment: %v", err)
	}
	return nil
}

// GetPostComments retrieves a post's comment log in append (seq) order
func (m *MongoDB) GetPostComments(ctx context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := m.Comments.Find(ctx, bson.M{"postId": postID.String()}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get post comments: %v", err)
	}
	defer cursor.Close(ctx)

	var comments []*models.Comment
	for cursor.Next(ctx) {
		var doc CommentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode comment: %v", err)
		}
		comment, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, cursor.Err()
}

// GetAllComments retrieves every comment, used to warm the comment actor
// cache at startup
func (m *MongoDB) GetAllComments(ctx context.Context) ([]*models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := m.Comments.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %v", err)
	}
	defer cursor.Close(ctx)

	var comments []*models.Comment
	for cursor.Next(ctx) {
		var doc CommentDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode comment: %v", err)
		}
		comment, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, cursor.Err()
}
