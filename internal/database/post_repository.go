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

// PostDocument represents post data in MongoDB
type PostDocument struct {
	ID             string    `bson:"_id"`
	Title          string    `bson:"title"`
	Content        string    `bson:"content"`
	ImageURL       string    `bson:"imageUrl,omitempty"`
	AuthorID       string    `bson:"authorId"`
	AuthorUsername string    `bson:"authorUsername"`
	Published      bool      `bson:"published"`
	CommentCount   int       `bson:"commentCount"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func postDocumentFromModel(post *models.Post) *PostDocument {
	return &PostDocument{
		ID:             post.ID.String(),
		Title:          post.Title,
		Content:        post.Content,
		ImageURL:       post.ImageURL,
		AuthorID:       post.AuthorID.String(),
		AuthorUsername: post.AuthorUsername,
		Published:      post.Published,
		CommentCount:   post.CommentCount,
		CreatedAt:      post.CreatedAt,
		UpdatedAt:      post.UpdatedAt,
	}
}

func (doc *PostDocument) toModel() (*models.Post, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID in document: %v", err)
	}
	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID in document: %v", err)
	}
	return &models.Post{
		ID:             id,
		Title:          doc.Title,
		Content:        doc.Content,
		ImageURL:       doc.ImageURL,
		AuthorID:       authorID,
		AuthorUsername: doc.AuthorUsername,
		Published:      doc.Published,
		CommentCount:   doc.CommentCount,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}

// SavePost creates or updates a post in MongoDB
func (m *MongoDB) SavePost(ctx context.Context, post *models.Post) error {
	doc := postDocumentFromModel(post)

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}

	if _, err := m.Posts.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to save post: %v", err)
	}
	return nil
}

// GetPost retrieves a post by ID
func (m *MongoDB) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var doc PostDocument
	err := m.Posts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, utils.NewPostNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %v", err)
	}
	return doc.toModel()
}

// GetAllPosts retrieves every post, newest first
func (m *MongoDB) GetAllPosts(ctx context.Context) ([]*models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.Posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %v", err)
	}
	defer cursor.Close(ctx)

	var posts []*models.Post
	for cursor.Next(ctx) {
		var doc PostDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode post: %v", err)
		}
		post, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, cursor.Err()
}

// DeletePost removes a post and its comment log
func (m *MongoDB) DeletePost(ctx context.Context, id uuid.UUID) error {
	res, err := m.Posts.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return fmt.Errorf("failed to delete post: %v", err)
	}
	if res.DeletedCount == 0 {
		return utils.NewPostNotFoundError(id.String())
	}
	if _, err := m.Comments.DeleteMany(ctx, bson.M{"postId": id.String()}); err != nil {
		return fmt.Errorf("failed to delete post comments: %v", err)
	}
	return nil
}
