package service

import (
	"context"
	"strings"

	"chatterbox/internal/models"
	"chatterbox/internal/repository"
)

const (
	// RecentPostLimit caps the home feed.
	RecentPostLimit = 50
	// ProfilePostLimit caps the recent-posts section on a profile page.
	ProfilePostLimit = 10

	maxSubjectLen = 200
)

// PostService implements post and comment operations of the content store.
type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
}

// NewPostService returns a PostService over the given repositories.
func NewPostService(postRepo repository.PostRepository, commentRepo repository.CommentRepository) *PostService {
	return &PostService{postRepo: postRepo, commentRepo: commentRepo}
}

// CreatePost validates and stores a new post for userID.
func (s *PostService) CreatePost(ctx context.Context, userID uint, subject, body string) (*models.Post, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)

	if subject == "" || body == "" {
		return nil, models.NewValidationError("Subject and body are required")
	}
	if len(subject) > maxSubjectLen {
		return nil, models.NewValidationError("Subject too long (max 200 characters)")
	}

	post := &models.Post{
		UserID:  userID,
		Subject: subject,
		Body:    body,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListRecentPosts returns the newest posts with their authors.
func (s *PostService) ListRecentPosts(ctx context.Context) ([]*models.Post, error) {
	return s.postRepo.ListRecent(ctx, RecentPostLimit)
}

// GetPost returns one post with its author, or NotFound.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// AddComment validates and stores a comment on postID. A missing post is a
// NotFound, not a silent no-op.
func (s *PostService) AddComment(ctx context.Context, postID, userID uint, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Post", postID)
	}

	comment := &models.Comment{
		PostID: postID,
		UserID: userID,
		Body:   body,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns a post's comments in chronological order.
func (s *PostService) ListComments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.commentRepo.ListByPost(ctx, postID)
}
