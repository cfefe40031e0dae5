package service

import (
	"context"
	"strings"

	"chatterbox/internal/models"
	"chatterbox/internal/repository"
)

// UserService implements profile viewing and editing.
type UserService struct {
	userRepo repository.UserRepository
}

// UpdateProfileInput carries the profile-edit form fields. Avatar is a
// served file reference produced by AvatarService; empty means unchanged.
type UpdateProfileInput struct {
	UserID   uint
	Nickname string
	About    string
	Avatar   string
}

// NewUserService returns a UserService over the given repository.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// ListUsers returns all users ordered by username.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userRepo.List(ctx)
}

// GetUserByID returns one user or NotFound.
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns a user together with their most recent posts.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByIDWithPosts(ctx, id, ProfilePostLimit)
}

// SetAvatar attaches an avatar reference to an account, as produced by
// AvatarService. Used for uploads that arrive with the registration form.
func (s *UserService) SetAvatar(ctx context.Context, userID uint, ref string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Avatar = ref
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile persists nickname/about/avatar for the owner. Only the
// owner's session can reach this; the handler passes the session's user id.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	nickname := strings.TrimSpace(in.Nickname)
	about := strings.TrimSpace(in.About)

	if len(nickname) > maxNicknameLen {
		return nil, models.NewValidationError("Nickname too long (max 50 characters)")
	}
	if len(about) > maxAboutLen {
		return nil, models.NewValidationError("About too long (max 2000 characters)")
	}

	user.Nickname = nickname
	user.About = about
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
