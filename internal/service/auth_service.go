// Package service contains the application's business logic.
package service

import (
	"context"
	"strings"

	"chatterbox/internal/models"
	"chatterbox/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	maxUsernameLen = 50
	maxNicknameLen = 50
	maxAboutLen    = 2000
)

// dummyHash is compared against when the username does not exist, so the
// unknown-user and wrong-password paths cost the same.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("chatterbox-dummy"), bcrypt.DefaultCost)

// AuthService implements the credential store: registration and verification.
type AuthService struct {
	userRepo repository.UserRepository
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	Nickname        string
	About           string
}

// NewAuthService returns an AuthService backed by the given user repository.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Register creates an account. The username is trimmed; empty username or
// password fails before any store access. Passwords are stored only as
// bcrypt hashes. A lost uniqueness race surfaces as DuplicateUsername.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	nickname := strings.TrimSpace(in.Nickname)
	about := strings.TrimSpace(in.About)

	if username == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}
	if len(username) > maxUsernameLen {
		return nil, models.NewValidationError("Username too long (max 50 characters)")
	}
	if in.Password != in.ConfirmPassword {
		return nil, models.NewValidationError("Passwords do not match")
	}
	if len(nickname) > maxNicknameLen {
		return nil, models.NewValidationError("Nickname too long (max 50 characters)")
	}
	if len(about) > maxAboutLen {
		return nil, models.NewValidationError("About too long (max 2000 characters)")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Nickname:     nickname,
		About:        about,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Verify checks a username/password pair. Unknown user and wrong password
// return the same InvalidCredentials; the bcrypt compare runs either way.
func (s *AuthService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	storedHash := dummyHash
	if user != nil {
		storedHash = []byte(user.PasswordHash)
	}
	if cmpErr := bcrypt.CompareHashAndPassword(storedHash, []byte(password)); cmpErr != nil || user == nil {
		return nil, models.NewInvalidCredentialsError()
	}
	return user, nil
}
