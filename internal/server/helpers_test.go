package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"chatterbox/internal/config"
	"chatterbox/internal/models"
	"chatterbox/internal/render"
	"chatterbox/internal/service"
	"chatterbox/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDWithPosts(ctx context.Context, id uint, limit int) (*models.User, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

// MockPostRepository is a mock of the PostRepository interface
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) ListRecent(ctx context.Context, limit int) ([]*models.Post, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]*models.Post, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) Exists(ctx context.Context, id uint) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockCommentRepository is a mock of the CommentRepository interface
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	args := m.Called(ctx, postID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Comment), args.Error(1)
}

// MockChatRepository is a mock of the ChatRepository interface
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChatRepository) ListRecent(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

type testMocks struct {
	users    *MockUserRepository
	posts    *MockPostRepository
	comments *MockCommentRepository
	chat     *MockChatRepository
}

// newTestServer builds a Server over mock repositories, skipping the
// metrics and limiter layers that need live infrastructure.
func newTestServer(t *testing.T) (*Server, *testMocks) {
	t.Helper()

	m := &testMocks{
		users:    new(MockUserRepository),
		posts:    new(MockPostRepository),
		comments: new(MockCommentRepository),
		chat:     new(MockChatRepository),
	}

	avatarService, err := service.NewAvatarService(t.TempDir(), 1)
	require.NoError(t, err)

	s := &Server{
		config: &config.Config{
			SessionSecret:      "test-secret",
			SessionIdleTimeout: 24 * time.Hour,
			StoreTimeout:       5 * time.Second,
		},
		sessions:      session.NewManager("test-secret", 24*time.Hour, nil),
		renderer:      render.JSON{},
		userRepo:      m.users,
		postRepo:      m.posts,
		commentRepo:   m.comments,
		chatRepo:      m.chat,
		avatarService: avatarService,
	}
	s.authService = service.NewAuthService(m.users)
	s.postService = service.NewPostService(m.posts, m.comments)
	s.chatService = service.NewChatService(m.chat, []string{"Ada Lovelace"})
	s.userService = service.NewUserService(m.users)

	return s, m
}

// setupTestApp wires the route table without the middleware stack.
func setupTestApp(s *Server) *fiber.App {
	app := fiber.New()

	app.Get("/register", s.RegisterPage)
	app.Post("/register", s.Register)
	app.Get("/login", s.LoginPage)
	app.Post("/login", s.Login)
	app.Get("/avatars/:ref", s.ServeAvatar)

	protected := app.Group("", s.LoginRequired())
	protected.Get("/logout", s.Logout)
	protected.Get("/", s.Home)
	protected.Get("/post", s.NewPostPage)
	protected.Post("/post", s.CreatePost)
	protected.Get("/post/:id", s.PostDetail)
	protected.Post("/post/:id", s.AddComment)
	protected.Get("/users", s.UsersList)
	protected.Get("/profile", s.ProfileEditPage)
	protected.Post("/profile", s.UpdateProfile)
	protected.Get("/profile/:id", s.ProfileView)
	protected.Get("/chat_auth", s.ChatAuthPage)
	protected.Post("/chat_auth", s.ChatAuthSubmit)

	chat := protected.Group("/chat", s.ChatAccessRequired())
	chat.Get("/", s.ChatPage)
	chat.Post("/", s.SendChatMessage)

	return app
}

// authCookie issues a session cookie for user outside any route, so tests
// can act as a logged-in browser.
func authCookie(t *testing.T, s *Server, user *models.User, chatAllowed bool) *http.Cookie {
	t.Helper()
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		return s.sessions.Issue(c, user, chatAllowed)
	})
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/", nil))
	require.NoError(t, err)
	for _, ck := range resp.Cookies() {
		if ck.Name == session.CookieName {
			return ck
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func respCookie(resp *http.Response, name string) *http.Cookie {
	for _, ck := range resp.Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
