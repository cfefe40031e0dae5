// Package server contains the HTTP handlers and route wiring for Chatterbox.
package server

import (
	"context"
	"fmt"
	"time"

	"chatterbox/internal/cache"
	"chatterbox/internal/config"
	"chatterbox/internal/database"
	"chatterbox/internal/middleware"
	"chatterbox/internal/models"
	"chatterbox/internal/render"
	"chatterbox/internal/repository"
	"chatterbox/internal/service"
	"chatterbox/internal/session"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus

	sessions *session.Manager
	renderer render.Renderer

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	chatRepo    repository.ChatRepository

	authService   *service.AuthService
	postService   *service.PostService
	chatService   *service.ChatService
	userService   *service.UserService
	avatarService *service.AvatarService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Initialize Redis
	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	avatarService, err := service.NewAvatarService(cfg.AvatarDir, cfg.AvatarMaxSizeMB)
	if err != nil {
		return nil, fmt.Errorf("avatar storage init failed: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	chatRepo := repository.NewChatRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("chatterbox"),
		sessions:       session.NewManager(cfg.SessionSecret, cfg.SessionIdleTimeout, redisClient),
		renderer:       render.JSON{},
		userRepo:       userRepo,
		postRepo:       postRepo,
		commentRepo:    commentRepo,
		chatRepo:       chatRepo,
	}
	server.authService = service.NewAuthService(userRepo)
	server.postService = service.NewPostService(postRepo, commentRepo)
	server.chatService = service.NewChatService(chatRepo, cfg.ChatAllowList())
	server.userService = service.NewUserService(userRepo)
	server.avatarService = avatarService

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// Global rate limiting (120 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Public routes: account creation and login only
	app.Get("/register", s.RegisterPage)
	app.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	app.Get("/login", s.LoginPage)
	app.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)

	// Avatar bytes are public; refs are unguessable generated names
	app.Get("/avatars/:ref", s.ServeAvatar)

	// Everything else sits behind the login gate
	protected := app.Group("", s.LoginRequired())
	protected.Get("/logout", s.Logout)
	protected.Get("/", s.Home)

	protected.Get("/post", s.NewPostPage)
	protected.Post("/post", middleware.RateLimit(
		s.redis, 6, time.Minute, "create_post"), s.CreatePost)
	protected.Get("/post/:id", s.PostDetail)
	protected.Post("/post/:id", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.AddComment)

	protected.Get("/users", s.UsersList)
	// Own-profile routes before the parameterized public profile
	protected.Get("/profile", s.ProfileEditPage)
	protected.Post("/profile", s.UpdateProfile)
	protected.Get("/profile/:id", s.ProfileView)

	// Chat name gate; the chat itself additionally requires the gate open
	protected.Get("/chat_auth", s.ChatAuthPage)
	protected.Post("/chat_auth", s.ChatAuthSubmit)

	chat := protected.Group("/chat", s.ChatAccessRequired())
	chat.Get("/", s.ChatPage)
	chat.Post("/", middleware.RateLimit(
		s.redis, 30, time.Minute, "send_chat"), s.SendChatMessage)
}

// LoginRequired returns the login-gate middleware: any route behind it
// requires a valid session; absence redirects to the login entry point.
func (s *Server) LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := s.sessions.Lookup(c)
		if err != nil {
			return s.fail(c, err)
		}
		if sess == nil {
			// API callers get a machine-readable 401, browsers a
			// redirect to the login form.
			if c.Accepts("text/html") == "" {
				return models.RespondWithError(c, fiber.StatusUnauthorized,
					models.NewUnauthorizedError("Login required"))
			}
			s.flash(c, "warning", "Please log in to access that page.")
			return s.redirect(c, "/login")
		}

		c.Locals("session", sess)
		c.Locals("userID", sess.UserID)
		// Sync to the user context so the logger picks up user_id
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, sess.UserID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// ChatAccessRequired returns the second-stage chat gate. It must be mounted
// behind LoginRequired; a logged-in session that has not passed the name
// check is bounced back to the name-entry gate, never shown chat content.
func (s *Server) ChatAccessRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := currentSession(c)
		if sess == nil || !sess.ChatAllowed {
			return s.redirect(c, "/chat_auth")
		}
		return c.Next()
	}
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis is optional: rate limits fail open, sessions still expire
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown releases server-held resources after the HTTP listener drains.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			return sqlDB.Close()
		}
	}
	return nil
}
