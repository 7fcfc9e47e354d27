// Package server contains the HTTP and WebSocket handlers of the readit API.
package server

import (
	"context"
	"errors"
	"time"

	_ "readit/docs" // swagger docs
	"readit/internal/cache"
	"readit/internal/config"
	"readit/internal/featureflags"
	"readit/internal/middleware"
	"readit/internal/models"
	"readit/internal/notifications"
	"readit/internal/repository"
	"readit/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config           *config.Config
	db               *gorm.DB
	redis            *redis.Client
	app              *fiber.App
	promMiddleware   *fiberprometheus.FiberPrometheus
	shutdownCtx      context.Context
	shutdownFn       context.CancelFunc
	tokens           *middleware.SessionTokens
	userRepo         repository.UserRepository
	postRepo         repository.PostRepository
	commentRepo      repository.CommentRepository
	subRepo          repository.SubRepository
	voteRepo         repository.VoteRepository
	notifier         *notifications.Notifier
	hub              *notifications.Hub
	featureFlags     *featureflags.Manager
	voteService      *service.VoteService
	postService      *service.PostService
	communityService *service.CommunityService
	authService      *service.AuthService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, rate limits and cross-instance fan-out are
// then disabled.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(metricsServiceName),
		tokens:         middleware.NewSessionTokens(cfg.JWTSecret),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		subRepo:        repository.NewSubRepository(db),
		voteRepo:       repository.NewVoteRepository(db),
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	images := models.ImageResolver{BaseURL: cfg.ImageBaseURL()}
	store := cache.NewStore(redisClient)
	if !s.featureFlags.Enabled(featureflags.CommunityRankingCache, 0) {
		store = cache.NewStore(nil)
	}

	perspective := service.NewPerspective(s.voteRepo, s.commentRepo, images)
	s.voteService = service.NewVoteService(s.voteRepo, s.postRepo, s.commentRepo, s)
	s.postService = service.NewPostService(s.postRepo, s.commentRepo, s.subRepo, perspective, store)
	s.communityService = service.NewCommunityService(s.subRepo, s.postRepo, perspective, store, images, cfg.TopSubsLimit)
	s.authService = service.NewAuthService(s.userRepo, s.tokens)

	return s, nil
}

const metricsServiceName = "readit-api"

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	// Every API route sees the caller when a valid session is presented.
	api.Use(middleware.Session(s.tokens, s.userRepo.GetByID))

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/me", middleware.RequireUser, s.Me)
	auth.Post("/logout", s.Logout)

	api.Post("/votes", middleware.RequireUser, middleware.RateLimit(
		s.redis, 60, time.Minute, "vote"), s.Vote)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Post("/", middleware.RequireUser, middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	// /:identifier/:slug/comments before /:identifier/:slug
	posts.Get("/:identifier/:slug/comments", s.GetComments)
	posts.Post("/:identifier/:slug/comments", middleware.RequireUser, middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:identifier/:slug", s.GetPost)
	posts.Delete("/:identifier/:slug", middleware.RequireUser, s.DeletePost)

	subs := api.Group("/subs")
	subs.Get("/sub/topSubs", s.TopSubs)
	subs.Post("/", middleware.RequireUser, s.CreateSub)
	subs.Get("/:name", s.GetSub)

	api.Get("/feature-flags", s.GetFeatureFlags)

	api.Get("/ws", s.WebsocketUpgrade, s.WebsocketHandler())
}

// NewApp builds the Fiber app with middleware, routes and the error handler.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "readit API",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return s.respond(c, err)
}

// LivenessCheck handles liveness checks
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness checks
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
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
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
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

// StartRealtime subscribes the hub to the broadcast channel so score updates
// published by any instance reach local clients.
func (s *Server) StartRealtime(ctx context.Context) error {
	if !s.notifier.Enabled() {
		middleware.Logger.InfoContext(ctx, "redis unavailable, score updates delivered locally only")
		return nil
	}
	return s.hub.StartWiring(ctx, s.notifier)
}

// Start builds the app, wires realtime delivery and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if err := s.StartRealtime(s.shutdownCtx); err != nil {
		middleware.Logger.Error("failed to start realtime wiring", "hub", s.hub.Name(), "error", err)
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
