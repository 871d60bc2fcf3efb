// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "feedhub/docs" // swagger docs
	"feedhub/internal/cache"
	"feedhub/internal/config"
	"feedhub/internal/database"
	"feedhub/internal/graphapi"
	"feedhub/internal/middleware"
	"feedhub/internal/models"
	"feedhub/internal/notifications"
	"feedhub/internal/repository"
	"feedhub/internal/service"
	"feedhub/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/graphql-go/graphql"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// feedSocketPath is the websocket route; it alone accepts ?token= authentication.
const feedSocketPath = "/ws"

var (
	signupLimit     = middleware.Limit{Name: "signup", Requests: 10, Window: time.Minute}
	loginLimit      = middleware.Limit{Name: "login", Requests: 20, Window: time.Minute}
	createPostLimit = middleware.Limit{Name: "create_post", Requests: 30, Window: time.Minute}
)

// Deps are the external collaborators a Server runs against.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client // optional: disables caching and rate limiting when nil
	Media storage.MediaStore
	// Transport fans post events out to other instances. Nil keeps them local.
	Transport notifications.Transport
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	credentials    *service.CredentialService
	postService    *service.PostService
	userService    *service.UserService
	media          *service.MediaService
	hub            *notifications.Hub
	notifier       *notifications.PostNotifier
	schema         graphql.Schema
}

// NewServer connects to the configured database, Redis, media store and event transport.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ConnectRead(cfg); err != nil {
		middleware.Logger.Warn("read replica unavailable, reading from primary", slog.String("error", err.Error()))
	}

	redisClient := cache.Connect(cfg.RedisURL)

	media, err := newMediaStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	transport, err := newTransport(cfg, redisClient)
	if err != nil {
		return nil, err
	}

	return NewServerWithDeps(cfg, Deps{
		DB:        db,
		Redis:     redisClient,
		Media:     media,
		Transport: transport,
	})
}

func newMediaStore(ctx context.Context, cfg *config.Config) (storage.MediaStore, error) {
	switch cfg.StorageBackend {
	case "minio":
		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("media storage init failed: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewLocalStore(cfg.ImageDir)
		if err != nil {
			return nil, fmt.Errorf("media storage init failed: %w", err)
		}
		return store, nil
	}
}

func newTransport(cfg *config.Config, redisClient *redis.Client) (notifications.Transport, error) {
	switch cfg.RealtimeBackend {
	case "rabbitmq":
		t, err := notifications.NewRabbitMQTransport(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq transport init failed: %w", err)
		}
		return t, nil
	case "none":
		return nil, nil
	default:
		if redisClient == nil {
			middleware.Logger.Warn("redis unavailable, post events stay on this instance")
			return nil, nil
		}
		return notifications.NewRedisTransport(redisClient), nil
	}
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil || deps.Media == nil {
		return nil, errors.New("database and media store are required")
	}

	userRepo := repository.NewUserRepository(deps.DB)
	postRepo := repository.NewPostRepository(deps.DB, cache.NewStore(deps.Redis))

	hub := notifications.NewHub()
	notifier, err := notifications.NewPostNotifier(context.Background(), hub, deps.Transport)
	if err != nil {
		return nil, fmt.Errorf("event transport subscribe failed: %w", err)
	}

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: middleware.InitMetrics("feedhub-api"),
		credentials:    service.NewCredentialService(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL, cfg.BcryptCost),
		media:          service.NewMediaService(deps.Media),
		hub:            hub,
		notifier:       notifier,
	}
	s.postService = service.NewPostService(postRepo, userRepo, s.media, s.notifier, service.NewPagePolicy(cfg.PostsPerPage))
	s.userService = service.NewUserService(userRepo, s.credentials)

	s.schema, err = graphapi.NewSchema(s.postService, s.userService)
	if err != nil {
		return nil, fmt.Errorf("graphql schema: %w", err)
	}

	s.app = s.newApp()
	return s, nil
}

// App returns the configured Fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) newApp() *fiber.App {
	bodyLimit := s.config.ImageMaxUploadMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = fiber.DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:   "Feedhub API",
		BodyLimit: bodyLimit,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Message: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, err)
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	app.Use(middleware.TracingMiddleware())

	// Identity is optional here; operations reject anonymous callers themselves.
	app.Use(middleware.Authenticate(s.credentials, feedSocketPath))

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers. Images are embedded cross-origin by the web client.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "OPTIONS,GET,POST,PUT,PATCH,DELETE",
		AllowHeaders: "Content-Type,Authorization",
		MaxAge:       86400,
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

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := app.Group("/auth")
	auth.Put("/signup", middleware.RateLimit(s.redis, signupLimit), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, loginLimit), s.Login)
	auth.Get("/status", s.GetStatus)
	auth.Patch("/status", s.UpdateStatus)

	// Feed routes
	feed := app.Group("/feed")
	feed.Get("/posts", s.GetPosts)
	feed.Post("/post", middleware.RateLimit(s.redis, createPostLimit), s.CreatePost)
	feed.Get("/post/:postId", s.GetPost)
	feed.Put("/post/:postId", s.UpdatePost)
	feed.Delete("/post/:postId", s.DeletePost)

	// Media
	app.Put("/post-image", s.UploadImage)
	app.Get("/images/*", s.ServeImage)

	app.All("/graphql", graphapi.Handler(s.schema))

	app.Get(feedSocketPath, s.WebSocketUpgrade, s.WebSocketFeedHandler())
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

	// Redis only backs the cache and cross-instance events, so it never fails readiness.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "degraded"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"websocket_clients": s.hub.Count(),
		"time":              time.Now(),
	})
}

// Start starts the server
func (s *Server) Start() error {
	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops accepting requests, closes websocket observers, lets pending image
// cleanups finish and releases the database, Redis and event transport.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down websocket hub", slog.String("error", err.Error()))
	}

	if err := s.notifier.Close(); err != nil {
		middleware.Logger.Error("error closing event transport", slog.String("error", err.Error()))
	}

	done := make(chan struct{})
	go func() {
		s.media.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		middleware.Logger.Warn("shutdown deadline reached with image cleanups pending")
	}

	database.Close(s.db)

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
