package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/emilythestrangee/storymap/backend/internal/auth"
	"github.com/emilythestrangee/storymap/backend/internal/cache"
	"github.com/emilythestrangee/storymap/backend/internal/config"
	"github.com/emilythestrangee/storymap/backend/internal/database"
	"github.com/emilythestrangee/storymap/backend/internal/handlers"
	"github.com/emilythestrangee/storymap/backend/internal/middleware"
	"github.com/emilythestrangee/storymap/backend/internal/models"
	"github.com/emilythestrangee/storymap/backend/internal/services"
	"github.com/emilythestrangee/storymap/backend/internal/storage"
)

// HealthChecker is satisfied by database.Service.
type HealthChecker interface {
	Health() map[string]string
}

type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	handler *handlers.Handler
	tokens  middleware.TokenParser
	users   middleware.ActorLookup
	limiter middleware.Limiter
	health  HealthChecker
}

// NewServer connects every backing service, builds the handlers and returns
// the configured http.Server together with a cleanup function.
func NewServer(cfg *config.Config, log *zap.Logger) (*http.Server, func(), error) {
	db, err := database.New(cfg.DSN(), cfg.DBName, cfg.IsDev())
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db.GetDB()); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	log.Info("database migrations completed")

	closers := []func() error{db.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("cleanup failed", zap.Error(err))
			}
		}
	}

	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb, err := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Warn("Redis connection failed, continuing without rate limiting", zap.Error(err))
		} else {
			log.Info("Redis connected", zap.String("addr", cfg.RedisAddr))
			limiter = rdb
			closers = append(closers, rdb.Close)
		}
	}

	var uploader storage.Uploader = storage.Unavailable{}
	if cfg.MinioEndpoint != "" {
		fs, err := storage.NewFileStorage(cfg.MinioEndpoint, cfg.MinioPublicURL, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Warn("MinIO unavailable, uploads disabled", zap.Error(err))
		} else {
			uploader = fs
		}
	}

	gdb := db.GetDB()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	users := services.NewUserService(gdb, uploader)
	handler := handlers.NewHandler(handlers.Services{
		Auth:     services.NewAuthService(gdb, tokens),
		Stories:  services.NewStoryService(gdb, uploader),
		Comments: services.NewCommentService(gdb),
		Category: services.NewCategoryService(gdb),
		Users:    users,
		Votes:    services.NewVoteService(gdb),
	})

	newServer := &Server{
		cfg:     cfg,
		log:     log,
		handler: handler,
		tokens:  tokens,
		users:   users,
		limiter: limiter,
		health:  db,
	}

	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      newServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv, cleanup, nil
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(s.log))
	r.Use(middleware.Metrics())

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !allowsAll(origins),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		stats := s.health.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := s.handler
	voteLimit := middleware.RateLimit(s.limiter, "vote", s.cfg.VoteRateLimit, s.cfg.VoteRateWindow)
	admins := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.POST("/auth/create-admin", h.Auth.CreateAdmin)

		// Public reads; a valid token still identifies the caller
		public := api.Group("")
		public.Use(middleware.OptionalAuth(s.tokens, s.users))
		{
			public.GET("/stories", h.Story.GetStories)
			public.GET("/stories/:id", h.Story.GetStory)
			public.GET("/stories/:id/comments", h.Comment.GetComments)
			public.GET("/stories/:id/like-status", h.Vote.StoryLikeStatus)
			public.GET("/comments/:id/like-status", h.Vote.CommentLikeStatus)

			public.GET("/categories", h.Category.GetCategories)
			public.GET("/categories/:id", h.Category.GetCategory)

			public.GET("/users/:id", h.User.GetUser)
			public.GET("/users/:id/stories", h.Story.GetUserStories)
			public.GET("/users/:id/profile", h.User.GetProfile)
		}

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.tokens, s.users))
		{
			protected.GET("/auth/me", h.Auth.GetMe)

			protected.POST("/stories", h.Story.CreateStory)
			protected.PUT("/stories/:id", h.Story.UpdateStory)
			protected.DELETE("/stories/:id", h.Story.DeleteStory)
			protected.POST("/stories/:id/photos", h.Story.UploadPhoto)
			protected.POST("/stories/:id/like", voteLimit, h.Vote.LikeStory)

			protected.POST("/stories/:id/comments", h.Comment.CreateComment)
			protected.PUT("/comments/:id", h.Comment.UpdateComment)
			protected.DELETE("/comments/:id", h.Comment.DeleteComment)
			protected.POST("/comments/:id/like", voteLimit, h.Vote.LikeComment)

			protected.PUT("/users/me/profile", h.User.UpdateMyProfile)
			protected.POST("/users/me/avatar", h.User.UploadAvatar)
			protected.DELETE("/users/:id", h.User.DeleteUser)

			// Admin routes
			protected.POST("/categories", admins, h.Category.CreateCategory)
			protected.PUT("/categories/:id", admins, h.Category.UpdateCategory)
			protected.DELETE("/categories/:id", admins, h.Category.DeleteCategory)
			protected.GET("/users", admins, h.User.GetUsers)
			protected.PATCH("/users/:id", admins, h.User.UpdateUser)
		}
	}

	return r
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Addr is used for the startup log line.
func Addr(srv *http.Server) string {
	return fmt.Sprintf("http://%s", srv.Addr)
}
