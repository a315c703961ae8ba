package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emilythestrangee/qa-forum/backend/internal/config"
	"github.com/emilythestrangee/qa-forum/backend/internal/handlers"
	"github.com/emilythestrangee/qa-forum/backend/internal/middleware"
)

// HealthChecker reports database health.
type HealthChecker interface {
	Health() map[string]string
}

type Server struct {
	cfg     *config.Config
	db      HealthChecker
	handler *handlers.Handler
	tokens  *middleware.TokenIssuer
	limiter *middleware.RateLimiter
}

func New(cfg *config.Config, db HealthChecker, handler *handlers.Handler, tokens *middleware.TokenIssuer, limiter *middleware.RateLimiter) *Server {
	return &Server{cfg: cfg, db: db, handler: handler, tokens: tokens, limiter: limiter}
}

// HTTPServer wraps the router in an http.Server with the service timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.RequestLogger())

	origins := s.cfg.AllowedOrigins()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
		AllowCredentials: !(len(origins) == 1 && origins[0] == "*"),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		stats := s.db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := s.handler
	api := r.Group("/api")
	if s.limiter != nil {
		api.Use(s.limiter.Middleware())
	}
	{
		// Auth routes (public)
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)

		// Public reads
		api.GET("/questions", h.Question.GetQuestions)
		api.GET("/questions/:id", h.Question.GetQuestion)
		api.GET("/questions/:id/comments", h.Comment.GetQuestionComments)
		api.GET("/answers/:id/comments", h.Comment.GetAnswerComments)
		api.GET("/tags", h.Tag.GetTags)
		api.GET("/tags/suggest", h.Tag.SuggestTags)
		api.GET("/users/:id", h.User.GetUserProfile)
		api.GET("/users/:id/achievements", h.Achievement.GetUserAchievements)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.tokens))
		{
			protected.GET("/me", h.Auth.GetMe)
			protected.PUT("/me", h.User.UpdateMe)
			protected.GET("/users/me/achievements", h.Achievement.GetMyAchievements)

			protected.POST("/questions", h.Question.CreateQuestion)
			protected.POST("/questions/:id/answers", h.Answer.CreateAnswer)

			protected.POST("/questions/:id/vote", h.Vote.VoteQuestion)
			protected.POST("/answers/:id/vote", h.Vote.VoteAnswer)
			protected.POST("/answers/:id/accept", h.Answer.AcceptAnswer)

			protected.POST("/questions/:id/comments", h.Comment.CreateQuestionComment)
			protected.POST("/answers/:id/comments", h.Comment.CreateAnswerComment)
			protected.PUT("/comments/:id", h.Comment.UpdateComment)
			protected.DELETE("/comments/:id", h.Comment.DeleteComment)

			// Moderation
			moderation := protected.Group("")
			moderation.Use(middleware.RequireModerator())
			{
				moderation.DELETE("/answers/:id", h.Answer.DeleteAnswer)
				moderation.DELETE("/tags/:id", h.Tag.DeleteTag)
			}
		}
	}

	return r
}
