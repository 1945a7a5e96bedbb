package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-client/internal/config"
	"github.com/stemsi/exstem-client/internal/handler"
	"github.com/stemsi/exstem-client/internal/middleware"
	"github.com/stemsi/exstem-client/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptHandler
	Review  *handler.ReviewHandler
	WS      *handler.WSHandler
}

// SetupRouter configures the shell's Gin routes.
func SetupRouter(handlers *Handlers, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Compress large JSON (exam papers, reviews). WebSocket upgrades skip it.
	router.Use(middleware.Brotli(5))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. Attempts ───────────────────────────────────────────────────
	startLimiter := middleware.NewRateLimiter(cfg.StartRatePerMinute, time.Minute)

	api := router.Group("/api/v1")
	api.Use(middleware.NoStore())
	{
		api.POST("/exams/:exam_id/attempts", startLimiter.Middleware(), handlers.Attempt.StartAttempt)

		attempts := api.Group("/attempts/:attempt_id")
		attempts.GET("", handlers.Attempt.GetAttempt)
		attempts.DELETE("", handlers.Attempt.DiscardAttempt)
		attempts.GET("/paper", handlers.Attempt.GetPaper)
		attempts.GET("/question", handlers.Attempt.GetCurrentQuestion)
		attempts.PUT("/answers", handlers.Attempt.SelectAnswer)
		attempts.POST("/navigate", handlers.Attempt.Navigate)
		attempts.POST("/submit/request", handlers.Attempt.RequestSubmit)
		attempts.POST("/submit/cancel", handlers.Attempt.CancelSubmit)
		attempts.POST("/submit", handlers.Attempt.Submit)
		attempts.POST("/submit/retry", handlers.Attempt.RetrySubmit)

		// ─── 2. Review ─────────────────────────────────────────────────
		api.GET("/results/:result_id/review", handlers.Review.GetReview)
	}

	// ─── 3. WebSocket ──────────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	return router
}

// requestLogger logs one line per request through zerolog.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		reqID, _ := c.Get(response.ContextKeyRequestID)
		id, _ := reqID.(string)
		log.Debug().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("HTTP request")
	}
}
