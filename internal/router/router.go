package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/handler"
	"github.com/stemsi/exstem-session/internal/middleware"
	"github.com/stemsi/exstem-session/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// The full catalog is the only large payload.
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		SkipPaths: []string{"/ws/"},
	}))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok", "state_backend": cfg.StateBackend})
	})

	// ─── 1. Session Group ──────────────────────────────────────────────
	sessionAPI := router.Group("/api/v1/session")
	if cfg.RateLimitPerMinute > 0 {
		sessionAPI.Use(middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware())
	}
	sessionAPI.Use(middleware.NoStore())
	{
		sessionAPI.POST("/start", handlers.Session.StartSession)
		sessionAPI.GET("", handlers.Session.GetSession)
		sessionAPI.GET("/summary", handlers.Session.GetSummary)
		sessionAPI.POST("/submit", handlers.Session.Submit)
		sessionAPI.POST("/reset", handlers.Session.Reset)

		// Fixed for the session; the client may cache it.
		sessionAPI.GET("/catalog", middleware.CacheControl(300), handlers.Session.GetCatalog)

		// Navigation
		sessionAPI.POST("/navigate/next", handlers.Session.Next)
		sessionAPI.POST("/navigate/previous", handlers.Session.Previous)
		sessionAPI.POST("/navigate/goto", handlers.Session.GoToQuestion)
		sessionAPI.POST("/navigate/section", handlers.Session.GoToSection)

		// Question actions
		sessionAPI.POST("/answer", handlers.Session.Answer)
		sessionAPI.POST("/answer/clear", handlers.Session.ClearResponse)
		sessionAPI.POST("/review/toggle", handlers.Session.ToggleReview)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	ws := router.Group("/ws/v1")
	{
		ws.GET("/session/stream", handlers.WS.SessionStream)
	}

	return router
}
