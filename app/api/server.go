package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/driftfeed/driftfeed/app/cfg"
)

// NewServer creates the HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(requestIDMiddleware())

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.POST("/recommendations", handler.GetRecommendation)
			api.POST("/feedback", handler.RecordFeedback)
			api.POST("/domains/block", handler.BlockDomain)

			api.GET("/sources", handler.ListSources)
			api.POST("/sources", handler.CreateSource)
			api.GET("/sources/:id", handler.GetSource)
			api.PATCH("/sources/:id", handler.UpdateSource)
			api.DELETE("/sources/:id", handler.DeleteSource)
			api.POST("/sources/:id/crawl", handler.TriggerCrawl)
			api.POST("/sources/:id/cancel", handler.CancelCrawl)
			api.GET("/sources/:id/jobs", handler.ListJobs)

			api.POST("/enhance", handler.EnhanceContent)

			api.GET("/reputation/top", handler.GetTopDomains)
			api.GET("/reputation/blacklisted", handler.GetBlacklistedDomains)
			api.GET("/reputation/domains/:domain", handler.GetDomainReputation)
			api.POST("/reputation/domains/:domain/recompute", handler.RecomputeDomainReputation)
			api.POST("/reputation/domains/:domain/blacklist", handler.BlacklistDomain)
			api.POST("/reputation/domains/:domain/unblacklist", handler.UnblacklistDomain)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "Driftfeed",
			"version":     cfg.Get().Version,
			"description": "Serendipity-driven content discovery feed",
			"endpoints": map[string]string{
				"health":          "/health",
				"stats":           "/stats",
				"recommendations": "/api/recommendations (POST, requires X-API-Key header)",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// requestIDMiddleware assigns each request an id for log correlation,
// honoring an id already set by an upstream proxy
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// authMiddleware guards the /api group with a shared access key
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
