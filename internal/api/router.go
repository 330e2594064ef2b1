package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/whisper/comments/internal/comment"
	"github.com/whisper/comments/internal/featured"
	"github.com/whisper/comments/internal/metrics"
	"github.com/whisper/comments/internal/moderation"
)

const serviceName = "comments-editor"

// UserHeader carries the already-authenticated acting user id.
const UserHeader = "X-User-ID"

// CommentService is the editor surface the handlers need.
type CommentService interface {
	Publish(ctx context.Context, req comment.PublishRequest) (*comment.Comment, error)
	EditComment(ctx context.Context, req comment.EditRequest) comment.EditResult
	SetStatus(ctx context.Context, id string, status moderation.Status) (*comment.Comment, error)
}

// SettingsService reads and replaces the moderation settings.
type SettingsService interface {
	Load(ctx context.Context) (moderation.Settings, error)
	Update(ctx context.Context, s moderation.Settings) error
}

// ViewService reads and patches cached comment lists.
type ViewService interface {
	List(ctx context.Context, v featured.View, assetID string) ([]featured.Item, error)
	Add(ctx context.Context, v featured.View, assetID string, it featured.Item) error
	Delete(ctx context.Context, v featured.View, assetID, commentID string) error
}

// Services bundles the handler dependencies.
type Services struct {
	Comments CommentService
	Settings SettingsService
	Views    ViewService
	// Loader resolves a comment id when featuring.
	Loader interface {
		Load(ctx context.Context, id string) (*comment.Comment, error)
	}
	// Checks are run by /health; any error marks the service unhealthy.
	Checks map[string]func(ctx context.Context) error
}

// NewRouter creates and configures the Gin router
func NewRouter(services *Services, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))

	comments := NewCommentHandler(services, log)
	views := NewViewHandler(services, log)

	router.GET("/health", healthCheck(services.Checks))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/comments", comments.Publish)
		v1.PATCH("/comments/:id", comments.Edit)
		v1.PUT("/comments/:id/status", comments.SetStatus)

		v1.GET("/settings/moderation", comments.GetSettings)
		v1.PUT("/settings/moderation", comments.PutSettings)

		assets := v1.Group("/assets/:asset_id")
		{
			assets.GET("/featured", views.ListFeatured)
			assets.POST("/featured/:comment_id", views.Feature)
			assets.DELETE("/featured/:comment_id", views.Unfeature)
			assets.GET("/premod", views.ListPremod)
		}
	}

	return router
}

// healthCheck reports healthy only when every dependency check passes.
func healthCheck(checks map[string]func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":       state,
			"timestamp":    time.Now().Format(time.RFC3339),
			"service":      serviceName,
			"dependencies": deps,
		})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}
