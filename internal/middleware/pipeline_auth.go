package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/logger"
)

const apiKeyHeader = "X-API-Key"

// PipelineAuthMiddleware guards machine-to-machine routes with a shared key
// sent in X-API-Key. An empty apiKey disables the routes.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	want := []byte(apiKey)
	return func(c *gin.Context) {
		if len(want) == 0 {
			abortWith(c, apperrors.ErrPipelineNotConfigured)
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(apiKeyHeader)), want) != 1 {
			logger.With(c.Request.Context()).Warnw("pipeline key rejected",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
			)
			abortWith(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}

func abortWith(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.StatusCode, err.Body())
}
