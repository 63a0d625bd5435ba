package middleware

import (
	"github.com/gin-gonic/gin"

	apperrors "stockfolio/internal/errors"
	"stockfolio/internal/logger"
)

// ErrorHandler renders the last error attached with c.Error as the JSON error
// envelope, unless the handler already wrote a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		appErr, known := apperrors.Resolve(last.Err)
		if appErr.Internal != nil {
			logger.With(c.Request.Context()).Errorw("request failed",
				"code", appErr.Code,
				"known", known,
				"internal", appErr.Internal.Error(),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(appErr.StatusCode, appErr.Body())
	}
}
