package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"notify_client/internal/http/dto"
	"notify_client/internal/http/resp"
)

// ZapRecovery turns a handler panic into a 500 so the daemon keeps serving
// the UI.
func ZapRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("route", c.FullPath()),
			zap.String("request_id", RequestIDFrom(c)),
			zap.Stack("stack"),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    resp.CodeInternalError,
			Message: "internal error",
		})
	})
}
