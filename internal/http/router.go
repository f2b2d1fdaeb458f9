package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"notify_client/internal/config"
	"notify_client/internal/http/controller"
	"notify_client/internal/http/middleware"
)

func NewRouter(cfg *config.Config, handler *controller.Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		otelgin.Middleware(cfg.OTELServiceName),
		middleware.RequestID(),
		middleware.ZapLogger(logger),
		middleware.ZapRecovery(logger),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/state", handler.State)
	router.GET("/events", handler.Events)
	router.POST("/refresh", handler.Refresh)
	router.POST("/reconnect", handler.Reconnect)

	router.POST("/notifications/read-all", handler.MarkAllAsRead)
	router.POST("/notifications/bulk", handler.BulkAction)
	router.POST("/notifications/:id/read", handler.MarkAsRead)
	router.DELETE("/notifications/:id", handler.Dismiss)

	router.POST("/selection/all", handler.SelectAll)
	router.POST("/selection/:id", handler.ToggleSelection)
	router.DELETE("/selection", handler.ClearSelection)

	router.PUT("/filter", handler.SetFilter)

	return router
}
