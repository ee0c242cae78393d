package server

import (
	"github.com/gin-gonic/gin"

	"juris-backend/internal/server/middleware"
	"juris-backend/internal/shared/metrics"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	handler.RegisterRoutes(api)

	return r
}

// Addr normalizes a port value into a listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
