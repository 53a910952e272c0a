package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/mailforward/api/middleware"
	"github.com/customeros/mailforward/api/rest/handlers"
	"github.com/customeros/mailforward/internal/tracing"
	"github.com/customeros/mailforward/services"
)

// RegisterRoutes sets up the health and status endpoints served in schedule mode
func RegisterRoutes(r *gin.Engine, s *services.Services) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	r.GET("/health", handlers.HealthCheck)
	r.GET("/status", middleware.TracingMiddleware(), handlers.Status(s.MailboxDialer, s.Processor))
}
