package api

import (
	"github.com/gin-gonic/gin"

	"github.com/tramdoc/tramdoc/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, ping handlers.Pinger) {
	health := handlers.Health(ping)
	r.GET("/health", health)
	r.GET("/api/v1/health", health)
}
