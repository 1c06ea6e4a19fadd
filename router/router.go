// api/router/router.go

package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushq/sentra/api/controller"
	"github.com/campushq/sentra/api/middleware"
)

func SetupRouter(
	accessController *controller.AccessController,
	rateLimitRequests int,
	rateLimitDuration time.Duration,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.RateLimiter(rateLimitRequests, rateLimitDuration))

	api := router.Group("/api/v1")

	accessController.RegisterRoutes(api)

	return router
}
