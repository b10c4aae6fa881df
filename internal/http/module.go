// Package http holds the contract between the router and the domain modules.
package http

import (
	"leadpipe_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context that mounts its own routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups a module may mount on.
type RouterContext struct {
	// V1 is the public /api/v1 group.
	V1 *gin.RouterGroup
	// Protected sits under /api/v1 behind authentication and the audit trail.
	Protected *gin.RouterGroup
	// AuthRateLimiter throttles credential endpoints per client IP.
	AuthRateLimiter *httpkit.AuthRateLimiter
}
