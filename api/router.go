package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pos_admin/internal/auth"
	"pos_admin/internal/metrics"
	"pos_admin/internal/sales"
	"pos_admin/internal/users"
)

// Dependencies is everything the routes need. Verifier and Metrics are
// optional.
type Dependencies struct {
	Users    *users.Service
	Sales    *sales.Service
	Logger   *zap.Logger
	Verifier *auth.Verifier
	Metrics  *metrics.Registry

	RateLimitRPS   float64
	RateLimitBurst int
}

// InitRoutes registers the member and sales endpoints on the given Gin
// engine, together with the shared middleware.
func InitRoutes(e *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e.Use(requestID(), requestLogger(logger))
	if deps.Metrics != nil {
		e.Use(deps.Metrics.Middleware())
		e.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Everything below talks to the backend on the caller's behalf.
	authenticated := e.Group("/")
	if deps.RateLimitRPS > 0 {
		authenticated.Use(newRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst, logger).Handler())
	}
	adminOnly := []gin.HandlerFunc{}
	if deps.Verifier != nil {
		authenticated.Use(deps.Verifier.Required())
		adminOnly = append(adminOnly, auth.RequireAdmin())
	} else {
		authenticated.Use(auth.Passthrough())
	}

	usersHandler := NewUsersHandler(deps.Users, logger)
	authenticated.GET("/users", usersHandler.handleGetUsers)
	authenticated.GET("/users/count", usersHandler.handleCountUsers)
	authenticated.GET("/users/:id", usersHandler.handleGetUser)
	authenticated.PATCH("/users/:id", append(adminOnly, usersHandler.handlePatchUser)...)
	authenticated.PUT("/profile", usersHandler.handlePutProfile)

	salesHandler := NewSalesHandler(deps.Sales, logger)
	authenticated.GET("/sales", salesHandler.handlerGetSales)
	authenticated.GET("/sales/:id", salesHandler.handleGetSale)
	authenticated.PATCH("/sales/:id", salesHandler.PatchSaleHandler)
	authenticated.POST("/sales/:id/toggle", salesHandler.handleToggleSale)
	authenticated.GET("/sales/:id/receipt", salesHandler.handleReceipt)
}
