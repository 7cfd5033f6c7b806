// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tickethub/tickethub/internal/config"
	"github.com/tickethub/tickethub/internal/handler"
	"github.com/tickethub/tickethub/internal/middleware"
)

// Deps carries everything route registration needs.
type Deps struct {
	Auth    *handler.AuthHandler
	Events  *handler.EventHandler
	Tickets *handler.TicketHandler

	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
}

// Register sets up the full route table.
//
// Public:    health, auth, event browsing and seat availability.
// Protected: ticket booking and management for authenticated users.
// Admin:     event management, check-in and gate scanning.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	// Session lifecycle.
	auth := e.Group("/v1/auth")
	auth.POST("/register", d.Auth.Register)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)

	// Browsing is public and hot, so listings and availability go
	// through the response cache.
	browse := e.Group("/v1")
	browse.Use(middleware.ResponseCache(d.Redis, d.Cache))
	browse.GET("/events", d.Events.List)
	browse.GET("/events/:id", d.Events.Get)
	browse.GET("/events/:id/seats", d.Events.AvailableSeats)

	// Authenticated user routes. Booking is rate limited per user.
	user := e.Group("/v1")
	user.Use(middleware.JWTAuth(d.JWTSecret))
	user.Use(middleware.RequireRole("USER", "ADMIN"))
	user.GET("/me", d.Auth.Me)
	user.POST("/logout", d.Auth.Logout)
	user.GET("/tickets/mine", d.Tickets.Mine)
	user.GET("/tickets/:id/qr", d.Tickets.QR)
	user.DELETE("/tickets/:id", d.Tickets.Cancel)

	book := e.Group("/v1")
	book.Use(middleware.JWTAuth(d.JWTSecret))
	book.Use(middleware.RequireRole("USER", "ADMIN"))
	book.Use(middleware.RateLimit(d.Redis, d.RateLimit))
	book.POST("/events/:id/book", d.Tickets.Book)

	// Admin routes.
	admin := e.Group("/v1")
	admin.Use(middleware.JWTAuth(d.JWTSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/events", d.Events.Create)
	admin.PATCH("/events/:id/price", d.Events.UpdatePrice)
	admin.GET("/events/:id/stats", d.Events.Stats)
	admin.POST("/checkin", d.Tickets.Verify)
	admin.POST("/tickets/:id/checkin", d.Tickets.CheckIn)
}
