package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andikarp/bus-ticketing/internal/handler"
	"github.com/andikarp/bus-ticketing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check and the Prometheus scrape
// endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth;
// rateLimit is applied to the whole group so registration, login and OTP
// endpoints cannot be hammered.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if rateLimit != nil {
		g.Use(rateLimit)
	}
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// OTP verification completes registration; resend is throttled by the
	// handler on top of the group-level rate limit.
	g.POST("/verify-otp", a.VerifyOTP)
	g.POST("/resend-otp", a.ResendOTP)
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body, so it does not need a
	// valid access token.
	g.POST("/logout", a.Logout)
}

// RegisterPublic registers unauthenticated browse endpoints: route catalogue
// and per-route seat availability for guests comparing departures.
func RegisterPublic(e *echo.Echo, b *handler.BrowseHandler) {
	e.GET("/v1/routes", b.ListRoutes)
	e.GET("/v1/routes/:id", b.GetRoute)
	e.GET("/v1/routes/:id/seats", b.GetRouteSeats)
}

// RegisterBooking registers the authenticated booking and order endpoints
// under /v1, plus the payment endpoints.  The gateway's webhook is
// registered outside the JWT group because the gateway authenticates with
// its server key, not a user session.
func RegisterBooking(e *echo.Echo, a *handler.AuthHandler, bk *handler.BookingHandler, p *handler.PaymentHandler, jwtSecret string) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.POST("/routes/:id/book", bk.BookSeats)
	auth.GET("/my-orders", bk.ListMyOrders)
	auth.GET("/orders/:ref", bk.GetOrder)
	auth.GET("/orders/:ref/status", p.PollStatus)

	e.POST("/v1/payments/notify", p.Notify)
}
