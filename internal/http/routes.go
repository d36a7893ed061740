package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger())
	r.Use(Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Only enabled providers get routes; a disabled provider's login and
	// callback URLs are plain unknown routes.
	for _, p := range h.Providers {
		r.GET("/login/"+p.Name, h.OAuthLogin(p))
		r.GET("/callback/"+p.Name, h.OAuthCallback(p))
	}
	r.POST("/refresh", h.Refresh)

	auth := r.Group("/api/auth")
	if h.PasswordAuth {
		auth.POST("/register", h.RateLimit("register"), h.Register)
		auth.POST("/login", h.RateLimit("login"), h.Login)
	}
	auth.POST("/logout", h.Logout)
	auth.GET("/me", AuthJWT(h.JWTSecret), h.Me)

	r.POST("/pickups", h.CreatePickup)
	r.GET("/pickups", h.ListPickups)
	r.GET("/pickups/:id", h.GetPickup)
	r.DELETE("/pickups/:id", h.DeletePickup)

	return r
}
