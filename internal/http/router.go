package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/postloom/social-auth/internal/config"
	"github.com/postloom/social-auth/internal/http/handler"
	httpmiddleware "github.com/postloom/social-auth/internal/http/middleware"
	"github.com/postloom/social-auth/internal/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/setup/:platform", authHandler.Setup)
		authGroup.GET("/login/:platform", authHandler.Login)
		authGroup.GET("/callback/:platform", authHandler.Callback)
		authGroup.GET("/status/:platform", authHandler.Status)
		authGroup.GET("/credentials/:platform", authHandler.Credentials)
		authGroup.POST("/logout/:platform", authHandler.Logout)
		authGroup.POST("/reset/:platform", authHandler.Reset)
		authGroup.GET("/debug/:platform", authHandler.Debug)
	}

	r.POST("/publish/:platform", authHandler.Publish)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
