package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/gin-blog/config"
	_ "github.com/d60-Lab/gin-blog/docs"
	"github.com/d60-Lab/gin-blog/internal/api/handler"
	"github.com/d60-Lab/gin-blog/internal/api/middleware"
	"github.com/d60-Lab/gin-blog/pkg/metrics"
	"github.com/d60-Lab/gin-blog/pkg/response"
)

// SetupRouter 注册中间件与全部路由
func SetupRouter(cfg *config.Config, h *handler.Handler, tokens middleware.TokenParser) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.MaxMultipartMemory = cfg.Media.MaxUploadSize
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog())
	r.Use(metrics.Handler())
	if cfg.Tracing.Enabled {
		r.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	r.Use(cors.New(corsConfig(cfg.CORS)))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics", cfg.Media.URLPrefix})))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", metrics.Exposer())
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if cfg.Media.Backend == "local" {
		r.Static(cfg.Media.URLPrefix, cfg.Media.Root)
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	v1 := r.Group("/api/v1", middleware.RateLimit(limiter), middleware.Authenticate(tokens))
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", h.Signup)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)

		v1.GET("/posts", h.ListPosts)
		v1.GET("/posts/:id", h.GetPost)
		v1.GET("/posts/:id/comments", h.ListComments)
		v1.GET("/groups", h.ListGroups)
		v1.GET("/groups/:slug/posts", h.GroupPosts)
		v1.GET("/profiles/:username", h.Profile)

		authed := v1.Group("", middleware.RequireAuth())
		authed.POST("/posts", h.CreatePost)
		authed.PUT("/posts/:id", h.EditPost)
		authed.DELETE("/posts/:id", h.DeletePost)
		authed.POST("/posts/:id/comments", h.AddComment)
		authed.POST("/profiles/:username/follow", h.Follow)
		authed.POST("/profiles/:username/unfollow", h.Unfollow)
		authed.GET("/follow", h.FollowFeed)
		authed.GET("/follow/authors", h.ListFollowing)

		admin := v1.Group("/admin", middleware.RequireAdmin())
		admin.POST("/groups", h.CreateGroup)
		admin.DELETE("/groups/:slug", h.DeleteGroup)
	}

	r.NoRoute(func(c *gin.Context) { response.NotFound(c, "not found") })
	return r
}

func corsConfig(c config.CORSConfig) cors.Config {
	cc := cors.DefaultConfig()
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", "X-Request-Id")
	cc.ExposeHeaders = []string{"X-Request-Id"}
	if len(c.AllowOrigins) == 0 || (len(c.AllowOrigins) == 1 && c.AllowOrigins[0] == "*") {
		cc.AllowAllOrigins = true
		return cc
	}
	cc.AllowOrigins = c.AllowOrigins
	cc.AllowCredentials = true
	return cc
}
