package main

// @title           gin-blog API
// @version         1.0
// @description     博客平台：帖子、分组、评论与关注
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/api"
	"github.com/d60-Lab/gin-blog/internal/api/handler"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/internal/service"
	"github.com/d60-Lab/gin-blog/pkg/cache"
	"github.com/d60-Lab/gin-blog/pkg/database"
	"github.com/d60-Lab/gin-blog/pkg/logger"
	"github.com/d60-Lab/gin-blog/pkg/media"
	"github.com/d60-Lab/gin-blog/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing)
	if err != nil {
		logger.L().Fatal("tracing init failed", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.L().Fatal("database init failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	feedCache, closeCache := newCache(cfg)
	defer closeCache()

	store, err := newMediaStore(cfg.Media)
	if err != nil {
		logger.L().Fatal("media store init failed", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	authSvc := service.NewAuthService(userRepo, cfg.JWT)
	listingSvc := service.NewListingService(postRepo, groupRepo, userRepo, feedCache, cfg.Feed)
	followSvc := service.NewFollowService(followRepo, userRepo)

	if cfg.Bootstrap.AdminUsername != "" {
		creds := service.Credentials{Username: cfg.Bootstrap.AdminUsername, Password: cfg.Bootstrap.AdminPassword}
		if err := authSvc.EnsureAdmin(context.Background(), creds); err != nil {
			logger.L().Fatal("bootstrap admin failed", zap.Error(err))
		}
	}

	h := handler.NewHandler(handler.Services{
		Auth:      authSvc,
		Listing:   listingSvc,
		Post:      service.NewPostService(postRepo, groupRepo, commentRepo, followRepo, store),
		Comment:   service.NewCommentService(postRepo, commentRepo, userRepo),
		Follow:    followSvc,
		Group:     service.NewGroupService(groupRepo),
		Profile:   service.NewProfileService(userRepo, listingSvc, followSvc),
		Media:     store,
		MaxUpload: cfg.Media.MaxUploadSize,
	})
	router := api.SetupRouter(cfg, h, authSvc)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info("starting http server", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Fatal("listen", zap.Error(err))
		}
	}()

	// 优雅退出
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

// newCache Redis 不可用时退回进程内缓存
func newCache(cfg *config.Config) (cache.Cache, func()) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		_ = client.Close()
		return cache.NewMemoryCache(), func() {}
	}
	return cache.NewRedisCache(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }
}

func newMediaStore(cfg config.MediaConfig) (media.Store, error) {
	if cfg.Backend == "s3" {
		return media.NewS3Store(media.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PublicURL: cfg.S3.PublicURL,
		})
	}
	return media.NewLocalStore(cfg.Root, cfg.URLPrefix)
}
