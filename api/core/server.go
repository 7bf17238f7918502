package core

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/anoixa/image-store/api/common"
	"github.com/anoixa/image-store/api/handler/images"
	"github.com/anoixa/image-store/api/middleware"
	"github.com/anoixa/image-store/config"
)

var startTime = time.Now()

// multipartSlack multipart 编码与表单字段的额外空间
const multipartSlack = 1 << 20

// ServerDependencies 服务器依赖项
type ServerDependencies struct {
	Config       *config.Config
	Images       images.ImageService
	HealthChecks map[string]HealthCheck
}

// 启动gin
func setupRouter(deps *ServerDependencies) (*gin.Engine, func()) {
	cfg := deps.Config

	// 模式需在创建引擎前设置
	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsDevelopment() {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	_ = router.SetTrustedProxies(nil)

	maxUpload := cfg.UploadMaxBytes()
	router.MaxMultipartMemory = maxUpload

	router.Use(middleware.NewConcurrencyLimiter(cfg.ServerMaxConcurrency).Middleware())

	// base64 JSON 上传约为原始大小的 4/3
	router.Use(middleware.MaxBytesReader(maxUpload/3*4 + multipartSlack))
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	imageRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitImageRPS, cfg.RateLimitImageBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		apiRateLimiter.StopCleanup()
		imageRateLimiter.StopCleanup()
	}

	router.GET("/health", func(context *gin.Context) {
		checks, healthy := runHealthChecks(context.Request.Context(), deps.HealthChecks)
		status := "ok"
		httpStatus := http.StatusOK
		if !healthy {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
		context.JSON(httpStatus, gin.H{
			"status":  status,
			"uptime":  time.Since(startTime).Round(time.Second).String(),
			"version": config.Version,
			"checks":  checks,
		})
	})
	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version":    config.Version,
			"commit":     config.CommitHash,
			"build_time": config.BuildTime,
		})
	})
	router.GET("/metrics", func(context *gin.Context) {
		context.JSON(http.StatusOK, middleware.GetMetrics())
	})

	imageHandler := images.NewHandler(deps.Images, maxUpload)
	identity := middleware.Identity(middleware.IdentityConfig{
		JWTSecret:  cfg.AuthJWTSecret,
		UserHeader: cfg.AuthUserHeader,
	})

	v1 := router.Group("/api/v1")
	v1.Use(identity)
	{
		imagesGroup := v1.Group("/images")
		{
			imagesGroup.POST("", apiRateLimiter.Middleware(), imageHandler.UploadImage)
			imagesGroup.GET("", apiRateLimiter.Middleware(), imageHandler.ListImages)
			imagesGroup.GET("/:image_id", imageRateLimiter.Middleware(), imageHandler.GetImage)
			imagesGroup.DELETE("/:image_id", apiRateLimiter.Middleware(), imageHandler.DeleteImage)
		}
	}

	return router, cleanup
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", "ETag", images.MetadataHeader, middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if cfg.AuthUserHeader != "" {
		c.AllowHeaders = append(c.AllowHeaders, cfg.AuthUserHeader)
	}

	allowAll := len(cfg.ServerCorsOrigins) == 0
	for _, o := range cfg.ServerCorsOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.ServerCorsOrigins
		c.AllowCredentials = true
	}
	return c
}

// StartServer 创建 http.Server
func StartServer(deps *ServerDependencies) (*http.Server, func()) {
	cfg := deps.Config
	router, clean := setupRouter(deps)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, clean
}
