package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danglehoang/vietqr-gateway/configs"
	"github.com/danglehoang/vietqr-gateway/internal/clock"
	"github.com/danglehoang/vietqr-gateway/internal/handlers"
	"github.com/danglehoang/vietqr-gateway/internal/matcher"
	"github.com/danglehoang/vietqr-gateway/internal/registry"
	"github.com/danglehoang/vietqr-gateway/internal/services"
	"github.com/danglehoang/vietqr-gateway/internal/store"
	"github.com/danglehoang/vietqr-gateway/pkg"
	"github.com/danglehoang/vietqr-gateway/pkg/cache"
	middleware "github.com/danglehoang/vietqr-gateway/pkg/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	// Optional Redis backend for the distributed QR rate limiter
	var redisClient *redis.Client
	disconnect := func() {}
	if cfg.RedisAddr != "" {
		client, closer, err := cache.New(ctx, cache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, nil, err
		}
		redisClient = client
		disconnect = closer
	}

	// Setup dependencies
	clk := clock.NewSystem()
	orderStore := store.NewFileStore(cfg.OrdersFile, logger)
	pendingRegistry := registry.New(clk)
	orderMatcher := matcher.New(pendingRegistry, orderStore, logger)

	confirmService := services.NewConfirmationService(logger, pendingRegistry, orderStore, orderMatcher, clk,
		services.WithWaitTimeout(time.Duration(cfg.WaitTimeoutSeconds)*time.Second))
	qrService := services.NewVietQRClient(logger, cfg)

	qrLimiter := pkg.NewDistributedLimiter(redisClient, "global:qr_rate", cfg.QRRateLimit, cfg.QRRateBurst, time.Minute, logger)

	baseHandler := handlers.NewBaseHandler(logger)
	paymentHandler := handlers.NewPaymentHandler(logger, qrService, confirmService, qrLimiter)

	// Router
	r := gin.Default()
	r.Use(middleware.CORS())

	api := r.Group("")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())

	paymentHandler.RegisterRoutes(api)
	baseHandler.RegisterRoutes(r)

	// Landing page
	r.StaticFile("/", "./web/index.html")

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	cleanup := func() {
		disconnect()
	}

	return srv, cleanup, nil
}
