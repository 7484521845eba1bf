// Package http is the REST adapter. It translates HTTP requests into
// use-case calls and maps error kinds onto status codes; no business logic
// lives at this layer.
package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velopay/walletd/internal/adapters/http/handlers"
	"github.com/velopay/walletd/internal/adapters/http/middleware"
)

// RouterConfig carries everything the router needs.
type RouterConfig struct {
	WalletHandler *handlers.WalletHandler
	HealthHandler *handlers.HealthHandler
	JWTSecret     string
	CORSOrigins   []string
	RateLimit     int
	RateWindow    time.Duration
	Logger        *slog.Logger
	Debug         bool
}

// NewRouter builds the gin engine with the full middleware chain and routes.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers.SetupValidator()

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(cfg.Logger),
		middleware.Logging(cfg.Logger),
		middleware.Metrics(),
		middleware.CORS(cfg.CORSOrigins),
	)

	router.GET("/health/live", cfg.HealthHandler.Live)
	router.GET("/health/ready", cfg.HealthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wallets := router.Group("/wallets", middleware.RateLimit(cfg.RateLimit, cfg.RateWindow))
	{
		wallets.POST("", cfg.WalletHandler.Create)
		wallets.GET("/:id", cfg.WalletHandler.Get)
		wallets.POST("/:id/deposit", cfg.WalletHandler.Deposit)
		wallets.POST("/:id/withdraw", cfg.WalletHandler.Withdraw)
		wallets.POST("/:id/transfer", cfg.WalletHandler.Transfer)
		wallets.GET("/:id/balance", cfg.WalletHandler.Balance)
		wallets.GET("/:id/transactions", cfg.WalletHandler.Transactions)
	}

	admin := router.Group("/admin/wallets", middleware.AdminAuth(cfg.JWTSecret))
	{
		admin.POST("/:id/freeze", cfg.WalletHandler.Freeze)
		admin.POST("/:id/unfreeze", cfg.WalletHandler.Unfreeze)
		admin.POST("/:id/close", cfg.WalletHandler.Close)
	}

	return router
}
