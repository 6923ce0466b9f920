package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/hibiken/asynq"

	"github.com/myfruitshop/myfruitshop/internal/analytics"
	analytichttp "github.com/myfruitshop/myfruitshop/internal/analytics/http"
	"github.com/myfruitshop/myfruitshop/internal/app"
	"github.com/myfruitshop/myfruitshop/internal/auth"
	"github.com/myfruitshop/myfruitshop/internal/observability"
	"github.com/myfruitshop/myfruitshop/internal/platform/cache"
	"github.com/myfruitshop/myfruitshop/internal/platform/db"
	"github.com/myfruitshop/myfruitshop/internal/platform/migrate"
	"github.com/myfruitshop/myfruitshop/internal/products"
	"github.com/myfruitshop/myfruitshop/internal/sales"
	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/internal/view"
	"github.com/myfruitshop/myfruitshop/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := migrate.MaybeRunDev(ctx, logger, cfg.PGDSN, cfg.MigrationsAuto, cfg.IsProduction()); err != nil {
		logger.Error("auto migrate", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "fruitshop_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine(view.Options{Location: cfg.Location()})
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	authService := auth.NewService(auth.NewRepository(dbpool), logger)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	reportCache := analytics.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := analytics.NewService(analytics.NewRepository(dbpool), reportCache, metrics, logger, cfg.Location())
	analyticsHandler := analytichttp.NewHandler(logger, reportService, templates, csrfManager)

	productRepo := products.NewRepository(dbpool)
	productService := products.NewService(productRepo, reportCache, logger)
	productHandler := products.NewHandler(logger, productService, templates, csrfManager)

	saleService := sales.NewService(sales.NewRepository(dbpool), productRepo, reportCache, metrics, logger, sales.Config{
		PageSize: cfg.SalesPageSize,
		Location: cfg.Location(),
	})

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	saleHandler := sales.NewHandler(logger, saleService, productService, jobClient, sales.UploadConfig{
		MaxBytes:       cfg.ImportMaxBytes,
		AsyncThreshold: cfg.ImportAsyncThreshold,
	}, templates, csrfManager)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		RequireUser:      auth.RequireUser(logger, authService),
		AuthHandler:      authHandler,
		ProductsHandler:  productHandler,
		SalesHandler:     saleHandler,
		AnalyticsHandler: analyticsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("timezone", cfg.Location().String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
