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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/mizan-erp/mizan-erp/internal/accounting/accounts"
	"github.com/mizan-erp/mizan-erp/internal/accounting/journals"
	"github.com/mizan-erp/mizan-erp/internal/accounting/mappings"
	"github.com/mizan-erp/mizan-erp/internal/app"
	"github.com/mizan-erp/mizan-erp/internal/auth"
	"github.com/mizan-erp/mizan-erp/internal/integration"
	"github.com/mizan-erp/mizan-erp/internal/inventory"
	"github.com/mizan-erp/mizan-erp/internal/masterdata/products"
	"github.com/mizan-erp/mizan-erp/internal/masterdata/reps"
	"github.com/mizan-erp/mizan-erp/internal/observability"
	"github.com/mizan-erp/mizan-erp/internal/platform/cache"
	"github.com/mizan-erp/mizan-erp/internal/platform/db"
	"github.com/mizan-erp/mizan-erp/internal/procurement"
	"github.com/mizan-erp/mizan-erp/internal/sales"
	"github.com/mizan-erp/mizan-erp/internal/shared"
	"github.com/mizan-erp/mizan-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	tokenStore := auth.NewTokenStore(redisClient, cfg.AuthTokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokenStore)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	journalsRepo := journals.NewRepository(pool)
	journalsService := journals.NewService(journalsRepo, auditLogger)
	journalsHandler := journals.NewHandler(logger, journalsService)

	mappingsRepo := mappings.NewRepository(pool)
	mappingsHandler := mappings.NewHandler(logger, mappingsRepo)

	integrationHooks := integration.NewHooks(journalsService, mappingsRepo, accountsRepo)

	productCache := products.NewCache(redisClient, cfg.ProductCacheTTL)
	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo, productCache)
	productsHandler := products.NewHandler(logger, productsService)

	repsRepo := reps.NewRepository(pool)
	repsService := reps.NewService(repsRepo)
	repsHandler := reps.NewHandler(logger, repsService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, cfg.ValuationMethod())
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, inventoryService, productsService, repsService,
		idempotencyStore, integrationHooks, auditLogger, sales.Config{
			DefaultTaxRate: cfg.DefaultTaxRate,
			DefaultMethod:  cfg.ValuationMethod(),
		})
	salesHandler := sales.NewHandler(logger, salesService)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, inventoryService, idempotencyStore, integrationHooks, auditLogger)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        authHandler,
		AuthMiddleware:     authMiddleware,
		AccountsHandler:    accountsHandler,
		JournalsHandler:    journalsHandler,
		MappingsHandler:    mappingsHandler,
		ProductsHandler:    productsHandler,
		RepsHandler:        repsHandler,
		SalesHandler:       salesHandler,
		ProcurementHandler: procurementHandler,
		InventoryHandler:   inventoryHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
