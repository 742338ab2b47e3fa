package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kart-commerce/internal/cache"
	"kart-commerce/internal/config"
	"kart-commerce/internal/coupon"
	"kart-commerce/internal/database"
	"kart-commerce/internal/handler"
	"kart-commerce/internal/notify"
	"kart-commerce/internal/payment"
	"kart-commerce/internal/repository"
	"kart-commerce/internal/router"
	"kart-commerce/internal/service"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting kart-commerce API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connection pool; the schema is applied on start
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)
	ledger := repository.NewInventoryLedger(logger)

	productCache, closeCache := newCache(ctx, cfg.Redis, logger)
	defer closeCache()

	evaluator, closeCoupons, err := newEvaluator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCoupons()

	gateway := payment.NewStripeGateway(cfg.Payment, logger)

	dispatcher := notify.NewDispatcher(notify.NewLogMailer(logger), notify.DispatcherConfig{
		Workers:   4,
		QueueSize: 256,
		Timeout:   10 * time.Second,
	}, logger)

	deps := service.Dependencies{
		Orders:    orderRepo,
		Products:  productRepo,
		Payments:  paymentRepo,
		Ledger:    ledger,
		Gateway:   gateway,
		Evaluator: evaluator,
		Cache:     productCache,
		Notifier:  dispatcher,
	}
	opts := service.Options{
		DefaultCurrency:  cfg.Payment.DefaultCurrency,
		GatewayTimeout:   cfg.Payment.Timeout,
		WebhookSecret:    cfg.Payment.WebhookSecret,
		WebhookTolerance: cfg.Payment.WebhookTolerance,
	}

	productService := service.NewProductService(productRepo, productCache, cfg.Redis.TTL, logger)
	orderService := service.NewOrderService(deps, opts, logger)
	paymentService := service.NewPaymentService(deps, opts, logger)
	webhookService := service.NewWebhookService(deps, opts, logger)

	mux := router.New(router.Handlers{
		Products: handler.NewProductHandler(productService, logger),
		Orders:   handler.NewOrderHandler(orderService, logger),
		Payments: handler.NewPaymentHandler(paymentService, logger),
		Webhooks: handler.NewWebhookHandler(webhookService, cfg.Payment.WebhookMaxRetries, logger),
	}, cfg.Auth.APIKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.Payment.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// Drain queued notifications once no handler can enqueue more
		dispatcher.Close()

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newCache connects the catalogue cache. An unreachable Redis degrades to
// serving every read from the database.
func newCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (cache.Cache, func()) {
	if !cfg.Enabled {
		logger.Info().Msg("catalogue cache disabled")
		return cache.NopCache{}, func() {}
	}

	redisCache, err := cache.NewRedisCache(ctx, cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to connect to redis, catalogue cache disabled")
		return cache.NopCache{}, func() {}
	}

	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close redis client")
		}
	}
}

// newEvaluator loads the coupon bases, preferring S3 with a local fallback.
// A disabled coupon feature yields a nil evaluator, which rejects promo codes.
func newEvaluator(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (coupon.Evaluator, func(), error) {
	if !cfg.Coupon.Enabled {
		logger.Info().Msg("promo codes disabled")
		return nil, func() {}, nil
	}

	fileLoader := coupon.NewFileLoader(logger)
	loader := fileLoader

	if cfg.S3.Enabled {
		s3Loader, err := coupon.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
		} else {
			loader = coupon.NewFallbackLoader(s3Loader, fileLoader, cfg.S3.Prefix, logger)
		}
	} else {
		logger.Info().Msg("using local file system for coupon files (S3 disabled)")
	}

	validator, err := coupon.NewValidator(ctx, &coupon.ValidatorConfig{
		Sources:       cfg.Coupon.Files,
		MinMatchCount: cfg.Coupon.MinMatches,
	}, loader, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize coupon validator: %w", err)
	}
	closeValidator := func() {
		if err := validator.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close coupon validator")
		}
	}

	percent, err := decimal.NewFromString(cfg.Coupon.DiscountPercent)
	if err != nil {
		closeValidator()
		return nil, nil, fmt.Errorf("invalid coupon discount percent %q: %w", cfg.Coupon.DiscountPercent, err)
	}

	evaluator, err := coupon.NewPercentEvaluator(validator, percent)
	if err != nil {
		closeValidator()
		return nil, nil, err
	}

	return evaluator, closeValidator, nil
}
