// Package main is the entry point for the FarmaPOS API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"farmapos/internal/domain/auth"
	"farmapos/internal/domain/client"
	"farmapos/internal/domain/commission"
	"farmapos/internal/domain/events"
	"farmapos/internal/domain/loyalty"
	"farmapos/internal/domain/notification"
	"farmapos/internal/domain/product"
	"farmapos/internal/domain/receipt"
	"farmapos/internal/domain/register"
	"farmapos/internal/domain/sale"
	"farmapos/internal/infrastructure/cache"
	v1 "farmapos/internal/infrastructure/http/v1"
	"farmapos/internal/infrastructure/storage/postgres"
	"farmapos/pkg/logger"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting farmapos server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txm := postgres.NewTxManager(pool)

	// --- Repositories ---
	productRepo := postgres.NewProductRepo(txm)
	clientRepo := postgres.NewClientRepo(txm)
	saleRepo := postgres.NewSaleRepo(txm)
	registerRepo := postgres.NewRegisterRepo(txm)
	commissionRepo := postgres.NewCommissionRepo(txm)
	loyaltyRepo := postgres.NewLoyaltyRepo(txm)
	notificationRepo := postgres.NewNotificationRepo(txm)
	userRepo := postgres.NewUserRepo(txm)

	auditService, err := postgres.NewAuditService(txm)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}

	// --- Product cache ---
	var productCache product.Cache = cache.Noop{}
	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		productCache = cache.NewProductCache(addr, getEnv("REDIS_PASSWORD", ""), getEnvInt("REDIS_DB", 0))
		log.Infow("product cache enabled", "addr", addr)
	}
	// Stock writes from the cart engine must evict cached products.
	catalogRepo := cache.NewInvalidatingRepo(productRepo, productCache)

	// --- Domain services ---
	notificationService := notification.NewService(notificationRepo, productRepo)
	productService := product.NewService(catalogRepo, productCache)
	clientService := client.NewService(clientRepo, notificationService)
	loyaltyService := loyalty.NewService(loyaltyRepo)
	commissionService := commission.NewService(commissionRepo)

	commissionGenerator, err := commission.NewGenerator(commissionRepo)
	if err != nil {
		log.Fatalw("failed to initialize commission generator", "error", err)
	}
	pointsSettler := loyalty.NewSettler(loyaltyRepo, clientRepo)

	// --- Event bus ---
	bus := events.NewBus()
	bus.SubscribeSaleCompleted(postgres.NewSaleAuditSubscriber(saleRepo, auditService))

	// --- Cart engine ---
	cartOpts := sale.DefaultOptions()
	if raw := getEnv("LARGE_SALE_THRESHOLD", ""); raw != "" {
		if threshold, err := decimal.NewFromString(raw); err == nil {
			cartOpts.LargeSaleThreshold = threshold
		}
	}
	cartEngine := sale.NewEngine(saleRepo, catalogRepo, clientRepo, txm, cartOpts).
		WithCommissions(commissionGenerator).
		WithPoints(pointsSettler).
		WithNotifier(notificationService).
		WithBus(bus)

	registerService := register.NewService(registerRepo, saleRepo, txm)

	receiptRenderer := receipt.NewTextRenderer(
		[]string{getEnv("RECEIPT_HEADER", "FarmaPOS")},
		[]string{getEnv("RECEIPT_FOOTER", "Thank you for your purchase")},
	)

	// --- Auth ---
	jwtSecret := mustEnv("JWT_SECRET")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))
	authService := auth.NewService(userRepo, jwtService, auth.DefaultServiceConfig())

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:                pool,
		Logger:              log,
		JWTValidator:        jwtService,
		AuthService:         authService,
		ProductService:      productService,
		ClientService:       clientService,
		CartEngine:          cartEngine,
		SaleRepo:            saleRepo,
		ReceiptRenderer:     receiptRenderer,
		AuditService:        auditService,
		RegisterService:     registerService,
		CommissionService:   commissionService,
		LoyaltyService:      loyaltyService,
		NotificationService: notificationService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
