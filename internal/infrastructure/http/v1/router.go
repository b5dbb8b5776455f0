// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"farmapos/internal/domain/auth"
	"farmapos/internal/domain/client"
	"farmapos/internal/domain/commission"
	"farmapos/internal/domain/loyalty"
	"farmapos/internal/domain/notification"
	"farmapos/internal/domain/product"
	"farmapos/internal/domain/receipt"
	"farmapos/internal/domain/register"
	"farmapos/internal/domain/sale"
	"farmapos/internal/infrastructure/http/v1/handlers"
	"farmapos/internal/infrastructure/http/v1/middleware"
	"farmapos/internal/infrastructure/storage/postgres"
	"farmapos/pkg/logger"
)

// RouterConfig holds everything the router wires into handlers.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	JWTValidator middleware.JWTValidator

	AuthService         *auth.Service
	ProductService      *product.Service
	ClientService       *client.Service
	CartEngine          *sale.Engine
	SaleRepo            sale.Repository
	ReceiptRenderer     receipt.Renderer
	AuditService        *postgres.AuditService
	RegisterService     *register.Service
	CommissionService   *commission.Service
	LoyaltyService      *loyalty.Service
	NotificationService *notification.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	authHandler := handlers.NewAuthHandler(cfg.AuthService)

	v1 := router.Group("/api/v1")
	{
		// Public auth endpoints
		v1.POST("/auth/login", authHandler.Login)

		// Protected endpoints: JWT carries tenant and user identity
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))

		adminOnly := middleware.RequireRole(auth.RoleAdmin)

		protected.POST("/auth/register", adminOnly, authHandler.Register)

		registerCatalogRoutes(protected, cfg, adminOnly)
		registerPOSRoutes(protected, cfg, adminOnly)
		registerBackOfficeRoutes(protected, cfg, adminOnly)
	}

	return router
}

// registerCatalogRoutes wires product and client endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, cfg RouterConfig, adminOnly gin.HandlerFunc) {
	productHandler := handlers.NewProductHandler(cfg.ProductService)
	products := rg.Group("/products")
	{
		products.GET("", productHandler.List)
		products.GET("/low-stock", productHandler.LowStock)
		products.GET("/barcode/:barcode", productHandler.GetByBarcode)
		products.GET("/:id", productHandler.Get)
		products.POST("", adminOnly, productHandler.Create)
		products.PUT("/:id", adminOnly, productHandler.Update)
		products.DELETE("/:id", adminOnly, productHandler.Delete)
	}

	clientHandler := handlers.NewClientHandler(cfg.ClientService, cfg.LoyaltyService)
	clients := rg.Group("/clients")
	{
		clients.GET("", clientHandler.List)
		clients.POST("", clientHandler.Create)
		clients.GET("/:id", clientHandler.Get)
		clients.PUT("/:id", clientHandler.Update)
		clients.GET("/:id/redemptions", clientHandler.History)
	}
}

// registerPOSRoutes wires the cashier-facing cart and drawer endpoints.
func registerPOSRoutes(rg *gin.RouterGroup, cfg RouterConfig, adminOnly gin.HandlerFunc) {
	cartHandler := handlers.NewCartHandler(cfg.CartEngine, cfg.LoyaltyService)
	cart := rg.Group("/pos/cart")
	{
		cart.GET("", cartHandler.Current)
		cart.POST("/items", cartHandler.AddItem)
		cart.PUT("/items/quantity", cartHandler.UpdateQuantity)
		cart.PUT("/items/unit", cartHandler.ChangeUnit)
		cart.DELETE("/items/:productId", cartHandler.RemoveItem)
		cart.POST("/redeem", cartHandler.RedeemPoints)
		cart.DELETE("/redeem/:redeemableId", cartHandler.RemoveRedeemed)
		cart.PUT("/client", cartHandler.AttachClient)
		cart.PUT("/discount", cartHandler.SetDiscount)
		cart.PUT("/note", cartHandler.SetNote)
		cart.POST("/cancel", cartHandler.Cancel)
		cart.POST("/finalize", cartHandler.Finalize)
	}

	saleHandler := handlers.NewSaleHandler(cfg.SaleRepo, cfg.ReceiptRenderer, cfg.AuditService)
	sales := rg.Group("/sales")
	{
		sales.GET("/:id", saleHandler.Get)
		sales.GET("/:id/receipt", saleHandler.Receipt)
		sales.GET("/:id/audit", adminOnly, saleHandler.Audit)
	}

	registerHandler := handlers.NewRegisterHandler(cfg.RegisterService)
	reg := rg.Group("/register")
	{
		reg.POST("/open", registerHandler.Open)
		reg.GET("/current", registerHandler.Current)
		reg.POST("/:id/close", registerHandler.Close)
		reg.GET("/sessions", registerHandler.List)
	}
}

// registerBackOfficeRoutes wires commissions, loyalty and notifications.
func registerBackOfficeRoutes(rg *gin.RouterGroup, cfg RouterConfig, adminOnly gin.HandlerFunc) {
	commissionHandler := handlers.NewCommissionHandler(cfg.CommissionService)
	commissions := rg.Group("/commissions")
	{
		commissions.GET("/rules", commissionHandler.ListRules)
		commissions.POST("/rules", adminOnly, commissionHandler.CreateRule)
		commissions.GET("/rules/:id", commissionHandler.GetRule)
		commissions.POST("/rules/:id/deactivate", adminOnly, commissionHandler.DeactivateRule)
		commissions.GET("/records", commissionHandler.MyRecords)
		commissions.GET("/sales/:id", commissionHandler.SaleRecords)
	}

	loyaltyHandler := handlers.NewLoyaltyHandler(cfg.LoyaltyService)
	loyaltyGroup := rg.Group("/loyalty")
	{
		loyaltyGroup.GET("/promotions", loyaltyHandler.ListPromotions)
		loyaltyGroup.POST("/promotions", adminOnly, loyaltyHandler.CreatePromotion)
		loyaltyGroup.GET("/multiplier", loyaltyHandler.ActiveMultiplier)
		loyaltyGroup.GET("/redeemables", loyaltyHandler.ListRedeemables)
		loyaltyGroup.POST("/redeemables", adminOnly, loyaltyHandler.CreateRedeemable)
	}

	notificationHandler := handlers.NewNotificationHandler(cfg.NotificationService)
	notifications := rg.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/:id", notificationHandler.Get)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
		notifications.POST("/sweep", adminOnly, notificationHandler.SweepExpirations)
	}
}
