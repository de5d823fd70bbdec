package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/gorm"

	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/middleware"
	"github.com/example/storefront/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, gateway services.Gateway) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Key",
	}))

	// Notifications
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	mailService := services.NewMailService(cfg.SendGridAPIKey, cfg.MailFromAddress, cfg.MailFromName)

	cartService := services.NewCartService(db)
	orderService := services.NewOrderService(db)
	addressService := services.NewAddressService(db)
	checkoutService := services.NewCheckoutService(db, gateway, telegramService, mailService, services.CheckoutConfig{
		Currency:       cfg.PaymentCurrency,
		GatewayTimeout: cfg.GatewayTimeout,
	})
	app.Hooks().OnShutdown(func() error {
		checkoutService.Wait()
		return nil
	})

	authHandler := handlers.NewAuthHandler(db, cfg)
	catalogHandler := handlers.NewCatalogHandler(db)
	cartHandler := handlers.NewCartHandler(cartService)
	orderHandler := handlers.NewOrderHandler(orderService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	addressHandler := handlers.NewAddressHandler(addressService)
	adminHandler := handlers.NewAdminHandler(db, orderService)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Catalog routes
	items := api.Group("/items")
	items.Get("/", catalogHandler.ListItems)
	items.Get("/:slug", catalogHandler.GetItem)

	// Operator routes
	admin := api.Group("/admin", middleware.AdminKeyMiddleware(cfg.AdminAPIKey))
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Post("/orders/:action", adminHandler.ApplyFulfillment)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Get("/user/id", authHandler.UserID)

	protected.Post("/cart/add", cartHandler.AddToCart)
	protected.Post("/cart/subtract", cartHandler.SubtractFromCart)
	protected.Delete("/order-items/:id", cartHandler.DeleteOrderItem)

	protected.Get("/order-summary", orderHandler.OrderSummary)
	protected.Post("/coupon", orderHandler.ApplyCoupon)
	protected.Post("/checkout", checkoutHandler.Checkout)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/payments", orderHandler.ListPayments)
	protected.Post("/refunds", orderHandler.RequestRefund)

	protected.Get("/addresses", addressHandler.ListAddresses)
	protected.Post("/addresses", addressHandler.CreateAddress)
	protected.Put("/addresses/:id", addressHandler.UpdateAddress)
	protected.Delete("/addresses/:id", addressHandler.DeleteAddress)
}
