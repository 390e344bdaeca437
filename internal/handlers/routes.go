package handlers

import (
	"time"

	"github.com/arzan03/shopfront/internal/auth"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/metrics"
	"github.com/arzan03/shopfront/internal/middleware"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type AppConfig struct {
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	AccessLog    bool
}

// NewApp builds the fiber app with the shared error handler and the global middleware stack.
func NewApp(cfg AppConfig, log logger.Logger, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "shopfront",
		BodyLimit:    cfg.BodyLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.AccessLog {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New())
	app.Use(middleware.MetricsMiddleware(m))
	return app
}

type Handlers struct {
	Auth    *AuthHandler
	Admin   *AdminHandler
	User    *UserHandler
	Catalog *CatalogHandler
	Cart    *CartHandler
	Order   *OrderHandler
	Health  *HealthHandler
}

// RegisterRoutes mounts every route. metricsPath is skipped when empty or m is nil.
func RegisterRoutes(app *fiber.App, h Handlers, issuer *auth.TokenIssuer, m *metrics.Metrics, metricsPath string) {
	authenticated := middleware.AuthMiddleware(issuer)
	admin := middleware.AdminMiddleware()
	catalogWriters := middleware.RequireRoles(models.RoleAdmin, models.RoleVendor)
	customer := middleware.RequireRoles(models.RoleCustomer)

	app.Get("/health", h.Health.Health)
	if m != nil && metricsPath != "" {
		app.Get(metricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	// Auth Routes
	authGroup := app.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)

	password := app.Group("/password")
	password.Post("/forgot", h.Auth.ForgotPassword)
	password.Post("/reset", h.Auth.ResetPassword)

	// "/me" routes come first so "/:id" does not capture them.
	users := app.Group("/users", authenticated)
	users.Get("/me", h.User.Me)
	users.Put("/me/password", h.User.ChangePassword)
	users.Post("/me/image", h.User.UploadProfileImage)
	users.Get("/", admin, h.Admin.ListUsers)
	users.Post("/", admin, h.Admin.CreateUser)
	users.Get("/:id", admin, h.Admin.GetUserByID)
	users.Put("/:id", admin, h.Admin.UpdateUser)
	users.Delete("/:id", admin, h.Admin.DeleteUser)

	categories := app.Group("/categories")
	categories.Get("/", h.Catalog.ListCategories)
	categories.Get("/:id", h.Catalog.GetCategory)
	categories.Post("/", authenticated, admin, h.Catalog.CreateCategory)
	categories.Put("/:id", authenticated, admin, h.Catalog.UpdateCategory)
	categories.Delete("/:id", authenticated, admin, h.Catalog.DeleteCategory)

	products := app.Group("/products")
	products.Get("/", h.Catalog.ListProducts)
	products.Get("/:id", h.Catalog.GetProduct)
	products.Post("/", authenticated, catalogWriters, h.Catalog.CreateProduct)
	products.Put("/:id", authenticated, catalogWriters, h.Catalog.UpdateProduct)
	products.Delete("/:id", authenticated, catalogWriters, h.Catalog.DeleteProduct)
	products.Post("/:id/image", authenticated, catalogWriters, h.Catalog.AddProductImage)
	products.Delete("/:id/image", authenticated, catalogWriters, h.Catalog.RemoveProductImage)

	cart := app.Group("/cart", authenticated)
	cart.Get("/:userId", h.Cart.GetCart)
	cart.Post("/:userId", h.Cart.CreateCart)
	cart.Post("/:userId/items", h.Cart.AddItem)
	cart.Put("/:userId/items/:itemId", h.Cart.UpdateItem)
	cart.Delete("/:userId/items/:itemId", h.Cart.RemoveItem)

	orders := app.Group("/orders", authenticated)
	orders.Get("/admin/all", admin, h.Order.ListAllOrders)
	orders.Patch("/admin/:id/status", admin, h.Order.UpdateStatus)
	orders.Post("/", customer, h.Order.CreateOrder)
	orders.Get("/", customer, h.Order.GetMyOrders)
	orders.Get("/:id", customer, h.Order.GetOrder)
	orders.Patch("/:id/cancel", customer, h.Order.CancelOrder)
}
