package routes

import (
	"giftshop-backend/cart"
	"giftshop-backend/events"
	"giftshop-backend/firebase"
	"giftshop-backend/handlers"
	"giftshop-backend/middleware"
	"giftshop-backend/seo"
	"giftshop-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the shared services the handlers are built from. Storage,
// Publisher, Mailer and AuthLimiter may be nil.
type Deps struct {
	DB          *gorm.DB
	Registry    *cart.Registry
	Storage     firebase.Storage
	Publisher   events.Publisher
	Mailer      utils.Mailer
	Site        seo.Site
	StaffEmail  string
	AuthLimiter *middleware.RateLimiter
	Logger      *zap.Logger
}

func SetupRoutes(r *gin.Engine, d Deps) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: d.DB, Registry: d.Registry, Mailer: d.Mailer, Logger: d.Logger}
	productHandler := &handlers.ProductHandler{DB: d.DB, Storage: d.Storage, Site: d.Site, Logger: d.Logger}
	categoryHandler := &handlers.CategoryHandler{DB: d.DB}
	cartHandler := &handlers.CartHandler{DB: d.DB, Registry: d.Registry}
	orderHandler := &handlers.OrderHandler{
		DB: d.DB, Registry: d.Registry, Publisher: d.Publisher, Mailer: d.Mailer, Logger: d.Logger,
	}
	sliderHandler := &handlers.SliderHandler{DB: d.DB, Storage: d.Storage, Logger: d.Logger}
	contactHandler := &handlers.ContactHandler{DB: d.DB, Mailer: d.Mailer, StaffEmail: d.StaffEmail, Logger: d.Logger}
	sitemapHandler := &handlers.SitemapHandler{DB: d.DB, Site: d.Site, Logger: d.Logger}

	r.GET("/sitemap.xml", sitemapHandler.Sitemap)
	r.GET("/robots.txt", sitemapHandler.Robots)

	api := r.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	if d.AuthLimiter != nil {
		auth.Use(d.AuthLimiter.Middleware())
	}
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/forgot-password", authHandler.ForgotPassword)
		auth.POST("/verify-otp", authHandler.VerifyOTP)
		auth.POST("/reset-password", authHandler.ResetPassword)
	}

	// Public catalog routes
	{
		api.GET("/products/homepage", productHandler.Homepage)
		api.GET("/products/all", productHandler.ListAll)
		api.GET("/products/search", productHandler.Search)
		api.GET("/products/category/slug/:slug", productHandler.ByCategorySlug)
		api.GET("/products/:id", productHandler.GetProduct)

		api.GET("/categories/navigation", categoryHandler.Navigation)
		api.GET("/slider-posts", sliderHandler.GetSliderPosts)

		api.POST("/contact", contactHandler.SubmitMessage)
		api.POST("/orders/track", orderHandler.TrackOrder)
	}

	// Cart and checkout work for guests and signed-in users alike.
	session := api.Group("")
	session.Use(middleware.OptionalAuth(), middleware.CartSession())
	{
		session.GET("/cart", cartHandler.GetCart)
		session.GET("/cart/totals", cartHandler.GetTotals)
		session.POST("/cart/items", cartHandler.AddItem)
		session.POST("/cart/duplicates", cartHandler.AddDuplicateItem)
		session.PATCH("/cart/items", cartHandler.UpdateQuantity)
		session.DELETE("/cart/items", cartHandler.RemoveItem)
		session.DELETE("/cart", cartHandler.ClearCart)

		session.POST("/orders", orderHandler.PlaceOrder)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/profile", authHandler.UpdateProfile)
		protected.PUT("/auth/change-password", authHandler.ChangePassword)

		protected.GET("/orders", orderHandler.GetOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	{
		admin.GET("/dashboard", orderHandler.GetAdminDashboard)

		admin.GET("/users", authHandler.ListUsers)
		admin.PUT("/users/:id", authHandler.UpdateUser)

		// Product management
		admin.GET("/products", productHandler.AdminListProducts)
		admin.GET("/products/export", productHandler.ExportProducts)
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)
		admin.POST("/products/:id/images", productHandler.AddImage)
		admin.DELETE("/products/:id/images/:imageId", productHandler.DeleteImage)

		// Category management
		admin.GET("/categories", categoryHandler.GetCategories)
		admin.POST("/categories", categoryHandler.CreateCategory)
		admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
		admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		// Slider management
		admin.GET("/slider-posts", sliderHandler.GetAllSliderPosts)
		admin.POST("/slider-posts", sliderHandler.CreateSliderPost)
		admin.DELETE("/slider-posts/:id", sliderHandler.DeleteSliderPost)

		// Order management
		admin.GET("/orders", orderHandler.ListOrders)
		admin.GET("/orders/transitions", orderHandler.GetOrderTransitions)
		admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)

		admin.GET("/contact-messages", contactHandler.ListMessages)
		admin.PUT("/contact-messages/:id/read", contactHandler.MarkRead)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "active_carts": d.Registry.Sessions()})
	})
}
