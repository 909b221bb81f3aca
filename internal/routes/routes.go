package routes

import (
	"catalog-admin-service/internal/config"
	"catalog-admin-service/internal/handlers"
	"catalog-admin-service/internal/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Health     *handlers.HealthHandler
	Auth       *handlers.AuthHandler
	Categories *handlers.CategoryHandler
	Products   *handlers.ProductHandler
	Import     *handlers.ImportHandler
}

// Dependencies are the middlewares shared by the route groups
type Dependencies struct {
	Errors *middleware.ErrorRegistry
	Signer *middleware.TokenSigner
	Tokens middleware.TokenAuthenticator
}

// NewRouter builds the engine. Unknown routes and wrong methods render through
// the error registry like any handler error.
func NewRouter(cfg *config.Config, deps Dependencies, h Handlers) *gin.Engine {
	middleware.UseJSONFieldNames()

	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(middleware.RequestID())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{SkipPaths: []string{"/health", "/ready"}}))
	router.Use(deps.Errors.Middleware())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	router.NoRoute(deps.Errors.NoRoute())
	router.NoMethod(middleware.MethodNotAllowed(router))

	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.Static("/storage", cfg.StoragePath)

	api := router.Group(cfg.APIPrefix)
	api.GET("", h.Auth.Ping)
	api.GET("/users", h.Auth.ListUsers)

	authenticated := middleware.AuthMiddleware(deps.Signer, deps.Tokens)
	SetupAuthRoutes(api, h.Auth, authenticated)

	admin := api.Group("/admin")
	admin.Use(authenticated, middleware.RequireAdmin())
	SetupCategoryRoutes(admin, h.Categories, h.Import)
	SetupProductRoutes(admin, h.Products)

	return router
}

// SetupAuthRoutes registers the "/auth/*" endpoints
func SetupAuthRoutes(api *gin.RouterGroup, h *handlers.AuthHandler, authenticated gin.HandlerFunc) {
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
	}

	session := auth.Group("", authenticated)
	{
		session.POST("/logout", h.Logout)
		session.POST("/logout-all", h.LogoutAll)
		session.GET("/me", h.Me)
		session.PUT("/profile", h.UpdateProfile)
		session.PUT("/change-password", h.ChangePassword)
		session.GET("/tokens", h.ListTokens)
		session.DELETE("/tokens/:id", h.RevokeToken)
		session.GET("/check-token", h.CheckToken)
		session.POST("/upload-avatar", h.UploadAvatar)
	}
}

// SetupCategoryRoutes registers the "/admin/categories/*" endpoints
func SetupCategoryRoutes(admin *gin.RouterGroup, h *handlers.CategoryHandler, imports *handlers.ImportHandler) {
	categories := admin.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.POST("", h.CreateCategory)
		categories.GET("/options", h.GetOptions)
		categories.GET("/tree", h.GetCategoryTree)
		categories.POST("/sync-products-count", h.SyncAllProductsCounts)

		categories.POST("/bulk", h.BulkCreateCategories)
		categories.POST("/bulk-delete", h.BulkDeleteCategories)
		categories.POST("/bulk-restore", h.BulkRestoreCategories)
		categories.PATCH("/bulk-status", h.BulkUpdateCategoryStatus)

		categories.GET("/import/template", imports.GetImportTemplate)
		categories.POST("/import", imports.ImportCategories)
		categories.GET("/export", imports.ExportCategories)

		categories.GET("/:id", h.GetCategory)
		categories.PUT("/:id", h.UpdateCategory)
		categories.PATCH("/:id", h.UpdateCategory)
		categories.DELETE("/:id", h.DeleteCategory)
		categories.POST("/:id/restore", h.RestoreCategory)
		categories.PATCH("/:id/status", h.UpdateCategoryStatus)
		categories.GET("/:id/ancestors", h.GetAncestors)
		categories.GET("/:id/breadcrumb", h.GetBreadcrumb)
		categories.GET("/:id/children", h.GetChildren)
		categories.GET("/:id/descendants", h.GetDescendants)
		categories.GET("/:id/products", h.GetCategoryProducts)
		categories.POST("/:id/sync-products-count", h.SyncProductsCount)
	}
}

// SetupProductRoutes registers the "/admin/products/*" endpoints
func SetupProductRoutes(admin *gin.RouterGroup, h *handlers.ProductHandler) {
	products := admin.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.POST("", h.CreateProduct)
		products.GET("/:id", h.GetProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.PATCH("/:id", h.UpdateProduct)
		products.DELETE("/:id", h.DeleteProduct)
		products.POST("/:id/restore", h.RestoreProduct)
	}
}
