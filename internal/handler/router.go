package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/webgis-caps/rocksample-api/internal/middleware"
	"github.com/webgis-caps/rocksample-api/internal/models"
	"github.com/webgis-caps/rocksample-api/internal/service"
	"github.com/webgis-caps/rocksample-api/pkg/config"
	"github.com/webgis-caps/rocksample-api/pkg/logger"
	corsmiddleware "github.com/webgis-caps/rocksample-api/pkg/middleware/cors"
	reqidmiddleware "github.com/webgis-caps/rocksample-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler for router assembly.
type Handlers struct {
	Auth         *AuthHandler
	Samples      *SampleHandler
	Verification *VerificationHandler
	Archives     *ArchiveHandler
	Map          *MapHandler
	Dashboard    *DashboardHandler
	Users        *UserHandler
	Images       *ImageHandler
	Exports      *ExportHandler
}

// NewRouter builds the gin engine with all middleware and routes mounted.
// Exports may be nil when disabled by configuration.
func NewRouter(cfg *config.Config, logr *zap.Logger, auth *service.AuthService, metrics *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/signup", h.Auth.Signup)
		authGroup.POST("/refresh", h.Auth.Refresh)

		protected := authGroup.Group("", middleware.JWT(auth))
		protected.POST("/logout", h.Auth.Logout)
		protected.POST("/change-password", h.Auth.ChangePassword)
		protected.GET("/me", h.Auth.Me)
	}

	samples := api.Group("/samples", middleware.JWT(auth))
	{
		samples.POST("", h.Samples.Submit)
		samples.GET("", h.Samples.List)
		samples.GET("/verified", h.Samples.Verified)
		samples.GET("/:id", h.Samples.Get)
		samples.PUT("/:id", h.Samples.Update)
		samples.DELETE("/:id", h.Samples.Delete)
		samples.GET("/:id/images/:type", h.Images.GetBySlot)
		samples.PUT("/:id/images/:type", h.Images.Replace)

		samples.POST("/:id/approve", middleware.Staff(), h.Verification.Approve)
		samples.POST("/:id/reject", middleware.Staff(), h.Verification.Reject)
		samples.POST("/:id/archive", middleware.Staff(), h.Archives.Archive)
		samples.DELETE("/:id/archive", middleware.AdminOnly(), h.Archives.Unarchive)
	}

	verification := api.Group("/verification", middleware.JWT(auth), middleware.Staff())
	{
		verification.GET("/queue", h.Verification.Queue)
	}

	archives := api.Group("/archives", middleware.JWT(auth))
	{
		archives.GET("", h.Archives.List)
	}

	mapGroup := api.Group("/map", middleware.OptionalJWT(auth))
	{
		mapGroup.GET("/markers", h.Map.Markers)
		mapGroup.GET("/locations", h.Map.Locations)
	}

	dashboard := api.Group("/dashboard", middleware.JWT(auth), middleware.Staff())
	{
		dashboard.GET("/stats", h.Dashboard.Stats)
		dashboard.GET("/activity", h.Dashboard.ActivityLog)
		dashboard.GET("/activity/recent", h.Dashboard.RecentActivity)
	}

	users := api.Group("/users", middleware.JWT(auth))
	{
		users.POST("", middleware.AdminOnly(), h.Users.Create)
		users.GET("", middleware.AdminOnly(), h.Users.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Users.Get)
		users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), "SELF"), h.Users.Update)
		users.POST("/:id/toggle", middleware.AdminOnly(), h.Users.SetActive)
		users.DELETE("/:id", middleware.AdminOnly(), h.Users.Delete)
	}

	images := api.Group("/images", middleware.JWT(auth))
	{
		images.GET("/:id", h.Images.Get)
	}

	if h.Exports != nil {
		exports := api.Group("/exports")
		exports.GET("/download/:token", h.Exports.Download)

		staffExports := exports.Group("", middleware.JWT(auth), middleware.Staff())
		staffExports.POST("", h.Exports.Enqueue)
		staffExports.GET("/:id", h.Exports.Status)
	}

	return r
}
