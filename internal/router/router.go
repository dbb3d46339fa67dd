package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/curriculum-backend/internal/config"
	"github.com/stemsi/curriculum-backend/internal/handler"
	"github.com/stemsi/curriculum-backend/internal/middleware"
	"github.com/stemsi/curriculum-backend/internal/response"
	"github.com/stemsi/curriculum-backend/internal/service"
)

// readMaxAge is how long clients may reuse views of stored curricula.
const readMaxAge = 5 * time.Minute

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Curriculum *handler.CurriculumHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	writeLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Course keys of variant families contain "/", which clients send as %2F.
	router.UseRawPath = true
	router.UnescapePathValues = true

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Brotli())

	router.GET("/health", middleware.CacheControl(0), handlers.System.Health)

	// ─── 1. Public Read Group ──────────────────────────────────────────
	api := router.Group("/api/v1")
	{
		// Validation stores nothing, so it is open like the reads.
		api.POST("/curricula/validate", handlers.Curriculum.Validate)
		api.GET("/modules/:code/curricula", middleware.CacheControl(0), handlers.Curriculum.FindByModule)
	}

	curricula := api.Group("/curricula")
	{
		curricula.GET("", middleware.CacheControl(0), handlers.Curriculum.List)

		stored := curricula.Group("/:id")
		stored.Use(middleware.CacheControl(readMaxAge))
		stored.GET("", handlers.Curriculum.Get)
		stored.GET("/summary", handlers.Curriculum.Summary)
		stored.GET("/study-order", handlers.Curriculum.StudyOrder)
		stored.GET("/courses/:key/prerequisites", handlers.Curriculum.Prerequisites)
		stored.GET("/courses/:key/variants", handlers.Curriculum.Variants)
		stored.GET("/courses/:key/dependents", handlers.Curriculum.Dependents)
		stored.GET("/terms/:term/courses", handlers.Curriculum.CoursesOfferedIn)
		stored.GET("/modules/:code/courses", handlers.Curriculum.CoursesForModule)
	}

	// ─── 2. Admin Group (JWT + Rate Limited) ───────────────────────────
	admin := api.Group("/admin")
	admin.Use(
		middleware.RequireWriteToken(authService),
		writeLimiter.Middleware(),
		middleware.CacheControl(0),
	)
	{
		admin.POST("/curricula", handlers.Curriculum.Import)
		admin.DELETE("/curricula/:id", handlers.Curriculum.Delete)
		admin.POST("/curricula/import-jobs", handlers.Curriculum.EnqueueImport)
		admin.GET("/curricula/import-jobs/:job_id", handlers.Curriculum.ImportStatus)
		admin.GET("/system/status", handlers.System.Status)
	}

	return router
}
