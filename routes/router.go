package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/recbox/config"
	"github.com/cppla/recbox/controllers"
	"github.com/cppla/recbox/middleware"
	"github.com/cppla/recbox/storage"
	"github.com/cppla/recbox/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(store *storage.RecordingStore) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	// Video players issue Range requests cross-origin; the range headers must
	// be allowed in and exposed back out.
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Content-Type", "Range"},
		ExposeHeaders:    []string{"Content-Length", "Content-Range", "Accept-Ranges"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{
			"message": "Recording storage API is running",
			"endpoints": []gin.H{
				{"method": "POST", "path": "/recordings", "description": "Upload a recording"},
				{"method": "GET", "path": "/recordings", "description": "Get all recordings"},
				{"method": "GET", "path": "/recordings/:id", "description": "Stream a specific recording"},
				{"method": "DELETE", "path": "/recordings/:id", "description": "Delete a recording"},
			},
		})
	})

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	recordingController := controllers.NewRecordingController(store, cfg)
	statsController := controllers.NewStatsController(store)

	recordings := r.Group("/recordings")
	recordings.GET("", recordingController.List)
	recordings.GET("/:id", middleware.PlaybackRecorder(), recordingController.Stream)
	recordings.GET("/:id/stats", statsController.GetRecordingStats)

	mutating := recordings.Group("")
	mutating.Use(middleware.RateLimitMiddleware())
	mutating.POST("", recordingController.Upload)
	mutating.DELETE("/:id", recordingController.Delete)

	r.GET("/stats", statsController.GetStats)

	return r
}
