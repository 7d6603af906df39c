// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gaslink/backend-go/internal/api/handlers"
	"github.com/gaslink/backend-go/internal/api/middleware"
	"github.com/gaslink/backend-go/internal/jobs"
	"github.com/gaslink/backend-go/internal/scheduler"
	"github.com/gaslink/backend-go/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Engine    *service.Engine
	Tracker   *jobs.Tracker
	Scheduler *scheduler.Scheduler
	Location  *time.Location
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Engine != nil {
			inventoryHandler := handlers.NewInventoryHandler(services.Engine, services.Location)
			inventoryGroup := apiGroup.Group("/distributors/:id/inventory")
			{
				inventoryGroup.GET("/summaries", inventoryHandler.GetSummaries)
				inventoryGroup.POST("/populate", inventoryHandler.Populate)
				inventoryGroup.GET("/gaps", inventoryHandler.GetGaps)
				inventoryGroup.POST("/recover", inventoryHandler.Recover)
				inventoryGroup.POST("/rebuild", inventoryHandler.Rebuild)
				inventoryGroup.GET("/continuity", inventoryHandler.CheckContinuity)
				inventoryGroup.POST("/reconcile", inventoryHandler.Reconcile)
				inventoryGroup.POST("/low-stock/check", inventoryHandler.CheckLowStock)
				inventoryGroup.POST("/unaccounted", inventoryHandler.RecordUnaccounted)
			}
		}

		if services.Tracker != nil {
			jobHandler := handlers.NewJobHandler(services.Tracker, services.Scheduler)
			jobGroup := apiGroup.Group("/jobs")
			{
				jobGroup.GET("/runs", jobHandler.ListRuns)
				jobGroup.POST("/:name/run", jobHandler.RunNow)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
