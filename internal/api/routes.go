package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/blob"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/core"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/middleware"
)

// BlobReader serves stored objects back over HTTP. Only the in-process blob backend needs it;
// the cloud backends hand out their own URLs.
type BlobReader interface {
	Get(key string) (blob.Object, bool)
}

// Dependencies holds everything SetupRoutes wires into handlers.
type Dependencies struct {
	Logger          *zap.Logger
	Auth            *middleware.AuthMiddleware
	AllowedOrigins  []string
	SyncService     core.TripSyncService
	MemberService   core.MemberService
	ScheduleService core.ScheduleService
	Status          StatusSource

	// Gatherer backs GET /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Blobs backs GET /blobs/*key; nil disables the endpoint.
	Blobs BlobReader
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS) is expected to be applied by the caller.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize handlers with their service dependencies.
	tripHandler := NewTripHandler(deps.SyncService, deps.AllowedOrigins, logger)
	memberHandler := NewMemberHandler(deps.MemberService, logger)
	scheduleHandler := NewScheduleHandler(deps.ScheduleService, logger)
	statusHandler := NewStatusHandler(deps.Status)

	apiV1 := router.Group("/api/v1")
	{
		// Establishing the server's own identity needs no caller token.
		apiV1.POST("/identity", tripHandler.EnsureIdentity)

		// Everything below requires a verified Firebase ID token.
		protected := apiV1.Group("", deps.Auth.VerifyToken())
		protected.GET("/status", statusHandler.GetStatus)
		protected.GET("/status/stream", statusHandler.StreamStatus)

		// Routes on the shared trip document.
		trip := protected.Group("/trip")
		{
			// Raw field access, including the live WebSocket subscription.
			trip.GET("/fields/:field", tripHandler.GetField)
			trip.PUT("/fields/:field", tripHandler.UpdateField)
			trip.GET("/fields/:field/ws", tripHandler.SubscribeField)

			// Members and their avatars.
			trip.GET("/members", memberHandler.ListMembers)
			trip.POST("/members", memberHandler.AddMember)
			trip.PATCH("/members/:memberId", memberHandler.UpdateMember)
			trip.DELETE("/members/:memberId", memberHandler.DeleteMember)
			trip.POST("/members/:memberId/avatar", memberHandler.UploadAvatar)

			trip.GET("/drive-url", memberHandler.GetDriveURL)
			trip.PUT("/drive-url", memberHandler.SetDriveURL)

			// Day-by-day schedule.
			trip.GET("/schedule", scheduleHandler.GetSchedule)
			trip.POST("/schedule/dates", scheduleHandler.AddDate)
			trip.PUT("/schedule/dates/:date", scheduleHandler.RenameDate)
			trip.DELETE("/schedule/dates/:date", scheduleHandler.DeleteDate)
			trip.PUT("/schedule/dates/:date/metadata", scheduleHandler.UpdateMetadata)
			trip.PUT("/schedule/dates/:date/items", scheduleHandler.UpsertItem)
			trip.PUT("/schedule/dates/:date/items/:itemId", scheduleHandler.UpsertItem)
			trip.DELETE("/schedule/dates/:date/items/:itemId", scheduleHandler.DeleteItem)
			trip.POST("/schedule/dates/:date/shift", scheduleHandler.ShiftTimes)
		}
	}

	if deps.Blobs != nil {
		router.GET("/blobs/*key", func(c *gin.Context) {
			obj, ok := deps.Blobs.Get(strings.TrimPrefix(c.Param("key"), "/"))
			if !ok {
				c.JSON(http.StatusNotFound, ErrorResponse{Error: "Object not found"})
				return
			}
			c.Data(http.StatusOK, obj.ContentType, obj.Data)
		})
	}

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Health check is public and reports the connectivity indicator alongside.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "connectivity": deps.Status.State()})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
