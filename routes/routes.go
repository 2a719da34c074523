package routes

import (
	"time"

	"advisorbot/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes registers the conversational endpoints.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	{
		api.POST("/chat", hb.ChatHandler)
		api.POST("/voice", hb.VoiceHandler)
		api.POST("/reset", hb.ResetHandler)
	}
}

// RegisterSlotRoutes registers the slot projection and manual booking
// endpoints.
func RegisterSlotRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api")
	{
		api.GET("/slots", hb.SlotsHandler)
		api.POST("/manual/book", hb.ManualBookHandler)
		api.POST("/manual/waitlist", hb.ManualWaitlistHandler)
	}
}

// RegisterBookingRoutes registers booking management endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookingGroup := r.Group("/api/booking")
	{
		bookingGroup.GET("/lookup", hb.LookupHandler)
		bookingGroup.POST("/modify", hb.ModifyHandler)
		bookingGroup.POST("/reschedule", hb.RescheduleHandler)
		bookingGroup.POST("/cancel", hb.CancelHandler)
	}
	r.POST("/api/waitlist/cancel", hb.WaitlistCancelHandler)
}

// RegisterHistoryRoutes registers the transcript browsing endpoints.
func RegisterHistoryRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/history")
	{
		api.GET("/sessions", hb.ListSessionsHandler)
		api.GET("/sessions/:id", hb.GetSessionHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/api/health", hb.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterChatRoutes(r, hb)
	RegisterSlotRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterHistoryRoutes(r, hb)
	RegisterHealthRoute(r, hb)
}
