package handlers

import (
	"advisorbot/database/repository/history"
	"advisorbot/services/booking"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Engine   booking.Engine
	Sessions *SessionRegistry
	History  history.Repository

	// Conversation endpoints
	ChatHandler   gin.HandlerFunc
	VoiceHandler  gin.HandlerFunc
	ResetHandler  gin.HandlerFunc
	HealthHandler gin.HandlerFunc

	// Slot endpoints
	SlotsHandler          gin.HandlerFunc
	ManualBookHandler     gin.HandlerFunc
	ManualWaitlistHandler gin.HandlerFunc

	// Booking management endpoints
	LookupHandler         gin.HandlerFunc
	ModifyHandler         gin.HandlerFunc
	RescheduleHandler     gin.HandlerFunc
	CancelHandler         gin.HandlerFunc
	WaitlistCancelHandler gin.HandlerFunc

	// Transcript endpoints
	ListSessionsHandler gin.HandlerFunc
	GetSessionHandler   gin.HandlerFunc
}

// NewHandlerBundle wires every handler to its dependencies.
func NewHandlerBundle(engine booking.Engine, sessions *SessionRegistry, histRepo history.Repository) *HandlerBundle {
	return &HandlerBundle{
		Engine:   engine,
		Sessions: sessions,
		History:  histRepo,

		ChatHandler:   ChatHandler(sessions),
		VoiceHandler:  VoiceHandler(sessions),
		ResetHandler:  ResetHandler(sessions),
		HealthHandler: HealthHandler(),

		SlotsHandler:          SlotsHandler(engine),
		ManualBookHandler:     ManualBookHandler(engine),
		ManualWaitlistHandler: ManualWaitlistHandler(engine),

		LookupHandler:         LookupHandler(engine),
		ModifyHandler:         ModifyHandler(engine),
		RescheduleHandler:     RescheduleHandler(engine),
		CancelHandler:         CancelHandler(engine),
		WaitlistCancelHandler: WaitlistCancelHandler(engine),

		ListSessionsHandler: ListSessionsHandler(histRepo),
		GetSessionHandler:   GetSessionHandler(histRepo),
	}
}
