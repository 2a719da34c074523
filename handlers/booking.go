package handlers

import (
	"net/http"

	"advisorbot/services/booking"
	"advisorbot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondBookingError maps engine failures onto HTTP statuses. Domain errors
// carry user-facing messages; anything else is an infrastructure failure.
func respondBookingError(c *gin.Context, err error) {
	derr := booking.AsDomainError(err)
	if derr == nil {
		utils.GetLogger().Error("Booking operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
		return
	}

	status := http.StatusBadRequest
	switch derr.Code {
	case booking.ErrCodeNotFound:
		status = http.StatusNotFound
	case booking.ErrSlotTaken:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"status": "error", "message": derr.Message})
}

// LookupHandler resolves a code against bookings and the waitlist.
func LookupHandler(engine booking.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		if code == "" {
			utils.JSONError(c, http.StatusBadRequest, "code query parameter is required", "")
			return
		}

		result, err := engine.LookupAny(c.Request.Context(), code)
		if err != nil {
			respondBookingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
	}
}

type modifyRequest struct {
	Code      string `json:"code" binding:"required"`
	Topic     string `json:"topic"`
	UserAlias string `json:"user_alias"`
}

// ModifyHandler updates the topic and/or alias of a booking in place.
func ModifyHandler(engine booking.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req modifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "code is required", err.Error())
			return
		}

		result, err := engine.ModifyBooking(c.Request.Context(), req.Code, req.Topic, req.UserAlias)
		if err != nil {
			respondBookingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "booking": result})
	}
}

type rescheduleRequest struct {
	Code    string `json:"code" binding:"required"`
	NewDate string `json:"new_date" binding:"required"`
	NewTime string `json:"new_time" binding:"required"`
}

// RescheduleHandler moves a booking to a new slot.
func RescheduleHandler(engine booking.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rescheduleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "code, new_date and new_time are required", err.Error())
			return
		}

		result, err := engine.RescheduleBooking(c.Request.Context(), req.Code, req.NewDate, req.NewTime)
		if err != nil {
			respondBookingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "booking": result})
	}
}

type cancelRequest struct {
	Code string `json:"code" binding:"required"`
}

// CancelHandler cancels a booking by code, promoting the first waitlisted
// user for that slot when there is one.
func CancelHandler(engine booking.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req cancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "code is required", err.Error())
			return
		}

		result, err := engine.CancelBooking(c.Request.Context(), req.Code)
		if err != nil {
			respondBookingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
	}
}

type waitlistCancelRequest struct {
	WaitlistID string `json:"waitlist_id" binding:"required"`
}

// WaitlistCancelHandler removes a waitlist entry by its ID.
func WaitlistCancelHandler(engine booking.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req waitlistCancelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "waitlist_id is required", err.Error())
			return
		}

		removed, err := engine.CancelWaitlist(c.Request.Context(), req.WaitlistID)
		if err != nil {
			respondBookingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "removed": removed})
	}
}
