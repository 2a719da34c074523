package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"advisorbot/config"
	"advisorbot/services/booking"
	"advisorbot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// slotsCacheTTL keeps the slots projection hot for bursts of calendar
// renders without serving stale state for long.
const slotsCacheTTL = 10 * time.Second

// SlotsHandler returns the slot grid with waitlist counts for a date range.
// The projection is cached in Redis when available.
func SlotsHandler(engine booking.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		startDate := c.DefaultQuery("start_date", config.AppConfig.BookingWindowStart)
		endDate := c.DefaultQuery("end_date", config.AppConfig.BookingWindowEnd)

		cacheKey := fmt.Sprintf("slots:%s:%s", startDate, endDate)
		cache := utils.GetCacheClient()
		if cache != nil {
			if cached, err := cache.Get(c.Request.Context(), cacheKey).Bytes(); err == nil {
				c.Data(http.StatusOK, "application/json", cached)
				return
			}
		}

		slots, err := engine.GetSlotsWithStatus(c.Request.Context(), startDate, endDate)
		if err != nil {
			if derr := booking.AsDomainError(err); derr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": derr.Message})
				return
			}
			utils.GetLogger().Error("Slots projection failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}

		body, err := json.Marshal(gin.H{"status": "success", "slots": slots})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}
		if cache != nil {
			if err := cache.Set(c.Request.Context(), cacheKey, body, slotsCacheTTL).Err(); err != nil {
				utils.GetLogger().Debug("Slots cache write failed", zap.Error(err))
			}
		}
		c.Data(http.StatusOK, "application/json", body)
	}
}

type manualBookRequest struct {
	Date      string `json:"date" binding:"required"`
	Time      string `json:"time" binding:"required"`
	Topic     string `json:"topic" binding:"required"`
	UserAlias string `json:"user_alias"`
}

// ManualBookHandler books a slot directly, bypassing the conversation.
func ManualBookHandler(engine booking.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req manualBookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "date, time and topic are required", err.Error())
			return
		}

		result, err := engine.BookSlot(c.Request.Context(), req.Date, req.Time, req.Topic, req.UserAlias)
		if err != nil {
			respondBookingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "booking": result})
	}
}

// ManualWaitlistHandler joins the waitlist directly.
func ManualWaitlistHandler(engine booking.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req manualBookRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.JSONError(c, http.StatusBadRequest, "date, time and topic are required", err.Error())
			return
		}

		result, err := engine.AddToWaitlist(c.Request.Context(), req.Date, req.Time, req.Topic, req.UserAlias)
		if err != nil {
			respondBookingError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "waitlist": result})
	}
}
