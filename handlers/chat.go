package handlers

import (
	"errors"
	"net/http"
	"strings"

	"advisorbot/models"
	ai "advisorbot/services/intelligence"
	"advisorbot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const genericApology = "I apologize, but I encountered an error. Please try again."

// ChatHandler runs one conversational turn for the caller's session.
func ChatHandler(reg *SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "response": "No message provided"})
			return
		}
		message := strings.TrimSpace(req.Message)
		if message == "" {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "response": "Empty message"})
			return
		}

		sessionID := ensureSession(c, reg.ttl)
		agent, err := reg.Agent(c.Request.Context(), sessionID)
		if err != nil {
			utils.GetLogger().Error("Failed to create session agent", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":   "error",
				"response": "Configuration error: " + err.Error(),
			})
			return
		}

		ctx, reqLog := utils.NewRequestLog(c.Request.Context())
		reply, err := agent.Chat(ctx, message)
		if err != nil {
			logger := utils.GetLogger()
			if errors.Is(err, ai.ErrEngineUnavailable) {
				logger.Error("Model engine unavailable", zap.String("session", sessionID), zap.Error(err))
			} else {
				logger.Error("Chat turn failed", zap.String("session", sessionID), zap.Error(err))
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":   "error",
				"response": genericApology,
			})
			return
		}

		c.JSON(http.StatusOK, models.ChatResponse{
			Status:   "success",
			Response: *reply,
			Logs:     reqLog.Entries(),
		})
	}
}

// ResetHandler drops the caller's conversation and session cookie.
func ResetHandler(reg *SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionID := clearSession(c); sessionID != "" {
			reg.Remove(sessionID)
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Conversation reset"})
	}
}

// HealthHandler reports service liveness.
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "HDFC Mutual Funds Advisor Scheduler",
		})
	}
}
