package handlers

import (
	"net/http"

	"advisorbot/database/repository/history"
	"advisorbot/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListSessionsHandler returns all transcript session IDs, most recent first.
func ListSessionsHandler(repo history.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := repo.ListSessions(c.Request.Context())
		if err != nil {
			utils.GetLogger().Error("Failed to list transcript sessions", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "sessions": sessions})
	}
}

// GetSessionHandler returns the full transcript of one session.
func GetSessionHandler(repo history.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		turns, err := repo.GetSession(c.Request.Context(), sessionID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Session not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "success",
			"session_id": sessionID,
			"turns":      turns,
		})
	}
}
