package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/customeros/mailforward/dto"
	"github.com/customeros/mailforward/interfaces"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status returns the mailbox connection state and the outcome of the last run
func Status(mailbox interfaces.MailboxMonitor, runs interfaces.RunReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewStatusResponse(mailbox.Status(), runs.LastResult()))
	}
}
