package handlers

import (
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
