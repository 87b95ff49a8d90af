package handlers

import (
	"github.com/bstardust/photo-meta/internal/api/dto"
	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg})
}
