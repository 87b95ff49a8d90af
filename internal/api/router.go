package api

import (
	"net/http"

	"github.com/bstardust/photo-meta/internal/api/dto"
	"github.com/bstardust/photo-meta/internal/api/handlers"
	"github.com/gin-gonic/gin"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(extract *handlers.ExtractHandler, corsOrigin string) http.Handler {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(requestID(), loggingMiddleware(), recovery())
	if corsOrigin != "" {
		r.Use(corsMiddleware(corsOrigin))
	}

	r.POST("/extract-metadata", extract.Extract)

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.ErrorResponse{Error: "Method not allowed"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found"})
	})

	return r
}
