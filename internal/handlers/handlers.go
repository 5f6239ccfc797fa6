// Package handlers implements the loopback devtools inspector: read-only
// views of the favorites and theme stores and control over the query cache.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amaumene/movieshelf/internal/config"
	"github.com/amaumene/movieshelf/internal/constants"
	"github.com/amaumene/movieshelf/internal/services"
)

// Handler handles devtools HTTP requests.
type Handler struct {
	services *services.Container
	config   *config.Config
}

// New creates a new Handler with the provided services and configuration.
func New(services *services.Container, config *config.Config) *Handler {
	return &Handler{
		services: services,
		config:   config,
	}
}

// RegisterRoutes registers all devtools routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.handleHealth)

	state := r.Group("/state")
	state.GET("/favorites", h.handleFavorites)
	state.GET("/theme", h.handleTheme)

	r.GET("/cache", h.handleCacheEntries)
	r.POST("/cache/invalidate", h.handleCacheInvalidate)
	r.DELETE("/cache", h.handleCacheClear)
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    constants.AppName,
		"version": constants.AppVersion,
	})
}
