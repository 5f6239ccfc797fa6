package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) handleFavorites(c *gin.Context) {
	if h.services.Favorites == nil {
		respondError(c, http.StatusServiceUnavailable, "favorites store not initialized")
		return
	}

	state := h.services.Favorites.State()
	c.JSON(http.StatusOK, gin.H{
		"favorites": state.Favorites,
		"isLoading": state.IsLoading,
		"count":     len(state.Favorites),
	})
}

func (h *Handler) handleTheme(c *gin.Context) {
	if h.services.Theme == nil {
		respondError(c, http.StatusServiceUnavailable, "theme store not initialized")
		return
	}

	state := h.services.Theme.State()
	c.JSON(http.StatusOK, gin.H{
		"mode":       state.Mode,
		"theme":      state.Theme,
		"isDarkMode": h.services.Theme.IsDarkMode(),
	})
}
