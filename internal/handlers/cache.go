package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amaumene/movieshelf/internal/query"
)

type invalidateRequest struct {
	Key []any `json:"key"`
}

func (h *Handler) handleCacheEntries(c *gin.Context) {
	entries := h.services.Queries.Entries()
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// handleCacheInvalidate marks every entry under the given key prefix stale.
// An empty key invalidates everything.
func (h *Handler) handleCacheInvalidate(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	prefix := query.Key(req.Key)
	n := h.services.Queries.Invalidate(prefix)
	h.services.Logger.Infof("[Devtools] invalidated %d entries under %s", n, prefix)

	c.JSON(http.StatusOK, gin.H{
		"key":         prefix.Hash(),
		"invalidated": n,
	})
}

func (h *Handler) handleCacheClear(c *gin.Context) {
	h.services.Queries.Clear()
	h.services.Logger.Infof("[Devtools] query cache cleared")
	c.Status(http.StatusNoContent)
}
