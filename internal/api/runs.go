package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxRunLimit = 200

// ListRuns 最近的对账运行记录
// GET /api/runs?limit=20
func (h *Handler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true, "runs": []any{}})
		return
	}

	limit := queryInt(c.Query("limit"), 20)
	if limit > maxRunLimit {
		limit = maxRunLimit
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, "list runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "runs": runs})
}
