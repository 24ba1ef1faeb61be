package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"transitadmin/internal/activity"
)

func (h HandlerSet) DashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListActivity serves the system log page, newest first.
func (h HandlerSet) ListActivity(c *gin.Context) {
	var limit int64 = 200
	if perPage := c.Query("limit"); perPage != "" {
		if v, err := strconv.ParseInt(perPage, 10, 64); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}

	entries, err := h.activity.List(c.Request.Context(), activity.Filter{
		Level:  activity.Level(c.Query("level")),
		Action: c.Query("action"),
		Search: c.Query("search"),
		Limit:  limit,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}
