package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mabletask/telemetry/store"

	"github.com/gin-gonic/gin"
)

// StatsHandlers serves aggregate read-back over the analytics mirror of the
// activity stream.
type StatsHandlers struct {
	analytics *store.AnalyticsStore
	logger    *slog.Logger
}

func NewStatsHandlers(analytics *store.AnalyticsStore, logger *slog.Logger) *StatsHandlers {
	return &StatsHandlers{
		analytics: analytics,
		logger:    logger.With("module", "stats"),
	}
}

// parseTimeRange reads optional RFC3339 start/end query parameters. Absent
// bounds default to the trailing 7 days. Returns ok=false after writing the
// error response.
func parseTimeRange(c *gin.Context) (start, end time.Time, ok bool) {
	var err error

	if startParam := c.Query("start"); startParam != "" {
		start, err = time.Parse(time.RFC3339, startParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
	} else {
		start = time.Now().UTC().Add(-7 * 24 * time.Hour)
	}

	if endParam := c.Query("end"); endParam != "" {
		end, err = time.Parse(time.RFC3339, endParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
	} else {
		end = time.Now().UTC()
	}

	return start, end, true
}

func (h *StatsHandlers) GetEventCountsOverTime(c *gin.Context) {
	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'day', 'hour')"})
		return
	}
	eventTypeFilter := c.Query("eventType")

	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.analytics.GetEventCountsOverTime(ctx, interval, start, end, eventTypeFilter)
	if err != nil {
		h.logger.Error("event count query failed", "interval", interval, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetTopPagePaths(c *gin.Context) {
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	var limit uint64 = 10
	if limitParam := c.Query("limit"); limitParam != "" {
		parsedLimit, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil || parsedLimit == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsedLimit
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.analytics.GetTopNPagePaths(ctx, start, end, limit)
	if err != nil {
		h.logger.Error("top paths query failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top page paths statistics"})
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetAverageDwellSeconds averages server-observed and client-reported dwell
// samples together over the requested range.
func (h *StatsHandlers) GetAverageDwellSeconds(c *gin.Context) {
	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	avg, err := h.analytics.GetAverageDwellSeconds(ctx, start, end)
	if err != nil {
		h.logger.Error("average dwell query failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve average dwell statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"startDate":           start.Format(time.RFC3339),
		"endDate":             end.Format(time.RFC3339),
		"averageDwellSeconds": avg,
	})
}
