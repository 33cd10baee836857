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

// JournalHandlers exposes the relational journal for interactive inspection
// and retention maintenance.
type JournalHandlers struct {
	journal *store.ActivityStore
	logger  *slog.Logger
}

func NewJournalHandlers(journal *store.ActivityStore, logger *slog.Logger) *JournalHandlers {
	return &JournalHandlers{
		journal: journal,
		logger:  logger.With("module", "journal_api"),
	}
}

// ListActivity handles GET /api/journal/activity with optional limit and
// type query parameters.
func (h *JournalHandlers) ListActivity(c *gin.Context) {
	limit := 100
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	rows, err := h.journal.List(ctx, limit, c.Query("type"))
	if err != nil {
		h.logger.Error("journal list failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve journal rows"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// Prune handles DELETE /api/journal/activity, trimming rows older than the
// requested number of days (default 90).
func (h *JournalHandlers) Prune(c *gin.Context) {
	days := 90
	if daysParam := c.Query("days"); daysParam != "" {
		parsed, err := strconv.Atoi(daysParam)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'days' parameter. Must be a positive integer."})
			return
		}
		days = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	deleted, err := h.journal.DeleteOlderThan(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		h.logger.Error("journal prune failed", "days", days, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to prune journal rows"})
		return
	}

	h.logger.Info("journal pruned", "days", days, "deleted", deleted)
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "days": days})
}
