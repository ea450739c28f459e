package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fixbro/api/models"
	"fixbro/api/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationStore interface {
	GetNotifications(ctx context.Context) ([]models.Notification, error)
	GetUnreadCount(ctx context.Context) (int, error)
	MarkAllRead(ctx context.Context) error
	ClearAll(ctx context.Context) error
}

// AdminHandlers backs the polling admin dashboards: limited ordered reads
// plus bulk maintenance mutations. The dashboards re-fetch on an interval,
// so every read answers the current stored state with no caching.
type AdminHandlers struct {
	Events        EventStore
	Visitors      VisitorStore
	Notifications NotificationStore
	Log           *zap.Logger
}

func NewAdminHandlers(events EventStore, visitors VisitorStore, notifications NotificationStore, log *zap.Logger) *AdminHandlers {
	return &AdminHandlers{
		Events:        events,
		Visitors:      visitors,
		Notifications: notifications,
		Log:           log,
	}
}

func (h *AdminHandlers) GetPageVisits(c *gin.Context) {
	count := countParam(c, 20)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	visits, err := h.Events.GetRecentPageVisits(ctx, count)
	if err != nil {
		h.Log.Error("failed to fetch page visits", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if visits == nil {
		visits = []models.AnalyticsEvent{}
	}
	c.JSON(http.StatusOK, visits)
}

func (h *AdminHandlers) GetUserEvents(c *gin.Context) {
	count := countParam(c, 20)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	events, err := h.Events.GetRecentUserEvents(ctx, count)
	if err != nil {
		h.Log.Error("failed to fetch user events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if events == nil {
		events = []models.AnalyticsEvent{}
	}
	c.JSON(http.StatusOK, events)
}

func (h *AdminHandlers) GetVisitorLogs(c *gin.Context) {
	count := countParam(c, 50)

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	logs, err := h.Visitors.GetRecentVisitorLogs(ctx, count)
	if err != nil {
		h.Log.Error("failed to fetch visitor logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if logs == nil {
		logs = []models.VisitorLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func (h *AdminHandlers) GetNotifications(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	notifications, err := h.Notifications.GetNotifications(ctx)
	if err != nil {
		h.Log.Error("failed to fetch notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	c.JSON(http.StatusOK, notifications)
}

func (h *AdminHandlers) GetUnreadNotificationsCount(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	count, err := h.Notifications.GetUnreadCount(ctx)
	if err != nil {
		h.Log.Error("failed to count unread notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *AdminHandlers) MarkAllNotificationsRead(c *gin.Context) {
	h.mutate(c, h.Notifications.MarkAllRead, "mark notifications read")
}

func (h *AdminHandlers) ClearNotifications(c *gin.Context) {
	h.mutate(c, h.Notifications.ClearAll, "clear notifications")
}

func (h *AdminHandlers) ClearUserActivity(c *gin.Context) {
	h.mutate(c, h.Events.ClearUserActivity, "clear user activity")
}

func (h *AdminHandlers) ClearVisitorLogs(c *gin.Context) {
	h.mutate(c, h.Visitors.ClearVisitorLogs, "clear visitor logs")
}

// mutate runs a bulk maintenance operation and answers the result shape the
// dashboards expect. On failure the dashboard keeps its prior state.
func (h *AdminHandlers) mutate(c *gin.Context, op func(context.Context) error, name string) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	if err := op(ctx); err != nil {
		h.Log.Error("admin mutation failed", zap.String("op", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AdminHandlers) GetTopPagePaths(c *gin.Context) {
	start, end, ok := timeRangeParams(c)
	if !ok {
		return
	}

	var limit uint64 = 10
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil || parsed == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Events.GetTopPagePaths(ctx, start, end, limit)
	if err != nil {
		h.Log.Error("failed to fetch top page paths", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if results == nil {
		results = []models.TopPathResult{}
	}
	c.JSON(http.StatusOK, results)
}

func (h *AdminHandlers) GetEventCountsOverTime(c *gin.Context) {
	interval := c.Query("interval")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}

	start, end, ok := timeRangeParams(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Events.GetEventCountsOverTime(ctx, interval, start, end)
	if err != nil {
		h.Log.Error("failed to fetch event counts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if results == nil {
		results = []models.EventCountByTime{}
	}
	c.JSON(http.StatusOK, results)
}

func countParam(c *gin.Context, fallback int) int {
	raw := c.Query("count")
	if raw == "" {
		return fallback
	}
	count, err := strconv.Atoi(raw)
	if err != nil || count <= 0 {
		return fallback
	}
	return count
}

// timeRangeParams parses optional RFC3339 start/end query parameters,
// defaulting to the trailing 7 days. It writes the 400 response itself.
func timeRangeParams(c *gin.Context) (time.Time, time.Time, bool) {
	start := time.Now().UTC().Add(-7 * 24 * time.Hour)
	end := time.Now().UTC()

	if startParam := c.Query("start"); startParam != "" {
		parsed, err := time.Parse(time.RFC3339, startParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
		start = parsed
	}

	if endParam := c.Query("end"); endParam != "" {
		parsed, err := time.Parse(time.RFC3339, endParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)"})
			return start, end, false
		}
		end = parsed
	}

	return start, end, true
}
