package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fixbro/api/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// adminPathPrefix marks admin console traffic, which is never recorded.
const adminPathPrefix = "/admin"

// EventStore is the event persistence surface the handlers depend on.
type EventStore interface {
	InsertEvent(ctx context.Context, table string, event models.AnalyticsEvent) error
	GetRecentPageVisits(ctx context.Context, count int) ([]models.AnalyticsEvent, error)
	GetRecentUserEvents(ctx context.Context, count int) ([]models.AnalyticsEvent, error)
	ClearUserActivity(ctx context.Context) error
	GetTopPagePaths(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPathResult, error)
	GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCountByTime, error)
}

type VisitorStore interface {
	HasSession(ctx context.Context, sessionID string) (bool, error)
	InsertVisitorLog(ctx context.Context, log models.VisitorLog) error
	GetRecentVisitorLogs(ctx context.Context, count int) ([]models.VisitorLog, error)
	ClearVisitorLogs(ctx context.Context) error
}

// NotificationEmitter fans out activity notifications best-effort.
type NotificationEmitter interface {
	Emit(ctx context.Context, notificationType, message string)
}

type TrackHandlers struct {
	Events   EventStore
	Visitors VisitorStore
	Notify   NotificationEmitter
	Log      *zap.Logger
}

func NewTrackHandlers(events EventStore, visitors VisitorStore, notify NotificationEmitter, log *zap.Logger) *TrackHandlers {
	return &TrackHandlers{
		Events:   events,
		Visitors: visitors,
		Notify:   notify,
		Log:      log,
	}
}

// TrackEvent handles POST /api/track/event. It validates the event type,
// drops admin traffic, stamps server-observed metadata and appends one
// record to the mapped table.
func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	var req models.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	table, ok := models.TableForEventType(req.EventType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid event type."})
		return
	}

	if pageURL, _ := req.Data["pageUrl"].(string); strings.Contains(pageURL, adminPathPrefix) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Admin activity not tracked."})
		return
	}

	event := eventFromData(req.Data)
	event.EventID = uuid.New().String()
	event.IPAddress = c.ClientIP()
	event.UserAgent = c.Request.UserAgent()
	event.ServerTimestamp = time.Now().UTC()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Events.InsertEvent(ctx, table, event); err != nil {
		h.Log.Error("failed to insert analytics event",
			zap.String("table", table),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TrackVisitor handles POST /api/track. It records at most one visitor log
// per session and emits a visit notification on first insert.
//
// The existence check and the insert are not atomic; concurrent duplicate
// requests for the same session can both insert. Accepted as best-effort
// semantics for analytics rows.
func (h *TrackHandlers) TrackVisitor(c *gin.Context) {
	var req models.TrackVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.SessionID == "" || req.GeoData == nil || req.DeviceInfo == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing required fields."})
		return
	}

	if strings.HasPrefix(req.GeoData.Pathname, adminPathPrefix) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Admin activity not tracked."})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	exists, err := h.Visitors.HasSession(ctx, req.SessionID)
	if err != nil {
		h.Log.Error("failed to check visitor session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if exists {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Visitor already logged for this session."})
		return
	}

	log := models.VisitorLog{
		LogID:     uuid.New().String(),
		SessionID: req.SessionID,
		IP:        orDefault(req.GeoData.IP, "N/A"),
		City:      orDefault(req.GeoData.City, "N/A"),
		Region:    orDefault(req.GeoData.Region, "N/A"),
		Country:   orDefault(orDefault(req.GeoData.CountryName, req.GeoData.Country), "N/A"),
		Postal:    orDefault(req.GeoData.Postal, "N/A"),
		Device:    orDefault(req.DeviceInfo, "Unknown"),
		Timestamp: time.Now().UTC(),
	}

	if err := h.Visitors.InsertVisitorLog(ctx, log); err != nil {
		h.Log.Error("failed to insert visitor log", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}

	h.Notify.Emit(ctx, models.NotificationVisit,
		"New visitor from "+log.City+" on a "+req.DeviceInfo+" device.")

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// eventFromData lifts well-known keys from the free-form payload into
// columns; everything else stays in the payload blob.
func eventFromData(data map[string]any) models.AnalyticsEvent {
	var event models.AnalyticsEvent
	extra := make(map[string]any)

	for key, value := range data {
		switch key {
		case "event":
			event.Event, _ = value.(string)
		case "pageUrl":
			event.PageURL, _ = value.(string)
		case "referrer":
			event.Referrer, _ = value.(string)
		case "sessionId":
			event.SessionID, _ = value.(string)
		case "userId":
			event.UserID, _ = value.(string)
		case "clientTimestamp":
			event.ClientTimestamp, _ = value.(string)
		case "duration":
			if ms, ok := value.(float64); ok {
				event.DurationMs = int64(ms)
			}
		default:
			extra[key] = value
		}
	}

	if event.UserID == "" {
		event.UserID = "guest"
	}
	if len(extra) > 0 {
		if raw, err := json.Marshal(extra); err == nil {
			event.Payload = raw
		}
	}
	return event
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
