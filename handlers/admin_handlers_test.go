package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fixbro/api/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAdminRouter(events *fakeEventStore, visitors *fakeVisitorStore, notes *fakeNotificationStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAdminHandlers(events, visitors, notes, zap.NewNop())
	r := gin.New()
	r.GET("/api/admin/page-visits", h.GetPageVisits)
	r.GET("/api/admin/user-events", h.GetUserEvents)
	r.GET("/api/admin/visitor-logs", h.GetVisitorLogs)
	r.DELETE("/api/admin/visitor-logs", h.ClearVisitorLogs)
	r.DELETE("/api/admin/user-activity", h.ClearUserActivity)
	r.GET("/api/admin/notifications", h.GetNotifications)
	r.GET("/api/admin/notifications/unread-count", h.GetUnreadNotificationsCount)
	r.POST("/api/admin/notifications/mark-all-read", h.MarkAllNotificationsRead)
	r.DELETE("/api/admin/notifications", h.ClearNotifications)
	r.GET("/api/admin/stats/top-paths", h.GetTopPagePaths)
	r.GET("/api/admin/stats/event-counts", h.GetEventCountsOverTime)
	return r
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pageStart(url string, ts time.Time) models.AnalyticsEvent {
	return models.AnalyticsEvent{
		EventID:         url,
		Event:           models.EventPageStart,
		PageURL:         url,
		ServerTimestamp: ts,
	}
}

func TestGetPageVisitsHonorsCount(t *testing.T) {
	now := time.Now().UTC()
	events := newFakeEventStore()
	events.pageVisits = []models.AnalyticsEvent{
		pageStart("/a", now),
		pageStart("/b", now.Add(-time.Minute)),
		pageStart("/c", now.Add(-2*time.Minute)),
	}
	r := newAdminRouter(events, &fakeVisitorStore{}, &fakeNotificationStore{})

	w := do(r, http.MethodGet, "/api/admin/page-visits?count=2")
	assert.Equal(t, http.StatusOK, w.Code)

	var visits []models.AnalyticsEvent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &visits))
	require.Len(t, visits, 2)
	assert.Equal(t, "/a", visits[0].PageURL)
	assert.Equal(t, "/b", visits[1].PageURL)
}

func TestGetPageVisitsEmptyIsJSONArray(t *testing.T) {
	r := newAdminRouter(newFakeEventStore(), &fakeVisitorStore{}, &fakeNotificationStore{})

	w := do(r, http.MethodGet, "/api/admin/page-visits")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetVisitorLogs(t *testing.T) {
	visitors := &fakeVisitorStore{logs: []models.VisitorLog{
		{SessionID: "s1", City: "Berlin", Device: "Desktop"},
		{SessionID: "s2", City: "Bengaluru", Device: "Mobile"},
	}}
	r := newAdminRouter(newFakeEventStore(), visitors, &fakeNotificationStore{})

	w := do(r, http.MethodGet, "/api/admin/visitor-logs")
	assert.Equal(t, http.StatusOK, w.Code)

	var logs []models.VisitorLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	assert.Len(t, logs, 2)
}

func TestMarkAllReadThenUnreadCountIsZero(t *testing.T) {
	notes := &fakeNotificationStore{notifications: []models.Notification{
		{ID: 1, Type: models.NotificationVisit, Message: "a"},
		{ID: 2, Type: models.NotificationOrder, Message: "b"},
		{ID: 3, Type: models.NotificationSubmission, Message: "c", IsRead: true},
	}}
	r := newAdminRouter(newFakeEventStore(), &fakeVisitorStore{}, notes)

	w := do(r, http.MethodPost, "/api/admin/notifications/mark-all-read")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/admin/notifications/unread-count")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp["count"])
}

func TestClearNotificationsThenListIsEmpty(t *testing.T) {
	notes := &fakeNotificationStore{notifications: []models.Notification{
		{ID: 1, Type: models.NotificationVisit, Message: "a"},
	}}
	r := newAdminRouter(newFakeEventStore(), &fakeVisitorStore{}, notes)

	w := do(r, http.MethodDelete, "/api/admin/notifications")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/admin/notifications")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestClearEndpointsReportResultShape(t *testing.T) {
	events := newFakeEventStore()
	visitors := &fakeVisitorStore{}
	r := newAdminRouter(events, visitors, &fakeNotificationStore{})

	w := do(r, http.MethodDelete, "/api/admin/user-activity")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, events.cleared)

	w = do(r, http.MethodDelete, "/api/admin/visitor-logs")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, visitors.cleared)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
}

func TestClearUserActivityFailure(t *testing.T) {
	events := newFakeEventStore()
	events.queryErr = assert.AnError
	r := newAdminRouter(events, &fakeVisitorStore{}, &fakeNotificationStore{})

	w := do(r, http.MethodDelete, "/api/admin/user-activity")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error"])
}

func TestStatsRejectInvalidParams(t *testing.T) {
	r := newAdminRouter(newFakeEventStore(), &fakeVisitorStore{}, &fakeNotificationStore{})

	w := do(r, http.MethodGet, "/api/admin/stats/event-counts?interval=Fortnight")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/admin/stats/top-paths?start=yesterday")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/admin/stats/top-paths?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
