package handlers

import (
	"context"
	"sync"
	"time"

	"fixbro/api/models"
)

// fakeEventStore implements EventStore in memory.
type fakeEventStore struct {
	mu         sync.Mutex
	inserted   map[string][]models.AnalyticsEvent
	insertErr  error
	pageVisits []models.AnalyticsEvent
	userEvents []models.AnalyticsEvent
	queryErr   error
	cleared    bool
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{inserted: make(map[string][]models.AnalyticsEvent)}
}

func (s *fakeEventStore) InsertEvent(_ context.Context, table string, event models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted[table] = append(s.inserted[table], event)
	return nil
}

func (s *fakeEventStore) GetRecentPageVisits(_ context.Context, count int) ([]models.AnalyticsEvent, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(s.pageVisits) > count {
		return s.pageVisits[:count], nil
	}
	return s.pageVisits, nil
}

func (s *fakeEventStore) GetRecentUserEvents(_ context.Context, count int) ([]models.AnalyticsEvent, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(s.userEvents) > count {
		return s.userEvents[:count], nil
	}
	return s.userEvents, nil
}

func (s *fakeEventStore) ClearUserActivity(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queryErr != nil {
		return s.queryErr
	}
	s.cleared = true
	s.inserted = make(map[string][]models.AnalyticsEvent)
	return nil
}

func (s *fakeEventStore) GetTopPagePaths(context.Context, time.Time, time.Time, uint64) ([]models.TopPathResult, error) {
	return nil, s.queryErr
}

func (s *fakeEventStore) GetEventCountsOverTime(context.Context, string, time.Time, time.Time) ([]models.EventCountByTime, error) {
	return nil, s.queryErr
}

func (s *fakeEventStore) events(table string) []models.AnalyticsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AnalyticsEvent(nil), s.inserted[table]...)
}

// fakeVisitorStore implements VisitorStore in memory, mirroring the real
// store's read-before-write behavior.
type fakeVisitorStore struct {
	mu        sync.Mutex
	logs      []models.VisitorLog
	hasErr    error
	insertErr error
	cleared   bool
}

func (s *fakeVisitorStore) HasSession(_ context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasErr != nil {
		return false, s.hasErr
	}
	for _, log := range s.logs {
		if log.SessionID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeVisitorStore) InsertVisitorLog(_ context.Context, log models.VisitorLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.logs = append(s.logs, log)
	return nil
}

func (s *fakeVisitorStore) GetRecentVisitorLogs(_ context.Context, count int) ([]models.VisitorLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.logs) > count {
		return s.logs[:count], nil
	}
	return s.logs, nil
}

func (s *fakeVisitorStore) ClearVisitorLogs(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = true
	s.logs = nil
	return nil
}

// fakeNotificationStore implements both the notify sink and the admin
// notification reads.
type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []models.Notification
	createErr     error
	opErr         error
}

func (s *fakeNotificationStore) Create(_ context.Context, notificationType, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.notifications = append(s.notifications, models.Notification{
		ID:        len(s.notifications) + 1,
		Type:      notificationType,
		Message:   message,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *fakeNotificationStore) GetNotifications(context.Context) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opErr != nil {
		return nil, s.opErr
	}
	return append([]models.Notification(nil), s.notifications...), nil
}

func (s *fakeNotificationStore) GetUnreadCount(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opErr != nil {
		return 0, s.opErr
	}
	count := 0
	for _, n := range s.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) MarkAllRead(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opErr != nil {
		return s.opErr
	}
	for i := range s.notifications {
		s.notifications[i].IsRead = true
	}
	return nil
}

func (s *fakeNotificationStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opErr != nil {
		return s.opErr
	}
	s.notifications = nil
	return nil
}
