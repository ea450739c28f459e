package models

import (
	"encoding/json"
	"time"
)

// Event subtypes stored in the page_visits table. A pageview is bracketed by
// a page_start record and a page_end record carrying the elapsed duration.
const (
	EventPageStart = "page_start"
	EventPageEnd   = "page_end"
)

// Event types accepted by the ingest endpoint, mapped to their tables.
const (
	EventTypePageVisit     = "page_visit"
	EventTypeUserAction    = "user_action"
	EventTypeBookingFunnel = "booking_funnel"

	TablePageVisits    = "page_visits"
	TableUserEvents    = "user_events"
	TableBookingFunnel = "booking_funnel"
)

var eventTypeTables = map[string]string{
	EventTypePageVisit:     TablePageVisits,
	EventTypeUserAction:    TableUserEvents,
	EventTypeBookingFunnel: TableBookingFunnel,
}

// TableForEventType maps an ingest eventType to its backing table.
// The second return is false for anything outside the fixed enumeration.
func TableForEventType(eventType string) (string, bool) {
	table, ok := eventTypeTables[eventType]
	return table, ok
}

// AnalyticsEvent is a single tracked event. Records are immutable once
// written; the server timestamp is the canonical ordering key.
type AnalyticsEvent struct {
	EventID         string          `json:"eventId"`
	SessionID       string          `json:"sessionId"`
	UserID          string          `json:"userId"`
	Event           string          `json:"event"`
	PageURL         string          `json:"pageUrl"`
	Referrer        string          `json:"referrer,omitempty"`
	DurationMs      int64           `json:"duration,omitempty"`
	ClientTimestamp string          `json:"clientTimestamp,omitempty"`
	IPAddress       string          `json:"ip"`
	UserAgent       string          `json:"userAgent"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	ServerTimestamp time.Time       `json:"serverTimestamp"`
}

// TrackEventRequest is the body of POST /api/track/event. Data is free-form;
// well-known keys are lifted into AnalyticsEvent columns and the remainder
// is kept as the event payload.
type TrackEventRequest struct {
	EventType string         `json:"eventType"`
	Data      map[string]any `json:"data"`
}

// GeoData is the shape returned by the IP geolocation lookup, plus the
// client-observed pathname used to filter admin traffic.
type GeoData struct {
	IP          string `json:"ip,omitempty"`
	City        string `json:"city,omitempty"`
	Region      string `json:"region,omitempty"`
	CountryName string `json:"country_name,omitempty"`
	Country     string `json:"country,omitempty"`
	Postal      string `json:"postal,omitempty"`
	Pathname    string `json:"pathname,omitempty"`
}

// TrackVisitorRequest is the body of POST /api/track.
type TrackVisitorRequest struct {
	SessionID  string   `json:"sessionId"`
	GeoData    *GeoData `json:"geoData"`
	DeviceInfo string   `json:"deviceInfo"`
}

// VisitorLog is one geolocation+device snapshot per browser session.
// Uniqueness per session id is enforced by a read-before-write check,
// not a database constraint.
type VisitorLog struct {
	LogID     string    `json:"id"`
	SessionID string    `json:"sessionId"`
	IP        string    `json:"ip"`
	City      string    `json:"city"`
	Region    string    `json:"region"`
	Country   string    `json:"country"`
	Postal    string    `json:"postal"`
	Device    string    `json:"device"`
	Timestamp time.Time `json:"timestamp"`
}

type TopPathResult struct {
	PagePath string `json:"pagePath"`
	Count    uint64 `json:"count"`
}

type EventCountByTime struct {
	Time  time.Time `json:"time"`
	Count uint64    `json:"count"`
}
