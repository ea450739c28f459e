package models

import "time"

// Notification types.
const (
	NotificationVisit      = "visit"
	NotificationSubmission = "submission"
	NotificationOrder      = "order"
)

// Notification is an admin-facing activity record. Created only by internal
// side-effects, mutated only by mark-all-read, deleted only by bulk clear.
type Notification struct {
	ID        int       `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
