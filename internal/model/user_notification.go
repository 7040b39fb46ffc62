package model

import "time"

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Notification types.
const (
	TypeCycleAlert       = "cycle_alert"
	TypeQueueUpdate      = "queue_update"
	TypeSlotReminder     = "slot_reminder"
	TypeMachineAvailable = "machine_available"
	TypeFeedbackRequest  = "feedback_request"
	TypeForgottenLaundry = "forgotten_laundry"
)

// UserNotification is an append-only user-directed notification.
// Read is the only field toggled after creation.
type UserNotification struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    string    `gorm:"index;size:128;not null" json:"userId"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Priority  string    `gorm:"size:16;not null" json:"priority"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Read      bool      `gorm:"not null" json:"read"`
}
