package model

import "time"

// Slot status values. A slot is immutable once created except for its
// status, which moves scheduled -> cancelled or scheduled -> completed.
const (
	SlotScheduled = "scheduled"
	SlotActive    = "active"
	SlotCompleted = "completed"
	SlotCancelled = "cancelled"
)

// LaundrySlot represents a reserved future time interval on a machine.
type LaundrySlot struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	MachineID   int       `gorm:"index;not null" json:"machineId"`
	MachineType string    `gorm:"size:16;not null" json:"machineType"`
	Residence   string    `gorm:"index;size:128;not null" json:"residence"`
	UserID      string    `gorm:"index;size:128;not null" json:"userId"`
	StartTime   time.Time `gorm:"index;not null" json:"startTime"`
	EndTime     time.Time `gorm:"not null" json:"endTime"`
	Status      string    `gorm:"size:16;not null" json:"status"`
	CreatedAt   time.Time `gorm:"not null" json:"createdAt"`
}
