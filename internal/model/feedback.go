package model

import "time"

// Machine condition values reported through feedback.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
	ConditionBroken    = "broken"
)

// MachineFeedback is an append-only record of a machine-condition report.
// Resolved is the only field mutated after creation.
type MachineFeedback struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	MachineID int       `gorm:"index;not null" json:"machineId"`
	Residence string    `gorm:"index;size:128;not null" json:"residence"`
	UserID    string    `gorm:"size:128;not null" json:"userId"`
	Rating    int       `gorm:"not null" json:"rating"` // 1-5 stars
	Condition string    `gorm:"size:16;not null" json:"condition"`
	Issues    []string  `gorm:"serializer:json" json:"issues"`
	Comments  string    `gorm:"type:text" json:"comments"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Resolved  bool      `gorm:"not null" json:"resolved"`
}
