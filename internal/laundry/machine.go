package laundry

import (
	"errors"
	"math"
	"time"
)

// MachineType identifies what kind of machine this is.
type MachineType string

const (
	Washer MachineType = "Washer"
	Dryer  MachineType = "Dryer"
)

// MachineStatus is the lifecycle state of a machine.
// Free -> Busy (start) -> Idle (deadline) -> Free (collect).
type MachineStatus string

const (
	StatusFree MachineStatus = "Free"
	StatusBusy MachineStatus = "Busy"
	StatusIdle MachineStatus = "Idle" // Finished but not collected
)

// Level is the notification escalation tier. It is monotonically
// non-decreasing within one occupancy and resets only on return to Free.
type Level string

const (
	LevelNormal Level = "normal"
	LevelUrgent Level = "urgent"
	LevelFinal  Level = "final"
)

// UserRef is a snapshot of the occupant's identity, not an owning link.
type UserRef struct {
	Name      string `json:"name"`
	Residence string `json:"residence"`
}

// Machine is the state of one washer or dryer.
type Machine struct {
	ID                 int           `json:"id"`
	Type               MachineType   `json:"type"`
	Status             MachineStatus `json:"status"`
	Occupant           *UserRef      `json:"occupant"`
	CycleEndTime       *time.Time    `json:"cycleEndTime"`
	PredictedEndTime   *time.Time    `json:"predictedEndTime"`
	NotificationLevel  Level         `json:"notificationLevel"`
	NotifiedAlmostDone bool          `json:"notifiedAlmostDone"`
	LastUsedAt         *time.Time    `json:"lastUsedAt"`
	TotalUsageCount    int           `json:"totalUsageCount"`
}

// Valid cycle durations in minutes per machine type.
var (
	WasherDurations = []int{30, 45, 60}
	DryerDurations  = []int{40, 60, 75}
)

// ValidDuration reports whether minutes is an offered program length for
// the machine's type.
func (m *Machine) ValidDuration(minutes int) bool {
	choices := WasherDurations
	if m.Type == Dryer {
		choices = DryerDurations
	}
	for _, d := range choices {
		if d == minutes {
			return true
		}
	}
	return false
}

// OccupiedBy reports whether the given identity matches the occupant
// exactly (name and residence).
func (m *Machine) OccupiedBy(ref UserRef) bool {
	return m.Occupant != nil && *m.Occupant == ref
}

var (
	ErrUnknownResidence = errors.New("unknown residence")
	ErrUnknownMachine   = errors.New("unknown machine")
	ErrMachineNotFree   = errors.New("machine is not free")
	ErrAdminCannotStart = errors.New("administrators cannot operate machines")
	ErrMachineNotIdle   = errors.New("machine has not finished a cycle")
	ErrNotOccupant      = errors.New("laundry belongs to another user")
	ErrInvalidDuration  = errors.New("duration is not an offered program length")
)

// startCycle transitions a Free machine to Busy. The caller is expected to
// have obtained the predicted delay beforehand; a failed prediction must be
// substituted with zero rather than blocking the start.
func (m *Machine) startCycle(occupant UserRef, duration, predictedDelay time.Duration, now time.Time) error {
	if m.Status != StatusFree {
		return ErrMachineNotFree
	}
	end := now.Add(duration)
	predicted := end.Add(predictedDelay)

	m.Status = StatusBusy
	m.Occupant = &occupant
	m.CycleEndTime = &end
	m.PredictedEndTime = &predicted
	m.NotifiedAlmostDone = false
	m.NotificationLevel = LevelNormal
	return nil
}

// tickDeadline applies the deadline-driven Busy -> Idle transition. It is
// idempotent: once Idle, repeated calls past the deadline do nothing.
func (m *Machine) tickDeadline(now time.Time) bool {
	if m.Status != StatusBusy || m.CycleEndTime == nil || now.Before(*m.CycleEndTime) {
		return false
	}
	m.Status = StatusIdle
	m.NotificationLevel = LevelFinal
	m.LastUsedAt = &now
	m.TotalUsageCount++
	return true
}

// collect transitions an Idle machine back to Free and returns the signed
// collection delay in whole minutes. Negative values are preserved for
// history even though Idle implies the deadline has passed.
func (m *Machine) collect(caller UserRef, now time.Time) (int, error) {
	if m.Status != StatusIdle || m.CycleEndTime == nil {
		return 0, ErrMachineNotIdle
	}
	if !m.OccupiedBy(caller) {
		return 0, ErrNotOccupant
	}
	delayMinutes := int(math.Round(now.Sub(*m.CycleEndTime).Minutes()))

	m.Status = StatusFree
	m.Occupant = nil
	m.CycleEndTime = nil
	m.PredictedEndTime = nil
	m.NotifiedAlmostDone = false
	m.NotificationLevel = LevelNormal
	return delayMinutes, nil
}
