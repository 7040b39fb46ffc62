package laundry

import (
	"fmt"
	"time"
)

// Escalation thresholds.
const (
	almostDoneWindow = 5 * time.Minute
	urgentWindow     = 2 * time.Minute
	idleTooLong      = 30 * time.Minute
)

// Event is a notification emitted by the escalation engine. Delivery is the
// caller's concern: the state transition happens exactly once per machine
// per tick, centrally, and the event is then fanned out only to viewers
// matching the occupant identity.
type Event struct {
	Residence string
	MachineID int
	Type      MachineType
	Occupant  UserRef
	Level     Level
	Message   string
}

// DismissAfter maps an escalation level to the auto-dismiss duration a
// presentation layer should apply. This mapping is part of the contract.
func DismissAfter(level Level) time.Duration {
	switch level {
	case LevelUrgent:
		return 8 * time.Second
	case LevelFinal:
		return 10 * time.Second
	default:
		return 5 * time.Second
	}
}

// escalate inspects one machine against its deadlines and applies at most
// one threshold crossing, returning the event to deliver if one fired.
// Precedence, first match wins: idle-too-long, final, urgent, almost-done.
func escalate(residence string, m *Machine, now time.Time) *Event {
	if m.Status == StatusIdle && m.CycleEndTime != nil {
		// Fires once: the level sticks at urgent afterwards.
		if m.NotificationLevel != LevelUrgent && now.Sub(*m.CycleEndTime) > idleTooLong {
			m.NotificationLevel = LevelUrgent
			return newEvent(residence, m, LevelUrgent,
				fmt.Sprintf("Your laundry in %s %d has been ready for 30+ minutes!", m.Type, m.ID))
		}
		return nil
	}

	if m.Status != StatusBusy || m.CycleEndTime == nil {
		return nil
	}
	remaining := m.CycleEndTime.Sub(now)

	if m.tickDeadline(now) {
		return newEvent(residence, m, LevelFinal,
			fmt.Sprintf("FINAL ALERT: Your laundry in %s %d is done!", m.Type, m.ID))
	}

	if remaining < urgentWindow && m.NotificationLevel == LevelNormal {
		m.NotificationLevel = LevelUrgent
		return newEvent(residence, m, LevelUrgent,
			fmt.Sprintf("URGENT: %s %d finishing in 2 minutes!", m.Type, m.ID))
	}

	if remaining < almostDoneWindow && !m.NotifiedAlmostDone {
		m.NotifiedAlmostDone = true
		return newEvent(residence, m, LevelNormal,
			fmt.Sprintf("%s %d is almost done!", m.Type, m.ID))
	}

	return nil
}

func newEvent(residence string, m *Machine, level Level, message string) *Event {
	if m.Occupant == nil {
		return nil
	}
	return &Event{
		Residence: residence,
		MachineID: m.ID,
		Type:      m.Type,
		Occupant:  *m.Occupant,
		Level:     level,
		Message:   message,
	}
}
