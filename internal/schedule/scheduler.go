package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"laundry-aura-backend/internal/model"
	"laundry-aura-backend/internal/store"
)

// Reminder offsets before a slot's start, farthest first.
var reminderOffsets = []struct {
	before time.Duration
	label  string
}{
	{24 * time.Hour, "in 24 hours"},
	{time.Hour, "in 1 hour"},
	{15 * time.Minute, "in 15 minutes"},
}

var (
	ErrInvalidInterval = errors.New("slot end must be after start")
	ErrNotSlotOwner    = errors.New("slot belongs to another user")
)

// Notifier delivers a user-directed notification.
type Notifier interface {
	Notify(userID, ntype, title, message, priority string)
}

// Request describes a slot to schedule.
type Request struct {
	MachineID   int       `json:"machineId"`
	MachineType string    `json:"machineType"`
	Residence   string    `json:"residence"`
	UserID      string    `json:"userId"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// Scheduler owns slot reservations and their pending reminders. Slots are
// persisted through the store; reminders live in a single min-heap that the
// tick driver drains, so tests can fast-forward by handing FireDue a
// synthetic clock value.
type Scheduler struct {
	mu        sync.Mutex
	reminders reminderHeap
	store     store.Store
	notifier  Notifier
}

// NewScheduler creates a scheduler on top of the given store.
func NewScheduler(st store.Store, notifier Notifier) *Scheduler {
	return &Scheduler{store: st, notifier: notifier}
}

// IsAvailable reports whether [start,end) intersects no existing
// non-cancelled slot for the machine. Touching endpoints do not conflict.
func (s *Scheduler) IsAvailable(ctx context.Context, residence string, machineID int, start, end time.Time) (bool, error) {
	slots, err := s.store.SlotsForMachine(ctx, residence, machineID,
		model.SlotScheduled, model.SlotActive)
	if err != nil {
		return false, fmt.Errorf("failed to load slots for machine %d: %w", machineID, err)
	}
	for _, slot := range slots {
		startsDuring := !start.Before(slot.StartTime) && start.Before(slot.EndTime)
		endsDuring := end.After(slot.StartTime) && !end.After(slot.EndTime)
		contains := !start.After(slot.StartTime) && !end.Before(slot.EndTime)
		if startsDuring || endsDuring || contains {
			return false, nil
		}
	}
	return true, nil
}

// Schedule creates the slot and registers its future reminders. It does
// not check for conflicts itself; callers query IsAvailable first.
func (s *Scheduler) Schedule(ctx context.Context, req Request, now time.Time) (model.LaundrySlot, error) {
	if !req.EndTime.After(req.StartTime) {
		return model.LaundrySlot{}, ErrInvalidInterval
	}

	slot := model.LaundrySlot{
		ID:          uuid.NewString(),
		MachineID:   req.MachineID,
		MachineType: req.MachineType,
		Residence:   req.Residence,
		UserID:      req.UserID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      model.SlotScheduled,
		CreatedAt:   now,
	}
	if err := s.store.CreateSlot(ctx, &slot); err != nil {
		return model.LaundrySlot{}, err
	}

	s.mu.Lock()
	for _, off := range reminderOffsets {
		fireAt := req.StartTime.Add(-off.before)
		// Reminders already in the past are dropped, not delivered late.
		if fireAt.After(now) {
			s.reminders.push(reminder{
				fireAt: fireAt,
				slotID: slot.ID,
				userID: slot.UserID,
				label:  off.label,
			})
		}
	}
	s.mu.Unlock()

	s.notifier.Notify(slot.UserID, model.TypeSlotReminder, "Slot Scheduled",
		fmt.Sprintf("Your laundry slot for %s %d is scheduled for %s.",
			slot.MachineType, slot.MachineID, slot.StartTime.Format(time.RFC1123)),
		model.PriorityMedium)
	return slot, nil
}

// Cancel moves a scheduled slot to cancelled. Pending reminders are not
// revoked; FireDue suppresses them by re-checking status.
func (s *Scheduler) Cancel(ctx context.Context, slotID, userID string) error {
	slot, err := s.store.SlotByID(ctx, slotID)
	if err != nil {
		return err
	}
	if slot.UserID != userID {
		return ErrNotSlotOwner
	}
	if err := s.store.UpdateSlotStatus(ctx, slotID, model.SlotCancelled); err != nil {
		return err
	}

	s.notifier.Notify(slot.UserID, model.TypeSlotReminder, "Slot Cancelled",
		fmt.Sprintf("Your laundry slot for %s %d has been cancelled.",
			slot.MachineType, slot.MachineID),
		model.PriorityMedium)
	return nil
}

// FireDue delivers every reminder whose time has come, skipping slots that
// are no longer scheduled. The tick driver calls this once per tick.
func (s *Scheduler) FireDue(ctx context.Context, now time.Time) {
	s.mu.Lock()
	var due []reminder
	for {
		r, ok := s.reminders.popDue(now)
		if !ok {
			break
		}
		due = append(due, r)
	}
	s.mu.Unlock()

	for _, r := range due {
		slot, err := s.store.SlotByID(ctx, r.slotID)
		if err != nil {
			log.Printf("reminder for slot %s dropped: %v", r.slotID, err)
			continue
		}
		if slot.Status != model.SlotScheduled {
			continue
		}
		s.notifier.Notify(r.userID, model.TypeSlotReminder, "Laundry Reminder",
			fmt.Sprintf("Your laundry slot for %s %d starts %s.",
				slot.MachineType, slot.MachineID, r.label),
			model.PriorityMedium)
	}
}

// PendingReminders reports how many reminders are still queued.
func (s *Scheduler) PendingReminders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminders.Len()
}
