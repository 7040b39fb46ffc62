package queue

import (
	"fmt"
	"sync"
	"time"

	"laundry-aura-backend/internal/laundry"
	"laundry-aura-backend/internal/model"
)

// waitPerTurnMinutes is the fixed per-turn wait heuristic. There is no
// historical-duration awareness.
const waitPerTurnMinutes = 60

// Notifier delivers a user-directed notification. Satisfied by the notify
// service.
type Notifier interface {
	Notify(userID, ntype, title, message, priority string)
}

// Entry is one waiting user. Positions within a queue are a contiguous
// 1..N permutation at all times.
type Entry struct {
	MachineID            int             `json:"machineId"`
	Residence            string          `json:"residence"`
	UserID               string          `json:"userId"`
	UserRef              laundry.UserRef `json:"user"`
	Position             int             `json:"position"`
	EstimatedWaitMinutes int             `json:"estimatedWaitMinutes"`
	JoinedAt             time.Time       `json:"joinedAt"`
	Notified             bool            `json:"notified"`
}

type queueKey struct {
	residence string
	machineID int
}

// Manager owns the per-machine FIFO queues. Machine IDs are only unique
// within a residence group, so queues are keyed by both.
type Manager struct {
	mu       sync.Mutex
	queues   map[queueKey][]*Entry
	notifier Notifier
	now      func() time.Time
}

// NewManager creates an empty queue manager.
func NewManager(notifier Notifier) *Manager {
	return &Manager{
		queues:   make(map[queueKey][]*Entry),
		notifier: notifier,
		now:      time.Now,
	}
}

// Join appends the user at the tail and tells them their position and
// estimated wait. Joining a queue the user is already in is a no-op and
// returns their existing entry.
func (m *Manager) Join(residence string, machineID int, user laundry.UserRef) Entry {
	m.mu.Lock()
	key := queueKey{residence, machineID}
	q := m.queues[key]
	for _, e := range q {
		if e.UserID == user.Name {
			out := *e
			m.mu.Unlock()
			return out
		}
	}
	entry := &Entry{
		MachineID:            machineID,
		Residence:            residence,
		UserID:               user.Name,
		UserRef:              user,
		Position:             len(q) + 1,
		EstimatedWaitMinutes: (len(q) + 1) * waitPerTurnMinutes,
		JoinedAt:             m.now(),
	}
	m.queues[key] = append(q, entry)
	out := *entry
	m.mu.Unlock()

	m.notifier.Notify(user.Name, model.TypeQueueUpdate, "Added to Queue",
		fmt.Sprintf("You're #%d in line for machine %d. Estimated wait: %d minutes.",
			out.Position, machineID, out.EstimatedWaitMinutes),
		model.PriorityMedium)
	return out
}

// Leave removes the user's entry and recompacts the remaining positions to
// 1..N. Only members whose position changed are re-notified.
func (m *Manager) Leave(residence string, machineID int, userID string) {
	m.mu.Lock()
	key := queueKey{residence, machineID}
	q := m.queues[key]

	idx := -1
	for i, e := range q {
		if e.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return
	}

	q = append(q[:idx], q[idx+1:]...)
	var moved []Entry
	for i, e := range q {
		if e.Position != i+1 {
			e.Position = i + 1
			e.EstimatedWaitMinutes = (i + 1) * waitPerTurnMinutes
			moved = append(moved, *e)
		}
	}
	if len(q) == 0 {
		delete(m.queues, key)
	} else {
		m.queues[key] = q
	}
	m.mu.Unlock()

	for _, e := range moved {
		m.notifier.Notify(e.UserID, model.TypeQueueUpdate, "Queue Update",
			fmt.Sprintf("You're now #%d in line for machine %d.", e.Position, machineID),
			model.PriorityLow)
	}
}

// NotifyNext tells the queue head the machine is available and marks it
// notified. It does not dequeue; that happens when the head starts a cycle.
func (m *Manager) NotifyNext(residence string, machineID int) {
	m.mu.Lock()
	q := m.queues[queueKey{residence, machineID}]
	if len(q) == 0 {
		m.mu.Unlock()
		return
	}
	head := q[0]
	head.Notified = true
	userID := head.UserID
	m.mu.Unlock()

	m.notifier.Notify(userID, model.TypeMachineAvailable, "Machine Available!",
		fmt.Sprintf("Machine %d is now available. You're next in line!", machineID),
		model.PriorityHigh)
}

// Queue returns a copy of a machine's queue in position order.
func (m *Manager) Queue(residence string, machineID int) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[queueKey{residence, machineID}]
	out := make([]Entry, len(q))
	for i, e := range q {
		out[i] = *e
	}
	return out
}

// Head returns the queue head, if any.
func (m *Manager) Head(residence string, machineID int) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.queues[queueKey{residence, machineID}]
	if len(q) == 0 {
		return Entry{}, false
	}
	return *q[0], true
}
