package laundry

import (
	"sort"
	"sync"
	"time"
)

// Registry owns the machine fleets of every residence group. All mutations
// are serialized through its lock so a tick-driven deadline transition and
// a concurrent collect are always evaluated against fresh state.
type Registry struct {
	mu         sync.Mutex
	fleets     map[string][]*Machine
	residences []string
}

// NewRegistry builds the fleet for each residence: washers first, then
// dryers, with sequential IDs starting at 1.
func NewRegistry(residences []string, washers, dryers int) *Registry {
	r := &Registry{
		fleets:     make(map[string][]*Machine, len(residences)),
		residences: append([]string(nil), residences...),
	}
	for _, res := range residences {
		fleet := make([]*Machine, 0, washers+dryers)
		for i := 0; i < washers; i++ {
			fleet = append(fleet, &Machine{
				ID:                i + 1,
				Type:              Washer,
				Status:            StatusFree,
				NotificationLevel: LevelNormal,
			})
		}
		for i := 0; i < dryers; i++ {
			fleet = append(fleet, &Machine{
				ID:                washers + i + 1,
				Type:              Dryer,
				Status:            StatusFree,
				NotificationLevel: LevelNormal,
			})
		}
		r.fleets[res] = fleet
	}
	return r
}

// Residences returns the known residence names, sorted.
func (r *Registry) Residences() []string {
	out := append([]string(nil), r.residences...)
	sort.Strings(out)
	return out
}

func (r *Registry) find(residence string, machineID int) (*Machine, error) {
	fleet, ok := r.fleets[residence]
	if !ok {
		return nil, ErrUnknownResidence
	}
	for _, m := range fleet {
		if m.ID == machineID {
			return m, nil
		}
	}
	return nil, ErrUnknownMachine
}

// StartCycle begins a cycle on a Free machine. Admins cannot operate
// machines; durations must be one of the offered program lengths.
func (r *Registry) StartCycle(residence string, machineID int, occupant UserRef, isAdmin bool, durationMinutes, predictedDelayMinutes int, now time.Time) error {
	if isAdmin {
		return ErrAdminCannotStart
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.find(residence, machineID)
	if err != nil {
		return err
	}
	if !m.ValidDuration(durationMinutes) {
		return ErrInvalidDuration
	}
	return m.startCycle(occupant,
		time.Duration(durationMinutes)*time.Minute,
		time.Duration(predictedDelayMinutes)*time.Minute,
		now)
}

// Collect returns an Idle machine to Free and reports the signed collection
// delay in minutes.
func (r *Registry) Collect(residence string, machineID int, caller UserRef, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.find(residence, machineID)
	if err != nil {
		return 0, err
	}
	return m.collect(caller, now)
}

// Tick advances every machine one step and returns the events to deliver.
// It runs once per wall-clock tick for the whole registry; callers fan the
// events out to matching viewers afterwards, outside the lock.
func (r *Registry) Tick(now time.Time) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []Event
	for _, res := range r.residences {
		for _, m := range r.fleets[res] {
			if ev := escalate(res, m, now); ev != nil {
				events = append(events, *ev)
			}
		}
	}
	return events
}

// Machine returns a copy of one machine's state.
func (r *Registry) Machine(residence string, machineID int) (Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.find(residence, machineID)
	if err != nil {
		return Machine{}, err
	}
	return *m, nil
}

// Snapshot returns copies of every machine in a residence group.
func (r *Registry) Snapshot(residence string) ([]Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fleet, ok := r.fleets[residence]
	if !ok {
		return nil, ErrUnknownResidence
	}
	out := make([]Machine, len(fleet))
	for i, m := range fleet {
		out[i] = *m
	}
	return out, nil
}
