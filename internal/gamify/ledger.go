package gamify

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// User roles.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// Point actions with their multipliers. Multipliers are keyed by the
// caller-chosen action label, not by the delay that produced the award.
const (
	ActionOnTimeCollection = "on_time_collection" // x2
	ActionEarlyCollection  = "early_collection"   // x3
	ActionPerfectTiming    = "perfect_timing"     // flat
	ActionStreakBonus      = "streak_bonus"       // x streak
)

const onTimeGraceMinutes = 5

// User is a profile with its gamification state. Profiles live for the
// whole process and are only mutated through the ledger.
type User struct {
	Name              string  `json:"name"`
	Residence         string  `json:"residence"`
	Role              string  `json:"role"`
	DelayHistory      []int   `json:"delayHistory"`
	Points            int     `json:"points"`
	Badges            []Badge `json:"badges"`
	Streak            int     `json:"streak"`
	TotalCycles       int     `json:"totalCycles"`
	OnTimeCollections int     `json:"onTimeCollections"`
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	Name       string  `json:"name"`
	Residence  string  `json:"residence"`
	Points     int     `json:"points"`
	Badges     int     `json:"badges"`
	Streak     int     `json:"streak"`
	OnTimeRate float64 `json:"onTimeRate"`
}

// ResidenceStats aggregates the users of one residence.
type ResidenceStats struct {
	Name              string             `json:"name"`
	TotalUsers        int                `json:"totalUsers"`
	TotalCycles       int                `json:"totalCycles"`
	TotalPoints       int                `json:"totalPoints"`
	AverageOnTimeRate int                `json:"averageOnTimeRate"`
	TopUsers          []LeaderboardEntry `json:"topUsers"`
}

// CollectionResult reports what a collection earned.
type CollectionResult struct {
	DelayMinutes  int     `json:"delayMinutes"`
	OnTime        bool    `json:"onTime"`
	PointsAwarded int     `json:"pointsAwarded"`
	NewBadges     []Badge `json:"newBadges"`
}

var ErrUnknownUser = errors.New("unknown user")

// Ledger owns every user profile and the derived leaderboard. Single
// instance per process, explicitly constructed and passed by reference.
type Ledger struct {
	mu          sync.Mutex
	users       map[string]*User
	order       []string // registration order, for stable leaderboard ties
	leaderboard []LeaderboardEntry
	now         func() time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		users: make(map[string]*User),
		now:   time.Now,
	}
}

// Login creates the profile on first sight and returns a copy of it.
// The name "admin" (case-insensitive) carries the admin role and no
// residence.
func (l *Ledger) Login(name, residence string) User {
	l.mu.Lock()
	defer l.mu.Unlock()

	if u, ok := l.users[name]; ok {
		return copyUser(u)
	}

	u := &User{
		Name:         name,
		Residence:    residence,
		Role:         RoleStudent,
		DelayHistory: []int{},
		Badges:       []Badge{},
	}
	if strings.EqualFold(name, RoleAdmin) {
		u.Role = RoleAdmin
		u.Residence = ""
	}
	l.users[name] = u
	l.order = append(l.order, name)
	l.rebuildLeaderboard()
	return copyUser(u)
}

// User returns a copy of a profile.
func (l *Ledger) User(name string) (User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[name]
	if !ok {
		return User{}, false
	}
	return copyUser(u), true
}

// RecordCollection applies one collection event: history, cycle counters,
// streak, points, and badge evaluation.
func (l *Ledger) RecordCollection(name string, delayMinutes int) (CollectionResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[name]
	if !ok {
		return CollectionResult{}, ErrUnknownUser
	}

	res := CollectionResult{
		DelayMinutes: delayMinutes,
		OnTime:       delayMinutes <= onTimeGraceMinutes,
	}

	u.DelayHistory = append(u.DelayHistory, delayMinutes)
	u.TotalCycles++

	if res.OnTime {
		u.OnTimeCollections++
		u.Streak++
		res.PointsAwarded += l.award(u, ActionOnTimeCollection, 10)
	} else {
		u.Streak = 0
	}

	// The delay-based bonus is additive with the on-time award above.
	if delayMinutes < 0 {
		res.PointsAwarded += l.award(u, ActionEarlyCollection, -delayMinutes)
	} else if delayMinutes == 0 {
		res.PointsAwarded += l.award(u, ActionPerfectTiming, 15)
	}

	res.NewBadges = l.checkBadges(u)
	l.rebuildLeaderboard()
	return res, nil
}

// AwardPoints awards points under an action label and returns the amount
// actually credited after the action's multiplier.
func (l *Ledger) AwardPoints(name, action string, amount int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[name]
	if !ok {
		return 0, ErrUnknownUser
	}
	awarded := l.award(u, action, amount)
	l.checkBadges(u)
	l.rebuildLeaderboard()
	return awarded, nil
}

func (l *Ledger) award(u *User, action string, amount int) int {
	awarded := amount
	switch action {
	case ActionOnTimeCollection:
		awarded = amount * 2
	case ActionEarlyCollection:
		awarded = amount * 3
	case ActionStreakBonus:
		awarded = amount * u.Streak
	}
	u.Points += awarded
	return awarded
}

// checkBadges scans the catalog and grants anything newly earned.
func (l *Ledger) checkBadges(u *User) []Badge {
	owned := make(map[string]bool, len(u.Badges))
	for _, b := range u.Badges {
		owned[b.ID] = true
	}

	var granted []Badge
	for _, def := range Catalog {
		if owned[def.ID] || !def.Earned(u) {
			continue
		}
		b := Badge{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Rarity:      def.Rarity,
			EarnedAt:    l.now(),
		}
		u.Badges = append(u.Badges, b)
		granted = append(granted, b)
	}
	return granted
}

// Leaderboard returns all users sorted descending by points. Ties keep
// registration order.
func (l *Ledger) Leaderboard() []LeaderboardEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LeaderboardEntry(nil), l.leaderboard...)
}

// rebuildLeaderboard recomputes synchronously after any points or badge
// change; there is no lazy invalidation.
func (l *Ledger) rebuildLeaderboard() {
	entries := make([]LeaderboardEntry, 0, len(l.order))
	for _, name := range l.order {
		entries = append(entries, entryFor(l.users[name]))
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	l.leaderboard = entries
}

// Stats aggregates the profiles registered under one residence.
func (l *Ledger) Stats(residence string) ResidenceStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := ResidenceStats{Name: residence}
	var rateSum float64
	var members []LeaderboardEntry
	for _, name := range l.order {
		u := l.users[name]
		if u.Residence != residence {
			continue
		}
		stats.TotalUsers++
		stats.TotalCycles += u.TotalCycles
		stats.TotalPoints += u.Points
		rateSum += onTimeRate(u)
		members = append(members, entryFor(u))
	}
	if stats.TotalUsers > 0 {
		stats.AverageOnTimeRate = int(rateSum/float64(stats.TotalUsers) + 0.5)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Points > members[j].Points
	})
	if len(members) > 5 {
		members = members[:5]
	}
	stats.TopUsers = members
	return stats
}

func entryFor(u *User) LeaderboardEntry {
	return LeaderboardEntry{
		Name:       u.Name,
		Residence:  u.Residence,
		Points:     u.Points,
		Badges:     len(u.Badges),
		Streak:     u.Streak,
		OnTimeRate: onTimeRate(u),
	}
}

func onTimeRate(u *User) float64 {
	if u.TotalCycles == 0 {
		return 0
	}
	return float64(u.OnTimeCollections) / float64(u.TotalCycles) * 100
}

func copyUser(u *User) User {
	out := *u
	out.DelayHistory = append([]int(nil), u.DelayHistory...)
	out.Badges = append([]Badge(nil), u.Badges...)
	return out
}
