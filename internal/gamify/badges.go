package gamify

import "time"

// Badge rarities.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Badge is a catalog badge plus the moment the user earned it.
type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Rarity      string    `json:"rarity"`
	EarnedAt    time.Time `json:"earnedAt"`
}

// BadgeDef is an immutable catalog entry: static data plus its predicate.
type BadgeDef struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Rarity      string
	Earned      func(u *User) bool
}

func earlyCollections(u *User) int {
	n := 0
	for _, d := range u.DelayHistory {
		if d < 0 {
			n++
		}
	}
	return n
}

// Catalog is the static badge catalog, evaluated table-driven after every
// collection and point award. A badge already owned is never re-awarded.
var Catalog = []BadgeDef{
	{
		ID: "first_cycle", Name: "First Steps",
		Description: "Completed your first laundry cycle",
		Icon:        "🌱", Rarity: RarityCommon,
		Earned: func(u *User) bool { return u.TotalCycles >= 1 },
	},
	{
		ID: "on_time_5", Name: "Punctual",
		Description: "Collected laundry on time 5 times",
		Icon:        "⏰", Rarity: RarityCommon,
		Earned: func(u *User) bool { return u.OnTimeCollections >= 5 },
	},
	{
		ID: "streak_7", Name: "Consistent",
		Description: "7-day collection streak",
		Icon:        "🔥", Rarity: RarityRare,
		Earned: func(u *User) bool { return u.Streak >= 7 },
	},
	{
		ID: "streak_30", Name: "Dedicated",
		Description: "30-day collection streak",
		Icon:        "💎", Rarity: RarityEpic,
		Earned: func(u *User) bool { return u.Streak >= 30 },
	},
	{
		ID: "perfect_week", Name: "Perfectionist",
		Description: "Perfect on-time collection for a week",
		Icon:        "⭐", Rarity: RarityRare,
		Earned: func(u *User) bool { return u.OnTimeCollections >= 7 && u.TotalCycles >= 7 },
	},
	{
		ID: "early_bird", Name: "Early Bird",
		Description: "Collected laundry 5+ minutes early 10 times",
		Icon:        "🐦", Rarity: RarityRare,
		Earned: func(u *User) bool { return earlyCollections(u) >= 10 },
	},
	{
		ID: "laundry_master", Name: "Laundry Master",
		Description: "100 cycles completed",
		Icon:        "👑", Rarity: RarityLegendary,
		Earned: func(u *User) bool { return u.TotalCycles >= 100 },
	},
	{
		ID: "efficiency_expert", Name: "Efficiency Expert",
		Description: "95%+ on-time collection rate",
		Icon:        "🎯", Rarity: RarityEpic,
		Earned: func(u *User) bool {
			return u.TotalCycles > 0 && float64(u.OnTimeCollections)/float64(u.TotalCycles) >= 0.95
		},
	},
}
