package laundry

import (
	"math"

	model "github.com/glkeru/laundry/internal/models"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Описание достижения. Достижение открыто, когда Metric >= Target.
type Achievement struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Rarity      Rarity  `json:"rarity"`
	PointReward int64   `json:"pointReward"`
	Target      float64 `json:"target"`

	Metric func(l *model.Ledger) float64 `json:"-"`
}

func (a Achievement) Satisfied(l *model.Ledger) bool {
	return a.Metric(l) >= a.Target
}

// прогресс в процентах, 0..100
func (a Achievement) Progress(l *model.Ledger) int {
	if a.Target <= 0 {
		return 100
	}
	p := int(math.Floor(a.Metric(l) * 100 / a.Target))
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

var catalog = []Achievement{
	{
		ID: "first_order", Name: "First Wash", Description: "Complete your first order",
		Rarity: RarityCommon, PointReward: 50, Target: 1,
		Metric: func(l *model.Ledger) float64 { return float64(l.Stats.TotalOrders) },
	},
	{
		ID: "regular_customer", Name: "Regular", Description: "Complete 10 orders",
		Rarity: RarityRare, PointReward: 150, Target: 10,
		Metric: func(l *model.Ledger) float64 { return float64(l.Stats.TotalOrders) },
	},
	{
		ID: "laundry_legend", Name: "Laundry Legend", Description: "Complete 50 orders",
		Rarity: RarityLegendary, PointReward: 1000, Target: 50,
		Metric: func(l *model.Ledger) float64 { return float64(l.Stats.TotalOrders) },
	},
	{
		ID: "eco_warrior", Name: "Eco Warrior", Description: "Choose eco-friendly detergent 5 times",
		Rarity: RarityRare, PointReward: 100, Target: 5,
		Metric: func(l *model.Ledger) float64 { return float64(l.Stats.EcoFriendlyChoices) },
	},
	{
		ID: "big_spender", Name: "Big Spender", Description: "Spend 1000 in total",
		Rarity: RarityEpic, PointReward: 300, Target: 1000,
		Metric: func(l *model.Ledger) float64 { return l.Stats.TotalSpent },
	},
	{
		ID: "streak_master", Name: "Streak Master", Description: "Reach a streak of 5 orders",
		Rarity: RarityEpic, PointReward: 250, Target: 5,
		Metric: func(l *model.Ledger) float64 { return float64(l.LongestStreak) },
	},
	{
		ID: "speed_demon", Name: "Speed Demon", Description: "Complete 5 urgent orders",
		Rarity: RarityRare, PointReward: 100, Target: 5,
		Metric: func(l *model.Ledger) float64 { return float64(l.Stats.UrgentOrders) },
	},
	{
		ID: "social_butterfly", Name: "Social Butterfly", Description: "Refer 3 friends",
		Rarity: RarityEpic, PointReward: 300, Target: 3,
		Metric: func(l *model.Ledger) float64 { return float64(l.ReferralsCount) },
	},
}

// Каталог достижений (копия)
func Catalog() []Achievement {
	return append([]Achievement(nil), catalog...)
}

func FindAchievement(id string) (Achievement, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}

type AchievementProgress struct {
	Definition      Achievement `json:"definition"`
	Unlocked        bool        `json:"unlocked"`
	ProgressPercent int         `json:"progressPercent"`
}

func progressFor(l *model.Ledger) []AchievementProgress {
	res := make([]AchievementProgress, 0, len(catalog))
	for _, a := range catalog {
		p := AchievementProgress{Definition: a, Unlocked: l.HasAchievement(a.ID)}
		if p.Unlocked {
			p.ProgressPercent = 100
		} else {
			p.ProgressPercent = a.Progress(l)
		}
		res = append(res, p)
	}
	return res
}
