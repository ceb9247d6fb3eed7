package laundry

import (
	"testing"

	model "github.com/glkeru/laundry/internal/models"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	t.Parallel()
	seen := map[string]bool{}
	for _, a := range Catalog() {
		require.False(t, seen[a.ID], "duplicate achievement %s", a.ID)
		seen[a.ID] = true
		require.NotNil(t, a.Metric, a.ID)
		require.Positive(t, a.Target, a.ID)
		require.Positive(t, a.PointReward, a.ID)
	}
	require.Len(t, seen, 8)

	a, ok := FindAchievement("eco_warrior")
	require.True(t, ok)
	require.Equal(t, float64(5), a.Target)
	_, ok = FindAchievement("nope")
	require.False(t, ok)
}

func TestAchievementProgress(t *testing.T) {
	t.Parallel()
	l := &model.Ledger{
		Stats:                model.LedgerStats{TotalOrders: 4, EcoFriendlyChoices: 7, TotalSpent: 250},
		UnlockedAchievements: []model.UnlockedAchievement{{ID: "first_order"}},
	}

	progress := map[string]AchievementProgress{}
	for _, p := range progressFor(l) {
		progress[p.Definition.ID] = p
	}
	require.True(t, progress["first_order"].Unlocked)
	require.Equal(t, 100, progress["first_order"].ProgressPercent)
	require.Equal(t, 40, progress["regular_customer"].ProgressPercent)
	require.Equal(t, 8, progress["laundry_legend"].ProgressPercent)
	require.Equal(t, 25, progress["big_spender"].ProgressPercent)
	// выполнено, но еще не открыто: прогресс ограничен 100
	require.False(t, progress["eco_warrior"].Unlocked)
	require.Equal(t, 100, progress["eco_warrior"].ProgressPercent)
	require.Equal(t, 0, progress["social_butterfly"].ProgressPercent)
}
