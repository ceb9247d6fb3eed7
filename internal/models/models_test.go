package laundry

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerCheck(t *testing.T) {
	tests := []struct {
		name   string
		ledger Ledger
		ok     bool
	}{
		{"empty", Ledger{}, true},
		{"balanced", Ledger{TotalPointsEarned: 300, RedeemedPoints: 100, AvailablePoints: 200}, true},
		{"mismatch", Ledger{TotalPointsEarned: 300, AvailablePoints: 200}, false},
		{"negative", Ledger{TotalPointsEarned: 100, RedeemedPoints: 200, AvailablePoints: -100}, false},
		{"duplicate achievement", Ledger{UnlockedAchievements: []UnlockedAchievement{{ID: "a"}, {ID: "a"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ledger.Check()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestLedgerClone(t *testing.T) {
	l := Ledger{
		UnlockedAchievements: []UnlockedAchievement{{ID: "a"}},
		ProcessedOrders:      []string{"o1"},
		Outbox:               Outbox{Rewards: []Reward{{ID: "r1"}}},
	}
	c := l.Clone()
	c.UnlockedAchievements[0].ID = "b"
	c.ProcessedOrders = append(c.ProcessedOrders, "o2")
	c.Outbox.Rewards[0].ID = "r2"

	require.Equal(t, "a", l.UnlockedAchievements[0].ID)
	require.Len(t, l.ProcessedOrders, 1)
	require.Equal(t, "r1", l.Outbox.Rewards[0].ID)
	require.True(t, c.OrderProcessed("o2"))
	require.False(t, l.OrderProcessed("o2"))
}

func TestProcessedIDsCapped(t *testing.T) {
	var l Ledger
	for i := 0; i < MaxProcessedIDs+50; i++ {
		l.MarkOrderProcessed("o" + strconv.Itoa(i))
		l.MarkReferralCredited("u" + strconv.Itoa(i))
	}
	require.Len(t, l.ProcessedOrders, MaxProcessedIDs)
	require.Len(t, l.CreditedReferrals, MaxProcessedIDs)
	require.False(t, l.OrderProcessed("o0"))
	require.True(t, l.OrderProcessed("o"+strconv.Itoa(MaxProcessedIDs+49)))
	require.False(t, l.ReferralCredited("u49"))
	require.True(t, l.ReferralCredited("u50"))
}

func TestRewardTypeText(t *testing.T) {
	b, err := json.Marshal(Reward{Type: RewardStreakBonus})
	require.NoError(t, err)
	require.Contains(t, string(b), `"type":"streak_bonus"`)

	var r Reward
	require.NoError(t, json.Unmarshal(b, &r))
	require.Equal(t, RewardStreakBonus, r.Type)

	require.ErrorIs(t, json.Unmarshal([]byte(`{"type":"bogus"}`), &r), ErrValidation)
	_, err = json.Marshal(Reward{Type: RewardType(42)})
	require.Error(t, err)
	require.False(t, RewardType(0).Valid())
}

func TestActorAccess(t *testing.T) {
	o := Order{UserID: "u1"}
	require.True(t, Actor{UserID: "u1"}.CanAccess(o))
	require.True(t, Actor{Admin: true}.CanAccess(o))
	require.False(t, Actor{UserID: "u2"}.CanAccess(o))
	require.False(t, Actor{}.CanAccess(Order{}))
}

func TestRedemptionType(t *testing.T) {
	require.True(t, RedemptionDiscount.HasCoupon())
	require.True(t, RedemptionFreeService.HasCoupon())
	require.False(t, RedemptionCashCredit.HasCoupon())
	require.False(t, RedemptionType("gift").Valid())
}
