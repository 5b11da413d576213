package journal

import (
	"testing"

	"forex-journal/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	testCases := []struct {
		name             string
		trades           []models.Trade
		expectedTotalPL  float64
		expectedWinRate  float64
		expectedFollowed float64
	}{
		{
			name: "Empty",
		},
		{
			name: "Win, loss and break-even",
			trades: []models.Trade{
				{ProfitLoss: 100, RulesFollowed: true},
				{ProfitLoss: -50, RulesFollowed: false},
				{ProfitLoss: 0, RulesFollowed: true},
			},
			expectedTotalPL:  50,
			expectedWinRate:  100.0 / 3,
			expectedFollowed: 200.0 / 3,
		},
		{
			name: "All losses, rules ignored",
			trades: []models.Trade{
				{ProfitLoss: -10.25},
				{ProfitLoss: -4.75},
			},
			expectedTotalPL: -15,
		},
		{
			name: "All wins",
			trades: []models.Trade{
				{ProfitLoss: 1, RulesFollowed: true},
				{ProfitLoss: 2.5, RulesFollowed: true},
			},
			expectedTotalPL:  3.5,
			expectedWinRate:  100,
			expectedFollowed: 100,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stats := ComputeStats(tc.trades)

			assert.Equal(t, len(tc.trades), stats.TotalTrades)
			assert.InDelta(t, tc.expectedTotalPL, stats.TotalPL, 1e-9)
			assert.InDelta(t, tc.expectedWinRate, stats.WinRate, 1e-9)
			assert.InDelta(t, tc.expectedFollowed, stats.RulesFollowedRate, 1e-9)
			assert.GreaterOrEqual(t, stats.WinRate, 0.0)
			assert.LessOrEqual(t, stats.WinRate, 100.0)
			assert.GreaterOrEqual(t, stats.RulesFollowedRate, 0.0)
			assert.LessOrEqual(t, stats.RulesFollowedRate, 100.0)
		})
	}
}
