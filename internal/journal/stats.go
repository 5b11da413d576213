package journal

import "forex-journal/internal/models"

// ComputeStats reduces trades into summary metrics in a single pass.
// A trade with zero profit/loss is neither a win nor a loss but still
// counts towards the total. Rates are 0 for an empty input.
func ComputeStats(trades []models.Trade) models.Stats {
	var stats models.Stats
	var wins, followed int

	for _, t := range trades {
		stats.TotalTrades++
		stats.TotalPL += t.ProfitLoss
		if t.ProfitLoss > 0 {
			wins++
		}
		if t.RulesFollowed {
			followed++
		}
	}

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(wins) / float64(stats.TotalTrades) * 100
		stats.RulesFollowedRate = float64(followed) / float64(stats.TotalTrades) * 100
	}
	return stats
}
