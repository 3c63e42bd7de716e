package metrics

import (
	"github.com/pairstats/analytics-backend/internal/models"
)

// LossStreaks counts consecutive losing days in a single forward pass.
// Only strictly negative values count as losses: a zero day ends a streak,
// because zero and negative are materially different outcomes for risk
// monitoring.
func LossStreaks(net []float64) models.Streaks {
	var s models.Streaks
	run := 0
	for _, v := range net {
		if v < 0 {
			run++
			if run > s.Max {
				s.Max = run
			}
		} else {
			run = 0
		}
	}
	s.Current = run
	return s
}

// NetValues extracts the net-PnL column from a daily series.
func NetValues(rows []models.DailyRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.NetPnl
	}
	return out
}
