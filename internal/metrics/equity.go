package metrics

import (
	"github.com/pairstats/analytics-backend/internal/calendar"
	"github.com/pairstats/analytics-backend/internal/models"
)

// BuildSeries expands sorted daily rows to cover every day in [start, end],
// inserting zero-PnL rows for days with no fills. Rows outside the window
// are dropped. This is the single gap-fill policy for every code path that
// feeds the equity engine.
func BuildSeries(rows []models.DailyRow, start, end string) []models.DailyRow {
	days := calendar.DaysBetween(start, end)
	if days == nil {
		return nil
	}
	byDay := make(map[string]models.DailyRow, len(rows))
	for _, r := range rows {
		byDay[r.Day] = r
	}
	out := make([]models.DailyRow, 0, len(days))
	for _, day := range days {
		if r, ok := byDay[day]; ok {
			out = append(out, r)
		} else {
			out = append(out, models.DailyRow{Day: day})
		}
	}
	return out
}

// Curve builds the equity curve: equity[i] = equity[i-1] + net_pnl[i],
// seeded by the baseline balance. liveOverlay, when non-zero, is added to
// the final point only (the live unrealized-PnL injection).
func Curve(rows []models.DailyRow, baseline, liveOverlay float64) []models.EquityPoint {
	if len(rows) == 0 {
		return nil
	}
	points := make([]models.EquityPoint, len(rows))
	equity := baseline
	for i, r := range rows {
		equity += r.NetPnl
		points[i] = models.EquityPoint{Day: r.Day, Equity: Round6(equity)}
	}
	if liveOverlay != 0 {
		last := &points[len(points)-1]
		last.Equity = Round6(last.Equity + liveOverlay)
	}
	return points
}

// Summary counts winning, losing and flat days over a series.
// Zero days are flat, not losses.
func Summary(rows []models.DailyRow) models.DaySummary {
	var s models.DaySummary
	for _, r := range rows {
		switch {
		case r.NetPnl > 0:
			s.WinningDays++
		case r.NetPnl < 0:
			s.LosingDays++
		default:
			s.FlatDays++
		}
	}
	decided := s.WinningDays + s.LosingDays
	if decided > 0 {
		s.WinRate = Round6(float64(s.WinningDays) / float64(decided))
	}
	return s
}

// Returns converts an equity curve into simple daily returns, seeded by the
// baseline. Zero denominators yield a zero return for that step.
func Returns(points []models.EquityPoint, baseline float64) []float64 {
	if len(points) == 0 {
		return nil
	}
	out := make([]float64, len(points))
	prev := baseline
	for i, p := range points {
		if prev != 0 {
			out[i] = p.Equity/prev - 1
		}
		prev = p.Equity
	}
	return out
}
