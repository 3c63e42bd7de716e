package metrics

import (
	"github.com/pairstats/analytics-backend/internal/models"
)

// Drawdown scans an equity curve once, tracking the running peak, and
// reports the worst and current drawdown plus the peak/trough/recovery
// markers of the worst episode. Percentages are rounded to 6dp.
//
// An empty curve yields a zero block; a single point has no drawdown.
func Drawdown(points []models.EquityPoint) (models.DrawdownBlock, models.DrawdownPeriod) {
	var block models.DrawdownBlock
	var period models.DrawdownPeriod
	if len(points) == 0 {
		return block, period
	}

	peak := points[0].Equity
	peakDay := points[0].Day
	maxDD := 0.0
	maxPeakDay := points[0].Day
	maxPeakEquity := points[0].Equity
	troughDay := ""

	dd := make([]float64, len(points))
	for i, p := range points {
		if p.Equity > peak {
			peak = p.Equity
			peakDay = p.Day
		}
		if peak != 0 {
			dd[i] = (p.Equity - peak) / peak
		}
		if dd[i] < maxDD {
			maxDD = dd[i]
			troughDay = p.Day
			maxPeakDay = peakDay
			maxPeakEquity = peak
		}
	}

	block.MaxDrawdownPct = Round6(maxDD)
	block.CurrentDrawdownPct = Round6(dd[len(dd)-1])
	if troughDay != "" {
		block.MaxDrawdownPeakDay = maxPeakDay
		period.PeakDay = maxPeakDay
		period.TroughDay = troughDay
		period.RecoveryDay = recoveryDay(points, maxPeakDay, maxPeakEquity)
	}

	for i := len(dd) - 1; i >= 0 && dd[i] < 0; i-- {
		block.CurrentDrawdownDays++
	}

	return block, period
}

// recoveryDay is the first day strictly after the peak whose equity regains
// the peak value; nil when not yet recovered in the window.
func recoveryDay(points []models.EquityPoint, peakDay string, peakEquity float64) *string {
	passedPeak := false
	for _, p := range points {
		if !passedPeak {
			if p.Day == peakDay {
				passedPeak = true
			}
			continue
		}
		if p.Equity >= peakEquity {
			day := p.Day
			return &day
		}
	}
	return nil
}
