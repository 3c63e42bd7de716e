package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/pairstats/analytics-backend/internal/models"
)

// AccountSeries is one account's contribution to a merge: its daily rows
// over its own coverage, baseline, buckets and trade stats.
type AccountSeries struct {
	Account    string
	Baseline   float64
	Rows       []models.DailyRow
	Symbols    []models.Bucket
	Pairs      []models.Bucket
	TradeCount int
	WinRate    float64
}

// coverage returns the first and last day present in the series.
func (s AccountSeries) coverage() (first, last string, ok bool) {
	if len(s.Rows) == 0 {
		return "", "", false
	}
	return s.Rows[0].Day, s.Rows[len(s.Rows)-1].Day, true
}

// ResolveWindow picks the common [start, end] for a set of accounts with
// unequal history. With earliest set, start is the earliest day any account
// has; otherwise the caller-supplied start. End is the requested end clamped
// to the latest day actually available across the accounts, so the merge
// never extends past real data.
func ResolveWindow(series []AccountSeries, requestedStart, requestedEnd string, earliest bool) (string, string, bool) {
	var minFirst, maxLast string
	for _, s := range series {
		first, last, ok := s.coverage()
		if !ok {
			continue
		}
		if minFirst == "" || first < minFirst {
			minFirst = first
		}
		if maxLast == "" || last > maxLast {
			maxLast = last
		}
	}
	if minFirst == "" {
		// No account has any data; fall back to the requested bounds.
		if requestedStart == "" || requestedEnd == "" {
			return "", "", false
		}
		return requestedStart, requestedEnd, true
	}

	start := requestedStart
	if earliest || start == "" {
		start = minFirst
	}
	end := requestedEnd
	if end == "" || end > maxLast {
		end = maxLast
	}
	if start > end {
		return "", "", false
	}
	return start, end, true
}

// Merge combines per-account daily series into one consolidated result over
// [start, end]. Days an account lacks count as zero for that account.
// Drawdown and streaks are recomputed from the combined curve rather than
// averaged, since drawdown is non-linear in its inputs. The blended win
// rate is trade-count weighted.
func Merge(series []AccountSeries, start, end string) models.MergedMetrics {
	out := models.MergedMetrics{
		WindowStart: start,
		WindowEnd:   end,
		Daily:       []models.DailyRow{},
	}

	combined := make(map[string]*dayAccum)
	baseline := 0.0
	for _, s := range series {
		out.Accounts = append(out.Accounts, s.Account)
		baseline += s.Baseline
		for _, r := range s.Rows {
			if r.Day < start || r.Day > end {
				continue
			}
			acc := combined[r.Day]
			if acc == nil {
				acc = &dayAccum{}
				combined[r.Day] = acc
			}
			acc.gross = acc.gross.Add(decimal.NewFromFloat(r.GrossPnl))
			acc.fees = acc.fees.Add(decimal.NewFromFloat(r.Fees))
		}
	}
	out.InitialBalance = Round6(baseline)

	sparse := make([]models.DailyRow, 0, len(combined))
	for day, acc := range combined {
		sparse = append(sparse, models.DailyRow{
			Day:      day,
			GrossPnl: Round6(acc.gross.InexactFloat64()),
			Fees:     Round6(acc.fees.InexactFloat64()),
			NetPnl:   Round6(acc.gross.Sub(acc.fees).InexactFloat64()),
		})
	}
	out.Daily = BuildSeries(sparse, start, end)

	curve := Curve(out.Daily, baseline, 0)
	out.Drawdown, out.DrawdownPeriod = Drawdown(curve)
	out.Streaks = LossStreaks(NetValues(out.Daily))
	out.Summary = Summary(out.Daily)

	symbolLists := make([][]models.Bucket, 0, len(series))
	pairLists := make([][]models.Bucket, 0, len(series))
	totalTrades := 0
	weighted := 0.0
	for _, s := range series {
		symbolLists = append(symbolLists, s.Symbols)
		pairLists = append(pairLists, s.Pairs)
		totalTrades += s.TradeCount
		weighted += s.WinRate * float64(s.TradeCount)
	}
	out.PnlPerSymbol = MergeBuckets(symbolLists...)
	out.PnlPerPair = MergeBuckets(pairLists...)
	out.TradeCount = totalTrades
	if totalTrades > 0 {
		out.Summary.WinRate = Round6(weighted / float64(totalTrades))
	}

	return out
}
