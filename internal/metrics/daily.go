package metrics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/pairstats/analytics-backend/internal/models"
	"github.com/pairstats/analytics-backend/internal/reconcile"
)

// Round6 rounds to the declared output precision (6 decimal places).
func Round6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}

type dayAccum struct {
	gross decimal.Decimal
	fees  decimal.Decimal
}

type bucketAccum struct {
	total  decimal.Decimal
	reason string
}

// Aggregate groups reconciled fills into per-day PnL rows and per-symbol /
// per-pair buckets. Accumulation is decimal so money sums carry no float
// drift; rows and buckets convert at the boundary, rounded to 6dp.
// Days with no fills are absent here; BuildSeries fills the gaps.
func Aggregate(fills []models.Fill, pairs *reconcile.PairMap, dayOf func(models.Fill) string) ([]models.DailyRow, []models.Bucket, []models.Bucket) {
	days := make(map[string]*dayAccum)
	symbols := make(map[string]*bucketAccum)
	pairTotals := make(map[string]*bucketAccum)

	for _, f := range fills {
		day := dayOf(f)
		acc := days[day]
		if acc == nil {
			acc = &dayAccum{}
			days[day] = acc
		}
		acc.gross = acc.gross.Add(f.RealizedPnl)
		acc.fees = acc.fees.Add(f.Commission)

		net := f.NetPnl()
		addBucket(symbols, f.Symbol, net, "")

		if label, ok := pairs.Lookup(f); ok {
			addBucket(pairTotals, label, net, "")
		} else {
			addBucket(pairTotals, reconcile.UnmappedLabel(f.Symbol), net, pairs.Reason(f))
		}
	}

	rows := make([]models.DailyRow, 0, len(days))
	for day, acc := range days {
		gross := acc.gross.InexactFloat64()
		fees := acc.fees.InexactFloat64()
		rows = append(rows, models.DailyRow{
			Day:      day,
			GrossPnl: Round6(gross),
			Fees:     Round6(fees),
			NetPnl:   Round6(acc.gross.Sub(acc.fees).InexactFloat64()),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day < rows[j].Day })

	return rows, sortBuckets(symbols), sortBuckets(pairTotals)
}

func addBucket(m map[string]*bucketAccum, label string, amount decimal.Decimal, reason string) {
	b := m[label]
	if b == nil {
		b = &bucketAccum{}
		m[label] = b
	}
	b.total = b.total.Add(amount)
	if reason != "" && b.reason == "" {
		b.reason = reason
	}
}

// sortBuckets orders by descending absolute total, label ascending on ties
// so the output is deterministic.
func sortBuckets(m map[string]*bucketAccum) []models.Bucket {
	out := make([]models.Bucket, 0, len(m))
	for label, b := range m {
		out = append(out, models.Bucket{
			Label:  label,
			Total:  Round6(b.total.InexactFloat64()),
			Reason: b.reason,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Total), math.Abs(out[j].Total)
		if ai != aj {
			return ai > aj
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// MergeBuckets sums same-label buckets across accounts, keeping the first
// non-empty reason, and re-sorts by descending absolute total.
func MergeBuckets(lists ...[]models.Bucket) []models.Bucket {
	m := make(map[string]*bucketAccum)
	for _, list := range lists {
		for _, b := range list {
			addBucket(m, b.Label, decimal.NewFromFloat(b.Total), b.Reason)
		}
	}
	return sortBuckets(m)
}
