package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pairstats/analytics-backend/internal/models"
)

type symbolSide struct {
	symbol string
	side   string
}

// fuzzyMatch attributes fills without a direct order-id mapping to ledger
// pairs by proximity to the pair's entry/exit anchors. For each ledger leg it
// finds the closest candidate fill inside the anchor window, then walks
// backward through time-adjacent same-(symbol,side) fills accumulating
// quantity until the leg quantity is reached within tolerance or the chain
// gap is exceeded. Every fill collected in the walk maps to the pair label.
func fuzzyMatch(m *PairMap, fills []models.Fill, ledger []models.PairLedgerEntry, tol Tolerances) {
	groups := make(map[symbolSide][]models.Fill)
	for _, f := range fills {
		if f.OrderID != "" {
			if _, ok := m.direct[f.OrderID]; ok {
				continue // already attributed
			}
		}
		key := symbolSide{symbol: f.Symbol, side: normSide(f.Side)}
		groups[key] = append(groups[key], f)
	}
	for key := range groups {
		g := groups[key]
		sort.Slice(g, func(i, j int) bool { return g[i].Time.Before(g[j].Time) })
		groups[key] = g
	}

	for _, entry := range ledger {
		for _, leg := range entry.Legs {
			if leg.Symbol == "" || leg.Qty.IsZero() {
				continue
			}
			side := "BUY"
			if leg.Qty.IsNegative() {
				side = "SELL"
			}
			group := groups[symbolSide{symbol: leg.Symbol, side: side}]
			if len(group) == 0 {
				continue
			}
			idx, ok := nearestAnchor(group, entry.EntryTime, entry.ExitTime, tol.AnchorWindow)
			if !ok {
				continue
			}
			chainBackward(m, group, idx, leg.Qty.Abs(), entry.Pair, tol)
		}
	}
}

// nearestAnchor returns the index of the fill closest to either anchor
// within the window. Exact ties prefer the entry anchor.
func nearestAnchor(group []models.Fill, entry, exit *time.Time, window time.Duration) (int, bool) {
	bestIdx := -1
	bestDist := window + 1
	for _, anchor := range []*time.Time{entry, exit} {
		if anchor == nil {
			continue
		}
		idx, dist := closestTo(group, *anchor)
		if dist <= window && dist < bestDist {
			bestIdx = idx
			bestDist = dist
		}
	}
	return bestIdx, bestIdx >= 0
}

// closestTo finds the fill nearest in time to ts. The group is sorted, so a
// binary search bounds the candidates to two neighbors.
func closestTo(group []models.Fill, ts time.Time) (int, time.Duration) {
	i := sort.Search(len(group), func(i int) bool {
		return !group[i].Time.Before(ts)
	})
	best, bestDist := -1, time.Duration(1<<62)
	for _, cand := range []int{i - 1, i} {
		if cand < 0 || cand >= len(group) {
			continue
		}
		d := absDuration(group[cand].Time.Sub(ts))
		if d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best, bestDist
}

// chainBackward maps fills [.., idx] to the pair label while accumulating
// quantity toward target, stopping at the tolerance or at a chain gap.
func chainBackward(m *PairMap, group []models.Fill, idx int, target decimal.Decimal, pair string, tol Tolerances) {
	need := target.Mul(decimal.NewFromFloat(1 - tol.QtyTolerance))
	acc := decimal.Zero
	for j := idx; j >= 0; j-- {
		f := group[j]
		if _, taken := m.fuzzy[f.FillID]; taken {
			break // already chained to another pair
		}
		m.fuzzy[f.FillID] = pair
		acc = acc.Add(f.Qty.Abs())
		if acc.GreaterThanOrEqual(need) {
			break
		}
		if j > 0 && group[j].Time.Sub(group[j-1].Time) > tol.MaxChainGap {
			break
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
