package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/pairstats/analytics-backend/internal/models"
)

// Tolerances bound the fuzzy matcher. Zero values fall back to defaults.
type Tolerances struct {
	AnchorWindow time.Duration // max distance from a fill to an entry/exit anchor
	QtyTolerance float64       // fraction of the leg quantity treated as "reached"
	MaxChainGap  time.Duration // max gap between chained same-(symbol,side) fills
}

// DefaultTolerances are the production settings: +-10s anchor window,
// 5% quantity tolerance, 2s chain gap.
func DefaultTolerances() Tolerances {
	return Tolerances{
		AnchorWindow: 10 * time.Second,
		QtyTolerance: 0.05,
		MaxChainGap:  2 * time.Second,
	}
}

func (t Tolerances) normalized() Tolerances {
	d := DefaultTolerances()
	if t.AnchorWindow <= 0 {
		t.AnchorWindow = d.AnchorWindow
	}
	if t.QtyTolerance <= 0 {
		t.QtyTolerance = d.QtyTolerance
	}
	if t.MaxChainGap <= 0 {
		t.MaxChainGap = d.MaxChainGap
	}
	return t
}

// PairMap attributes fill and order identifiers to pair labels.
// Direct (ledger order id) mappings always win over fuzzy ones.
type PairMap struct {
	direct    map[string]string // order id -> pair label
	fuzzy     map[string]string // fill id -> pair label
	hasLedger bool
}

// Lookup returns the pair label for a fill, direct mapping first.
func (m *PairMap) Lookup(f models.Fill) (string, bool) {
	if m == nil {
		return "", false
	}
	if f.OrderID != "" {
		if label, ok := m.direct[f.OrderID]; ok {
			return label, true
		}
	}
	if label, ok := m.fuzzy[f.FillID]; ok {
		return label, true
	}
	return "", false
}

// Reason explains why a fill has no pair attribution. Diagnostic only;
// an unmapped fill still counts toward symbol and daily totals.
func (m *PairMap) Reason(f models.Fill) string {
	if m == nil || !m.hasLedger {
		return "no ledger data for account"
	}
	if f.OrderID == "" {
		return fmt.Sprintf("fill %s has no order identifier and no entry/exit within tolerance window", f.FillID)
	}
	return fmt.Sprintf("order identifier %s not in ledger and no entry/exit within tolerance window", f.OrderID)
}

// UnmappedLabel is the reserved per-pair bucket label for a symbol.
func UnmappedLabel(symbol string) string {
	return models.UnmappedPrefix + " " + symbol
}

// Build constructs the fill/order -> pair map from ledger entries.
// Phase 1 registers explicit order identifiers; phase 2 runs the fuzzy
// time/side/quantity matcher for fills the ledger does not name directly.
// An empty or nil ledger degrades to "all fills unmapped", never an error.
func Build(fills []models.Fill, ledger []models.PairLedgerEntry, tol Tolerances) *PairMap {
	m := &PairMap{
		direct:    make(map[string]string),
		fuzzy:     make(map[string]string),
		hasLedger: len(ledger) > 0,
	}

	for _, entry := range ledger {
		for _, leg := range entry.Legs {
			if leg.EntryOrderID != "" {
				m.direct[leg.EntryOrderID] = entry.Pair
			}
			if leg.ExitOrderID != "" {
				m.direct[leg.ExitOrderID] = entry.Pair
			}
		}
	}

	fuzzyMatch(m, fills, ledger, tol.normalized())
	return m
}

func normSide(side string) string {
	return strings.ToUpper(strings.TrimSpace(side))
}
