package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PairLeg is one side of a two-legged strategy pair. Qty is signed:
// positive implies the leg was bought, negative sold.
type PairLeg struct {
	Symbol       string          `json:"symbol"`
	Qty          decimal.Decimal `json:"qty"`
	EntryOrderID string          `json:"entryOrderId,omitempty"`
	ExitOrderID  string          `json:"exitOrderId,omitempty"`
}

// PairLedgerEntry is a logical strategy pair from the tradesheet snapshot.
// Read-only input to reconciliation.
type PairLedgerEntry struct {
	Pair      string     `json:"pair"`
	Legs      [2]PairLeg `json:"legs"`
	EntryTime *time.Time `json:"entryTime,omitempty"`
	ExitTime  *time.Time `json:"exitTime,omitempty"`
}
