package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fill is one executed trade leg as stored in the per-account fill table.
// Money fields stay decimal until they cross into the derived metrics.
type Fill struct {
	Symbol      string          `json:"symbol"`
	FillID      string          `json:"fillId"`
	OrderID     string          `json:"orderId,omitempty"`
	Side        string          `json:"side"` // "BUY" or "SELL"
	Price       decimal.Decimal `json:"price"`
	Qty         decimal.Decimal `json:"qty"`
	RealizedPnl decimal.Decimal `json:"realizedPnl"`
	Commission  decimal.Decimal `json:"commission"`
	Time        time.Time       `json:"time"`
	Account     string          `json:"account,omitempty"`
}

// NetPnl is realized PnL net of commission for this single fill.
func (f Fill) NetPnl() decimal.Decimal {
	return f.RealizedPnl.Sub(f.Commission)
}
