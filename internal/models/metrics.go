package models

// UnmappedPrefix labels per-pair buckets for fills that could not be
// attributed to any ledger pair. The full label is "[UNMAPPED] <symbol>".
const UnmappedPrefix = "[UNMAPPED]"

// DailyRow is one calendar day of realized PnL. NetPnl == GrossPnl - Fees.
type DailyRow struct {
	Day      string  `json:"day"`
	GrossPnl float64 `json:"gross_pnl"`
	Fees     float64 `json:"fees"`
	NetPnl   float64 `json:"net_pnl"`
}

// EquityPoint is one point of the equity curve built from a baseline
// balance plus cumulative daily net PnL.
type EquityPoint struct {
	Day    string  `json:"day"`
	Equity float64 `json:"equity"`
}

// DrawdownBlock summarizes running drawdown over an equity curve.
// MaxDrawdownPct <= CurrentDrawdownPct <= 0 always.
type DrawdownBlock struct {
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	MaxDrawdownPeakDay  string  `json:"max_drawdown_peak_day"`
	CurrentDrawdownPct  float64 `json:"current_drawdown_pct"`
	CurrentDrawdownDays int     `json:"current_drawdown_days"`
}

// DrawdownPeriod marks the worst peak-to-trough episode. RecoveryDay is
// nil while equity has not regained the peak within the window.
type DrawdownPeriod struct {
	PeakDay     string  `json:"peak_day"`
	TroughDay   string  `json:"trough_day"`
	RecoveryDay *string `json:"recovery_day"`
}

// Streaks counts consecutive losing days. Current <= Max always.
type Streaks struct {
	Current int `json:"current"`
	Max     int `json:"max"`
}

// Bucket is an aggregated PnL amount keyed by symbol or pair label.
// Reason is set only on unmapped buckets and explains why attribution failed.
type Bucket struct {
	Label  string  `json:"label"`
	Total  float64 `json:"total"`
	Reason string  `json:"reason,omitempty"`
}

// DaySummary counts winning / losing / flat days in the window.
type DaySummary struct {
	WinningDays int     `json:"winning_days"`
	LosingDays  int     `json:"losing_days"`
	FlatDays    int     `json:"flat_days"`
	WinRate     float64 `json:"win_rate"`
}

// AccountMetrics is the full per-account analytics payload.
type AccountMetrics struct {
	Account        string         `json:"account,omitempty"`
	InitialBalance float64        `json:"initial_balance"`
	WindowStart    string         `json:"window_start"`
	WindowEnd      string         `json:"window_end"`
	Daily          []DailyRow     `json:"daily"`
	Drawdown       DrawdownBlock  `json:"drawdown"`
	DrawdownPeriod DrawdownPeriod `json:"drawdown_period"`
	Streaks        Streaks        `json:"streaks"`
	PnlPerSymbol   []Bucket       `json:"pnl_per_symbol"`
	PnlPerPair     []Bucket       `json:"pnl_per_pair"`
	Summary        DaySummary     `json:"summary"`
	TradeCount     int            `json:"trade_count"`
	LiveUPnl       float64        `json:"live_upnl,omitempty"`
}

// MergedMetrics has the same shape as AccountMetrics but is derived by
// summing member accounts over a common window.
type MergedMetrics struct {
	Accounts       []string       `json:"accounts"`
	InitialBalance float64        `json:"initial_balance"`
	WindowStart    string         `json:"window_start"`
	WindowEnd      string         `json:"window_end"`
	Daily          []DailyRow     `json:"daily"`
	Drawdown       DrawdownBlock  `json:"drawdown"`
	DrawdownPeriod DrawdownPeriod `json:"drawdown_period"`
	Streaks        Streaks        `json:"streaks"`
	PnlPerSymbol   []Bucket       `json:"pnl_per_symbol"`
	PnlPerPair     []Bucket       `json:"pnl_per_pair"`
	Summary        DaySummary     `json:"summary"`
	TradeCount     int            `json:"trade_count"`
}
