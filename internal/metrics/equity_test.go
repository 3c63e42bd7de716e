package metrics

import (
	"math"
	"testing"

	"github.com/pairstats/analytics-backend/internal/models"
)

func TestBuildSeries_FillsGapsWithZeroRows(t *testing.T) {
	rows := []models.DailyRow{
		{Day: "2025-06-01", GrossPnl: 10, NetPnl: 10},
		{Day: "2025-06-04", GrossPnl: -5, NetPnl: -5},
	}
	out := BuildSeries(rows, "2025-06-01", "2025-06-05")
	if len(out) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(out))
	}
	if out[1].Day != "2025-06-02" || out[1].NetPnl != 0 {
		t.Fatalf("gap day not zero-filled: %+v", out[1])
	}
	if out[3].NetPnl != -5 {
		t.Fatalf("real row lost in gap fill: %+v", out[3])
	}
}

func TestBuildSeries_DropsRowsOutsideWindow(t *testing.T) {
	rows := []models.DailyRow{
		{Day: "2025-05-30", NetPnl: 99},
		{Day: "2025-06-02", NetPnl: 1},
	}
	out := BuildSeries(rows, "2025-06-01", "2025-06-02")
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].NetPnl != 0 || out[1].NetPnl != 1 {
		t.Fatalf("window clipping wrong: %+v", out)
	}
}

func TestBuildSeries_InvertedWindowIsNil(t *testing.T) {
	if out := BuildSeries(nil, "2025-06-05", "2025-06-01"); out != nil {
		t.Fatalf("expected nil for inverted window, got %v", out)
	}
}

func TestCurve_Recurrence(t *testing.T) {
	rows := []models.DailyRow{
		{Day: "2025-06-01", NetPnl: 100},
		{Day: "2025-06-02", NetPnl: -50},
		{Day: "2025-06-03", NetPnl: 0},
	}
	points := Curve(rows, 1000, 0)
	want := []float64{1100, 1050, 1050}
	for i, w := range want {
		if math.Abs(points[i].Equity-w) > 1e-9 {
			t.Fatalf("equity[%d] = %.6f, want %.6f", i, points[i].Equity, w)
		}
	}
}

func TestCurve_LiveOverlayTouchesOnlyFinalPoint(t *testing.T) {
	rows := []models.DailyRow{
		{Day: "2025-06-01", NetPnl: 10},
		{Day: "2025-06-02", NetPnl: 10},
	}
	points := Curve(rows, 100, 7.5)
	if math.Abs(points[0].Equity-110) > 1e-9 {
		t.Fatalf("overlay leaked into earlier point: %.6f", points[0].Equity)
	}
	if math.Abs(points[1].Equity-127.5) > 1e-9 {
		t.Fatalf("final point missing overlay: %.6f", points[1].Equity)
	}
}

func TestSummary_WinRateExcludesFlatDays(t *testing.T) {
	rows := []models.DailyRow{
		{NetPnl: 10}, {NetPnl: -5}, {NetPnl: 0}, {NetPnl: 3},
	}
	s := Summary(rows)
	if s.WinningDays != 2 || s.LosingDays != 1 || s.FlatDays != 1 {
		t.Fatalf("bad counts: %+v", s)
	}
	if math.Abs(s.WinRate-2.0/3.0) > 1e-6 {
		t.Fatalf("win rate should ignore flat days: %.6f", s.WinRate)
	}
}

func TestReturns_SimpleDailyReturns(t *testing.T) {
	points := []models.EquityPoint{
		{Day: "2025-06-01", Equity: 1100},
		{Day: "2025-06-02", Equity: 1050},
	}
	r := Returns(points, 1000)
	if math.Abs(r[0]-0.1) > 1e-9 {
		t.Fatalf("first return: %.6f", r[0])
	}
	if math.Abs(r[1]-(-50.0/1100.0)) > 1e-9 {
		t.Fatalf("second return: %.6f", r[1])
	}
}

func TestReturns_ZeroDenominatorGuard(t *testing.T) {
	points := []models.EquityPoint{
		{Day: "2025-06-01", Equity: 50},
		{Day: "2025-06-02", Equity: 60},
	}
	r := Returns(points, 0)
	if r[0] != 0 {
		t.Fatalf("zero baseline must yield zero return, got %.6f", r[0])
	}
	if math.Abs(r[1]-0.2) > 1e-9 {
		t.Fatalf("second return: %.6f", r[1])
	}
}
