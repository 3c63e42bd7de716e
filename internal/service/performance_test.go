package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pairstats/analytics-backend/internal/config"
	"github.com/pairstats/analytics-backend/internal/models"
	"github.com/pairstats/analytics-backend/internal/repository"
)

type mockFills struct {
	byTable map[string][]models.Fill
	err     error
}

func (m *mockFills) Fetch(_ context.Context, table string, _, _ time.Time) ([]models.Fill, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.byTable[table], nil
}

type mockBalances struct {
	byTable map[string]float64
	err     map[string]error
}

func (m *mockBalances) DayOpen(_ context.Context, table string, _, _ time.Time) (float64, error) {
	if err := m.err[table]; err != nil {
		return 0, err
	}
	return m.byTable[table], nil
}

type mockSnapshots struct {
	ledgers   map[string][]models.PairLedgerEntry
	upnl      map[string]float64
	ledgerErr error
	upnlErr   error
}

func (m *mockSnapshots) LiveUPnL(_ context.Context, key string) (float64, error) {
	if m.upnlErr != nil {
		return 0, m.upnlErr
	}
	return m.upnl[key], nil
}

func (m *mockSnapshots) Ledger(_ context.Context, key string) ([]models.PairLedgerEntry, error) {
	if m.ledgerErr != nil {
		return nil, m.ledgerErr
	}
	return m.ledgers[key], nil
}

func staticRegistry(accounts ...config.Account) *AccountCache {
	return &AccountCache{
		path: "static",
		ttl:  time.Hour,
		loader: func(string) (*config.Registry, error) {
			return &config.Registry{Accounts: accounts}, nil
		},
		now: time.Now,
	}
}

func alphaAccount() config.Account {
	return config.Account{
		Name: "alpha", FillsTable: "alpha_fills",
		BalanceTable: "alpha_balances", RedisKey: "alpha",
	}
}

func betaAccount() config.Account {
	return config.Account{
		Name: "beta", FillsTable: "beta_fills",
		BalanceTable: "beta_balances", RedisKey: "beta",
	}
}

func fillAt(symbol, orderID string, pnl float64, at time.Time) models.Fill {
	return models.Fill{
		Symbol:      symbol,
		FillID:      fmt.Sprintf("%s-%d", symbol, at.Unix()),
		OrderID:     orderID,
		Side:        "BUY",
		Qty:         decimal.NewFromInt(1),
		RealizedPnl: decimal.NewFromFloat(pnl),
		Time:        at,
	}
}

func newTestService(fills *mockFills, balances *mockBalances, snaps *mockSnapshots, accounts ...config.Account) *Service {
	svc := New(fills, balances, snaps, staticRegistry(accounts...), zap.NewNop().Sugar())
	svc.now = func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func baseRequest() Request {
	return Request{
		Accounts: []string{"alpha"},
		Start:    "2025-06-01",
		End:      "2025-06-03",
	}
}

func TestPerformance_DirectPairAttribution(t *testing.T) {
	day := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	fills := &mockFills{byTable: map[string][]models.Fill{
		"alpha_fills": {fillAt("BTCUSDT", "X1", 25, day)},
	}}
	balances := &mockBalances{byTable: map[string]float64{"alpha_balances": 1000}}
	snaps := &mockSnapshots{ledgers: map[string][]models.PairLedgerEntry{
		"alpha": {{
			Pair: "BTCUSDT_ETHUSDT",
			Legs: [2]models.PairLeg{
				{Symbol: "BTCUSDT", Qty: decimal.NewFromInt(1), EntryOrderID: "X1"},
				{Symbol: "ETHUSDT", Qty: decimal.NewFromInt(-8)},
			},
		}},
	}}

	res, err := newTestService(fills, balances, snaps, alphaAccount()).
		Performance(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("performance failed: %v", err)
	}

	acct := res.Accounts["alpha"]
	if len(acct.PnlPerPair) != 1 || acct.PnlPerPair[0].Label != "BTCUSDT_ETHUSDT" {
		t.Fatalf("expected direct pair attribution: %+v", acct.PnlPerPair)
	}
	if acct.InitialBalance != 1000 {
		t.Fatalf("baseline: %.2f", acct.InitialBalance)
	}
	if acct.WindowStart != "2025-06-01" || acct.WindowEnd != "2025-06-03" {
		t.Fatalf("window: %s..%s", acct.WindowStart, acct.WindowEnd)
	}
	if len(acct.Daily) != 3 {
		t.Fatalf("expected gap-filled 3-day series, got %d rows", len(acct.Daily))
	}
}

func TestPerformance_FailedLedgerDegradesToUnmapped(t *testing.T) {
	day := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	fills := &mockFills{byTable: map[string][]models.Fill{
		"alpha_fills": {
			fillAt("BTCUSDT", "X1", 25, day),
			fillAt("ETHUSDT", "Y1", -10, day.Add(time.Hour)),
		},
	}}
	balances := &mockBalances{byTable: map[string]float64{"alpha_balances": 1000}}
	snaps := &mockSnapshots{ledgerErr: errors.New("decode tradesheet: bad blob")}

	res, err := newTestService(fills, balances, snaps, alphaAccount()).
		Performance(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("degraded ledger must not fail the request: %v", err)
	}

	acct := res.Accounts["alpha"]
	if len(acct.PnlPerPair) != 2 {
		t.Fatalf("expected one unmapped bucket per symbol: %+v", acct.PnlPerPair)
	}
	for _, b := range acct.PnlPerPair {
		if !strings.HasPrefix(b.Label, models.UnmappedPrefix) {
			t.Fatalf("expected unmapped label, got %q", b.Label)
		}
		if b.Reason == "" {
			t.Fatal("unmapped bucket must carry a reason")
		}
	}
	// Realized PnL still flows into the daily series.
	if math.Abs(acct.Daily[0].NetPnl-15) > 1e-9 {
		t.Fatalf("daily net: %.6f", acct.Daily[0].NetPnl)
	}
}

func TestPerformance_InputValidation(t *testing.T) {
	svc := newTestService(&mockFills{}, &mockBalances{}, &mockSnapshots{}, alphaAccount())

	if _, err := svc.Performance(context.Background(), Request{}); !errors.Is(err, ErrNoAccounts) {
		t.Fatalf("empty account list: %v", err)
	}

	req := baseRequest()
	req.Start = "06/01/2025"
	if _, err := svc.Performance(context.Background(), req); !errors.Is(err, ErrBadDate) {
		t.Fatalf("malformed date: %v", err)
	}

	req = baseRequest()
	req.Start = ""
	if _, err := svc.Performance(context.Background(), req); !errors.Is(err, ErrBadDate) {
		t.Fatalf("missing start without earliest: %v", err)
	}

	req = baseRequest()
	req.Accounts = []string{"ghost"}
	if _, err := svc.Performance(context.Background(), req); !errors.Is(err, ErrNoAccounts) {
		t.Fatalf("unknown account only: %v", err)
	}
}

func TestPerformance_NonFiniteBaselineIsFatal(t *testing.T) {
	day := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	fills := &mockFills{byTable: map[string][]models.Fill{
		"alpha_fills": {fillAt("BTCUSDT", "", 5, day)},
	}}
	balances := &mockBalances{err: map[string]error{
		"alpha_balances": errors.New("balance is not a finite number: NaN"),
	}}

	_, err := newTestService(fills, balances, &mockSnapshots{}, alphaAccount()).
		Performance(context.Background(), baseRequest())
	if !errors.Is(err, ErrBadBaseline) {
		t.Fatalf("expected baseline error, got %v", err)
	}
}

func TestPerformance_MissingAnchorSkipsAccount(t *testing.T) {
	day := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	fills := &mockFills{byTable: map[string][]models.Fill{
		"alpha_fills": {fillAt("BTCUSDT", "", 5, day)},
		"beta_fills":  {fillAt("ETHUSDT", "", 7, day)},
	}}
	balances := &mockBalances{
		byTable: map[string]float64{"beta_balances": 500},
		err:     map[string]error{"alpha_balances": repository.ErrNoBalanceAnchor},
	}

	req := baseRequest()
	req.Accounts = []string{"alpha", "beta"}
	res, err := newTestService(fills, balances, &mockSnapshots{}, alphaAccount(), betaAccount()).
		Performance(context.Background(), req)
	if err != nil {
		t.Fatalf("one anchored account should still succeed: %v", err)
	}
	if _, ok := res.Accounts["alpha"]; ok {
		t.Fatal("unanchored account must be skipped")
	}
	if len(res.Merged.Accounts) != 1 || res.Merged.Accounts[0] != "beta" {
		t.Fatalf("merge should only contain beta: %v", res.Merged.Accounts)
	}

	// Every account skipped means nothing to report.
	balances.byTable = nil
	balances.err["beta_balances"] = repository.ErrNoBalanceAnchor
	if _, err := newTestService(fills, balances, &mockSnapshots{}, alphaAccount(), betaAccount()).
		Performance(context.Background(), req); !errors.Is(err, ErrNoAccounts) {
		t.Fatalf("all-skipped request: %v", err)
	}
}

func TestPerformance_LiveOverlayOnFinalEquityPoint(t *testing.T) {
	day := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	fills := &mockFills{byTable: map[string][]models.Fill{
		"alpha_fills": {fillAt("BTCUSDT", "", -100, day)},
	}}
	balances := &mockBalances{byTable: map[string]float64{"alpha_balances": 1000}}
	snaps := &mockSnapshots{upnl: map[string]float64{"alpha": 100}}

	req := baseRequest()
	req.End = "2025-06-01"
	req.IncludeLive = true
	res, err := newTestService(fills, balances, snaps, alphaAccount()).
		Performance(context.Background(), req)
	if err != nil {
		t.Fatalf("performance failed: %v", err)
	}

	acct := res.Accounts["alpha"]
	if acct.LiveUPnl != 100 {
		t.Fatalf("live uPnL: %.2f", acct.LiveUPnl)
	}
	// The overlay cancels the realized loss, so the final equity is back
	// at the peak and there is no current drawdown.
	if acct.Drawdown.CurrentDrawdownPct != 0 {
		t.Fatalf("overlay should erase the drawdown: %+v", acct.Drawdown)
	}
}

func TestPerformance_EarliestResolvesAcrossAccounts(t *testing.T) {
	fills := &mockFills{byTable: map[string][]models.Fill{
		"alpha_fills": {fillAt("BTCUSDT", "", 5, time.Date(2025, 6, 3, 1, 0, 0, 0, time.UTC))},
		"beta_fills":  {fillAt("ETHUSDT", "", 7, time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC))},
	}}
	balances := &mockBalances{byTable: map[string]float64{
		"alpha_balances": 1000,
		"beta_balances":  500,
	}}

	req := Request{Accounts: []string{"alpha", "beta"}, Earliest: true}
	res, err := newTestService(fills, balances, &mockSnapshots{}, alphaAccount(), betaAccount()).
		Performance(context.Background(), req)
	if err != nil {
		t.Fatalf("performance failed: %v", err)
	}
	if res.Merged.WindowStart != "2025-06-01" {
		t.Fatalf("earliest start: %s", res.Merged.WindowStart)
	}
	if res.Merged.WindowEnd != "2025-06-03" {
		t.Fatalf("end must clamp to latest data: %s", res.Merged.WindowEnd)
	}
	if math.Abs(res.Merged.InitialBalance-1500) > 1e-9 {
		t.Fatalf("merged baseline: %.2f", res.Merged.InitialBalance)
	}
}

func TestStreaks_TrimmedView(t *testing.T) {
	fills := &mockFills{byTable: map[string][]models.Fill{
		"alpha_fills": {
			fillAt("BTCUSDT", "", -5, time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)),
			fillAt("BTCUSDT", "", -3, time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)),
			fillAt("BTCUSDT", "", 2, time.Date(2025, 6, 3, 1, 0, 0, 0, time.UTC)),
		},
	}}
	balances := &mockBalances{byTable: map[string]float64{"alpha_balances": 1000}}

	per, merged, err := newTestService(fills, balances, &mockSnapshots{}, alphaAccount()).
		Streaks(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("streaks failed: %v", err)
	}
	if per["alpha"].Max != 2 || per["alpha"].Current != 0 {
		t.Fatalf("alpha streaks: %+v", per["alpha"])
	}
	if merged.Max != 2 {
		t.Fatalf("merged streaks: %+v", merged)
	}
}

func TestReturnSeries_FeedsSimulator(t *testing.T) {
	fills := &mockFills{byTable: map[string][]models.Fill{
		"alpha_fills": {
			fillAt("BTCUSDT", "", 100, time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)),
			fillAt("BTCUSDT", "", -50, time.Date(2025, 6, 2, 1, 0, 0, 0, time.UTC)),
		},
	}}
	balances := &mockBalances{byTable: map[string]float64{"alpha_balances": 1000}}

	req := baseRequest()
	req.End = "2025-06-02"
	returns, err := newTestService(fills, balances, &mockSnapshots{}, alphaAccount()).
		ReturnSeries(context.Background(), req)
	if err != nil {
		t.Fatalf("return series failed: %v", err)
	}
	if len(returns) != 2 {
		t.Fatalf("expected 2 returns, got %d", len(returns))
	}
	if math.Abs(returns[0]-0.1) > 1e-9 {
		t.Fatalf("first return: %.6f", returns[0])
	}
}
