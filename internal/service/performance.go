package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pairstats/analytics-backend/internal/calendar"
	"github.com/pairstats/analytics-backend/internal/config"
	"github.com/pairstats/analytics-backend/internal/metrics"
	"github.com/pairstats/analytics-backend/internal/models"
	"github.com/pairstats/analytics-backend/internal/reconcile"
	"github.com/pairstats/analytics-backend/internal/repository"
)

// Input-validation errors abort the request; everything else degrades.
var (
	ErrNoAccounts  = errors.New("no valid accounts selected")
	ErrBadDate     = errors.New("malformed date")
	ErrBadBaseline = errors.New("baseline balance is not usable")
)

// FillSource, BaselineSource and SnapshotSource are the three external
// stores the engine reads; the repository and snapshot packages satisfy
// them, tests substitute mocks.
type FillSource interface {
	Fetch(ctx context.Context, table string, start, end time.Time) ([]models.Fill, error)
}

type BaselineSource interface {
	DayOpen(ctx context.Context, table string, start, end time.Time) (float64, error)
}

type SnapshotSource interface {
	LiveUPnL(ctx context.Context, key string) (float64, error)
	Ledger(ctx context.Context, key string) ([]models.PairLedgerEntry, error)
}

// Request is one analytics query. Start/End are calendar dates
// (YYYY-MM-DD); Earliest replaces Start with each account's first day of
// data; MTD replaces both with the current UTC month to date.
type Request struct {
	Accounts      []string
	Start         string
	End           string
	Earliest      bool
	MTD           bool
	TZOffsetHours int
	DayStartHour  int
	IncludeLive   bool
}

// Result is the full response: one metrics block per account plus the
// consolidated view.
type Result struct {
	Accounts map[string]models.AccountMetrics `json:"accounts"`
	Merged   models.MergedMetrics             `json:"merged"`
}

type Service struct {
	fills     FillSource
	balances  BaselineSource
	snapshots SnapshotSource
	cache     *AccountCache
	tol       reconcile.Tolerances
	log       *zap.SugaredLogger
	now       func() time.Time
}

func New(fills FillSource, balances BaselineSource, snapshots SnapshotSource, cache *AccountCache, log *zap.SugaredLogger) *Service {
	return &Service{
		fills:     fills,
		balances:  balances,
		snapshots: snapshots,
		cache:     cache,
		tol:       reconcile.DefaultTolerances(),
		log:       log,
		now:       time.Now,
	}
}

// accountResult is one account's fan-out output before the merge.
type accountResult struct {
	account  config.Account
	series   metrics.AccountSeries
	liveUPnL float64
	skipped  bool
	fatal    error
}

// Performance runs the full pipeline: per-account fetch + reconcile +
// aggregate concurrently, then window resolution and merge.
func (s *Service) Performance(ctx context.Context, req Request) (*Result, error) {
	accounts, err := s.resolveAccounts(req.Accounts)
	if err != nil {
		return nil, err
	}
	if req.MTD {
		req.Start = calendar.MonthStart(s.now().UTC())
		req.End = ""
		req.Earliest = false
	}
	if err := validateDates(req); err != nil {
		return nil, err
	}

	resolver := calendar.Resolver{
		TZOffsetHours: req.TZOffsetHours,
		DayStartHour:  req.DayStartHour,
	}

	results := make([]accountResult, len(accounts))
	var wg sync.WaitGroup
	for i, acct := range accounts {
		wg.Add(1)
		go func(i int, acct config.Account) {
			defer wg.Done()
			results[i] = s.computeAccount(ctx, acct, req, resolver)
		}(i, acct)
	}
	wg.Wait()

	series := make([]metrics.AccountSeries, 0, len(results))
	kept := make([]accountResult, 0, len(results))
	for _, r := range results {
		if r.fatal != nil {
			return nil, r.fatal
		}
		if r.skipped {
			continue
		}
		series = append(series, r.series)
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: every selected account was skipped", ErrNoAccounts)
	}

	end := req.End
	if end == "" {
		end = resolver.DayOf(s.now())
	}
	start, end, ok := metrics.ResolveWindow(series, req.Start, end, req.Earliest)
	if !ok {
		return nil, fmt.Errorf("%w: window start is after end", ErrBadDate)
	}

	out := &Result{Accounts: make(map[string]models.AccountMetrics, len(kept))}
	for _, r := range kept {
		out.Accounts[r.account.Name] = buildAccountMetrics(r, start, end)
	}
	out.Merged = metrics.Merge(series, start, end)
	return out, nil
}

// Streaks is the streak-only view: same pipeline, trimmed payload.
func (s *Service) Streaks(ctx context.Context, req Request) (map[string]models.Streaks, models.Streaks, error) {
	res, err := s.Performance(ctx, req)
	if err != nil {
		return nil, models.Streaks{}, err
	}
	per := make(map[string]models.Streaks, len(res.Accounts))
	for name, m := range res.Accounts {
		per[name] = m.Streaks
	}
	return per, res.Merged.Streaks, nil
}

// ReturnSeries derives the merged daily-return series for the simulator.
func (s *Service) ReturnSeries(ctx context.Context, req Request) ([]float64, error) {
	res, err := s.Performance(ctx, req)
	if err != nil {
		return nil, err
	}
	curve := metrics.Curve(res.Merged.Daily, res.Merged.InitialBalance, 0)
	returns := metrics.Returns(curve, res.Merged.InitialBalance)
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: no daily data in the resolved window", ErrBadDate)
	}
	return returns, nil
}

func (s *Service) resolveAccounts(names []string) ([]config.Account, error) {
	if len(names) == 0 {
		return nil, ErrNoAccounts
	}
	reg, err := s.cache.Registry()
	if err != nil {
		return nil, fmt.Errorf("load account registry: %w", err)
	}
	var out []config.Account
	for _, name := range names {
		acct := reg.Lookup(name)
		if acct == nil {
			s.log.Warnw("unknown account requested", "account", name)
			continue
		}
		out = append(out, *acct)
	}
	if len(out) == 0 {
		return nil, ErrNoAccounts
	}
	return out, nil
}

func validateDates(req Request) error {
	for _, d := range []string{req.Start, req.End} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(calendar.DayFormat, d); err != nil {
			return fmt.Errorf("%w: %q", ErrBadDate, d)
		}
	}
	if !req.Earliest && req.Start == "" {
		return fmt.Errorf("%w: start date or earliest flag is required", ErrBadDate)
	}
	if req.DayStartHour < 0 || req.DayStartHour > 23 {
		return fmt.Errorf("%w: day_start_hour %d out of range", ErrBadDate, req.DayStartHour)
	}
	return nil
}

// computeAccount runs the synchronous per-account pipeline. External I/O
// failures degrade: missing ledger means unmapped pairs, a failed fill
// fetch means an empty series. Only an unusable baseline is fatal.
func (s *Service) computeAccount(ctx context.Context, acct config.Account, req Request, resolver calendar.Resolver) accountResult {
	res := accountResult{account: acct}

	fetchStart, fetchEnd, err := s.fetchRange(req, resolver)
	if err != nil {
		res.fatal = err
		return res
	}

	fills, err := s.fills.Fetch(ctx, acct.FillsTable, fetchStart, fetchEnd)
	if err != nil {
		s.log.Warnw("fill fetch failed, treating account as empty",
			"account", acct.Name, "error", err)
		fills = nil
	}

	ledger, err := s.snapshots.Ledger(ctx, acct.RedisKey)
	if err != nil {
		s.log.Warnw("ledger fetch failed, pair attribution degraded",
			"account", acct.Name, "error", err)
		ledger = nil
	}

	pairs := reconcile.Build(fills, ledger, s.tol)
	rows, symbols, pairBuckets := metrics.Aggregate(fills, pairs, func(f models.Fill) string {
		return resolver.DayOf(f.Time)
	})

	anchorDay := req.Start
	if anchorDay == "" {
		if len(rows) == 0 {
			s.log.Warnw("account has no fills and no explicit window, skipping",
				"account", acct.Name)
			res.skipped = true
			return res
		}
		anchorDay = rows[0].Day
	}
	baseline, err := s.dayOpenBaseline(ctx, acct, anchorDay, resolver)
	if errors.Is(err, repository.ErrNoBalanceAnchor) {
		s.log.Warnw("no balance anchor, skipping account", "account", acct.Name)
		res.skipped = true
		return res
	}
	if err != nil {
		res.fatal = fmt.Errorf("%w: account %s: %v", ErrBadBaseline, acct.Name, err)
		return res
	}

	if req.IncludeLive {
		upnl, err := s.snapshots.LiveUPnL(ctx, acct.RedisKey)
		if err != nil {
			s.log.Warnw("live snapshot fetch failed, overlay skipped",
				"account", acct.Name, "error", err)
		} else {
			res.liveUPnL = upnl
		}
	}

	summary := metrics.Summary(rows)
	res.series = metrics.AccountSeries{
		Account:    acct.Name,
		Baseline:   baseline,
		Rows:       rows,
		Symbols:    symbols,
		Pairs:      pairBuckets,
		TradeCount: len(fills),
		WinRate:    summary.WinRate,
	}
	return res
}

// fetchRange maps the requested calendar window onto UTC bounds for the
// fill query. An open start (earliest) fetches from the beginning of the
// account's history.
func (s *Service) fetchRange(req Request, resolver calendar.Resolver) (time.Time, time.Time, error) {
	var start time.Time
	if req.Start != "" {
		ws, _, err := resolver.DayWindowUTC(req.Start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, req.Start)
		}
		start = ws
	}

	end := s.now().UTC()
	if req.End != "" {
		_, we, err := resolver.DayWindowUTC(req.End)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, req.End)
		}
		end = we
	}
	return start, end, nil
}

// dayOpenBaseline anchors the equity curve at the balance the account
// opened the anchor day with.
func (s *Service) dayOpenBaseline(ctx context.Context, acct config.Account, day string, resolver calendar.Resolver) (float64, error) {
	ws, we, err := resolver.DayWindowUTC(day)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadDate, day)
	}
	return s.balances.DayOpen(ctx, acct.BalanceTable, ws, we)
}

func buildAccountMetrics(r accountResult, start, end string) models.AccountMetrics {
	daily := metrics.BuildSeries(r.series.Rows, start, end)
	curve := metrics.Curve(daily, r.series.Baseline, r.liveUPnL)
	dd, period := metrics.Drawdown(curve)

	return models.AccountMetrics{
		Account:        r.account.Name,
		InitialBalance: metrics.Round6(r.series.Baseline),
		WindowStart:    start,
		WindowEnd:      end,
		Daily:          daily,
		Drawdown:       dd,
		DrawdownPeriod: period,
		Streaks:        metrics.LossStreaks(metrics.NetValues(daily)),
		PnlPerSymbol:   r.series.Symbols,
		PnlPerPair:     r.series.Pairs,
		Summary:        metrics.Summary(daily),
		TradeCount:     r.series.TradeCount,
		LiveUPnl:       metrics.Round6(r.liveUPnL),
	}
}
