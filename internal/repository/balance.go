package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrNoBalanceAnchor means the account has no snapshot usable as the
// day-open baseline; callers drop the account from the merge.
var ErrNoBalanceAnchor = errors.New("no balance snapshot anchors the window")

// BalanceRepo reads wallet-balance snapshots used to anchor the equity
// curve. Like fills, each account has its own snapshot table.
type BalanceRepo struct {
	pool *pgxpool.Pool
}

func NewBalanceRepo(pool *pgxpool.Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

// DayOpen resolves the baseline balance for a local trading day given its
// UTC window: the earliest snapshot inside [start, end), or failing that
// the latest snapshot strictly before start. A non-finite stored value is
// a hard error, not a degradable one, because every downstream percentage
// divides by it.
func (r *BalanceRepo) DayOpen(ctx context.Context, table string, start, end time.Time) (float64, error) {
	ident := pgx.Identifier{table}.Sanitize()

	var bal decimal.Decimal
	err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT balance FROM %s WHERE time >= $1 AND time < $2 ORDER BY time ASC LIMIT 1`, ident),
		start, end,
	).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		err = r.pool.QueryRow(ctx, fmt.Sprintf(
			`SELECT balance FROM %s WHERE time < $1 ORDER BY time DESC LIMIT 1`, ident),
			start,
		).Scan(&bal)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoBalanceAnchor
		}
	}
	if err != nil {
		return 0, fmt.Errorf("query balance from %s: %w", table, err)
	}

	v := bal.InexactFloat64()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("balance in %s is not a finite number: %s", table, bal)
	}
	return v, nil
}
