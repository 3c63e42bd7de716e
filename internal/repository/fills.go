package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pairstats/analytics-backend/internal/models"
)

// FillRepo reads executed fills. Each account stores its fills in its own
// table, so the table name is a per-call argument resolved from the
// account registry, never user input.
type FillRepo struct {
	pool *pgxpool.Pool
}

func NewFillRepo(pool *pgxpool.Pool) *FillRepo {
	return &FillRepo{pool: pool}
}

// Fetch returns the account's fills with execution time in [start, end),
// ordered by time. The half-open range keeps adjacent windows from double
// counting a fill landing exactly on the boundary.
func (r *FillRepo) Fetch(ctx context.Context, table string, start, end time.Time) ([]models.Fill, error) {
	query := fmt.Sprintf(
		`SELECT symbol, fill_id, order_id, side, price, qty, realized_pnl, commission, time
		 FROM %s
		 WHERE time >= $1 AND time < $2
		 ORDER BY time ASC`,
		pgx.Identifier{table}.Sanitize(),
	)

	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("query fills from %s: %w", table, err)
	}
	defer rows.Close()
	return collectFills(rows)
}

func collectFills(rows rowsIter) ([]models.Fill, error) {
	var out []models.Fill
	for rows.Next() {
		var f models.Fill
		if err := rows.Scan(
			&f.Symbol, &f.FillID, &f.OrderID, &f.Side,
			&f.Price, &f.Qty, &f.RealizedPnl, &f.Commission, &f.Time,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
