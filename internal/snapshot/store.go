package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pairstats/analytics-backend/internal/models"
)

const (
	liveSuffix       = "_live"
	tradesheetSuffix = "_tradesheet"
)

// Store reads account snapshots from the key-value store: the live
// position snapshot at "<key>_live" and the pair ledger blob at
// "<key>_tradesheet".
type Store struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// NewClient builds the redis client from config values.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// LiveUPnL returns the summed unrealized PnL of the account's live
// snapshot. A missing key means no open positions and yields zero.
func (s *Store) LiveUPnL(ctx context.Context, key string) (float64, error) {
	data, err := s.rdb.Get(ctx, key+liveSuffix).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetch live snapshot for %s: %w", key, err)
	}
	return DecodeLiveUPnL(data)
}

// Ledger returns the account's pair ledger entries. A missing key yields
// an empty ledger; an undecodable blob is an error the caller is expected
// to downgrade to "no ledger data".
func (s *Store) Ledger(ctx context.Context, key string) ([]models.PairLedgerEntry, error) {
	data, err := s.rdb.Get(ctx, key+tradesheetSuffix).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch tradesheet for %s: %w", key, err)
	}
	return DecodeLedger(data)
}
