package marketdata

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joonho/earnquant/internal/contracts"
)

// MarketRepository implements contracts.MarketRepository on Postgres.
// One row per session: the VIX close and the SPY daily return.
type MarketRepository struct {
	pool *pgxpool.Pool
}

// NewMarketRepository creates a new market context repository.
func NewMarketRepository(pool *pgxpool.Pool) *MarketRepository {
	return &MarketRepository{pool: pool}
}

// GetRange retrieves the market series for a date range.
func (r *MarketRepository) GetRange(ctx context.Context, from, to time.Time) ([]*contracts.MarketDay, error) {
	query := `
		SELECT trade_date, vix_close, spy_return
		FROM market.market_days
		WHERE trade_date BETWEEN $1 AND $2
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []*contracts.MarketDay
	for rows.Next() {
		var d contracts.MarketDay
		if err := rows.Scan(&d.Date, &d.VIXClose, &d.SPYReturn); err != nil {
			return nil, err
		}
		days = append(days, &d)
	}
	return days, rows.Err()
}

// SaveBatch upserts market days in a single round trip.
func (r *MarketRepository) SaveBatch(ctx context.Context, days []*contracts.MarketDay) error {
	if len(days) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.market_days (trade_date, vix_close, spy_return)
		VALUES ($1, $2, $3)
		ON CONFLICT (trade_date) DO UPDATE SET
			vix_close = EXCLUDED.vix_close,
			spy_return = EXCLUDED.spy_return
	`

	batch := &pgx.Batch{}
	for _, d := range days {
		batch.Queue(query, d.Date, d.VIXClose, d.SPYReturn)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range days {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
