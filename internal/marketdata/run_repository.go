package marketdata

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joonho/earnquant/internal/contracts"
)

// RunRepository implements contracts.RunRepository on Postgres. The
// trade ledger and NAV series are stored as jsonb documents per run;
// they are only ever written once and read whole.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a new run repository.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// SaveRun persists the run header.
func (r *RunRepository) SaveRun(ctx context.Context, run *contracts.RunRecord) error {
	query := `
		INSERT INTO backtest.runs
			(id, started_at, range_from, range_to, config_hash, initial_cash, final_nav, trade_count, warning_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		run.ID, run.StartedAt, run.From, run.To, run.ConfigHash,
		run.InitialCash, run.FinalNAV, run.TradeCount, run.WarningCount,
	)
	return err
}

// GetRun retrieves a run header by id.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*contracts.RunRecord, error) {
	query := `
		SELECT id, started_at, range_from, range_to, config_hash, initial_cash, final_nav, trade_count, warning_count
		FROM backtest.runs
		WHERE id = $1
	`

	var run contracts.RunRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.StartedAt, &run.From, &run.To, &run.ConfigHash,
		&run.InitialCash, &run.FinalNAV, &run.TradeCount, &run.WarningCount,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// SaveTrades stores the closed ledger for a run.
func (r *RunRepository) SaveTrades(ctx context.Context, runID string, trades []contracts.TradeRecord) error {
	doc, err := json.Marshal(trades)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO backtest.run_trades (run_id, trades) VALUES ($1, $2)
		 ON CONFLICT (run_id) DO UPDATE SET trades = EXCLUDED.trades`,
		runID, doc,
	)
	return err
}

// GetTrades retrieves the closed ledger for a run.
func (r *RunRepository) GetTrades(ctx context.Context, runID string) ([]contracts.TradeRecord, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		`SELECT trades FROM backtest.run_trades WHERE run_id = $1`, runID,
	).Scan(&doc)
	if err != nil {
		return nil, err
	}

	var trades []contracts.TradeRecord
	if err := json.Unmarshal(doc, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// SaveNAV stores the NAV series for a run.
func (r *RunRepository) SaveNAV(ctx context.Context, runID string, nav []contracts.NAVPoint) error {
	doc, err := json.Marshal(nav)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO backtest.run_nav (run_id, nav) VALUES ($1, $2)
		 ON CONFLICT (run_id) DO UPDATE SET nav = EXCLUDED.nav`,
		runID, doc,
	)
	return err
}

// GetNAV retrieves the NAV series for a run.
func (r *RunRepository) GetNAV(ctx context.Context, runID string) ([]contracts.NAVPoint, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		`SELECT nav FROM backtest.run_nav WHERE run_id = $1`, runID,
	).Scan(&doc)
	if err != nil {
		return nil, err
	}

	var nav []contracts.NAVPoint
	if err := json.Unmarshal(doc, &nav); err != nil {
		return nil, err
	}
	return nav, nil
}
