package marketdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joonho/earnquant/internal/contracts"
)

// SignalRepository implements contracts.SignalRepository on Postgres.
// Vetoes and anchors are stored as jsonb so new veto kinds need no
// schema change.
type SignalRepository struct {
	pool *pgxpool.Pool
}

// NewSignalRepository creates a new signal repository.
func NewSignalRepository(pool *pgxpool.Pool) *SignalRepository {
	return &SignalRepository{pool: pool}
}

// GetByDateRange retrieves signals ordered by (as_of_date, symbol).
func (r *SignalRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*contracts.Signal, error) {
	query := `
		SELECT symbol, as_of_date, year, quarter, sector,
		       direction_score, confidence, reliability_score, evidence_score, contradiction_score,
		       hard_vetoes, soft_vetoes, market_anchors
		FROM signals.earnings_signals
		WHERE as_of_date BETWEEN $1 AND $2
		ORDER BY as_of_date ASC, symbol ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*contracts.Signal
	for rows.Next() {
		var s contracts.Signal
		var hard, soft, anchors []byte
		if err := rows.Scan(
			&s.Symbol, &s.AsOfDate, &s.Year, &s.Quarter, &s.Sector,
			&s.DirectionScore, &s.Confidence, &s.ReliabilityScore, &s.EvidenceScore, &s.ContradictionScore,
			&hard, &soft, &anchors,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(hard, &s.HardVetoes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(soft, &s.SoftVetoes); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(anchors, &s.Anchors); err != nil {
			return nil, err
		}
		signals = append(signals, &s)
	}
	return signals, rows.Err()
}

// Save upserts one signal, keyed by (symbol, year, quarter).
func (r *SignalRepository) Save(ctx context.Context, signal *contracts.Signal) error {
	query := `
		INSERT INTO signals.earnings_signals
			(symbol, as_of_date, year, quarter, sector,
			 direction_score, confidence, reliability_score, evidence_score, contradiction_score,
			 hard_vetoes, soft_vetoes, market_anchors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (symbol, year, quarter) DO UPDATE SET
			as_of_date = EXCLUDED.as_of_date,
			sector = EXCLUDED.sector,
			direction_score = EXCLUDED.direction_score,
			confidence = EXCLUDED.confidence,
			reliability_score = EXCLUDED.reliability_score,
			evidence_score = EXCLUDED.evidence_score,
			contradiction_score = EXCLUDED.contradiction_score,
			hard_vetoes = EXCLUDED.hard_vetoes,
			soft_vetoes = EXCLUDED.soft_vetoes,
			market_anchors = EXCLUDED.market_anchors
	`

	hard, err := json.Marshal(signal.HardVetoes)
	if err != nil {
		return err
	}
	soft, err := json.Marshal(signal.SoftVetoes)
	if err != nil {
		return err
	}
	anchors, err := json.Marshal(signal.Anchors)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, query,
		signal.Symbol, signal.AsOfDate, signal.Year, signal.Quarter, signal.Sector,
		signal.DirectionScore, signal.Confidence, signal.ReliabilityScore, signal.EvidenceScore, signal.ContradictionScore,
		hard, soft, anchors,
	)
	return err
}

// SaveBatch upserts multiple signals.
func (r *SignalRepository) SaveBatch(ctx context.Context, signals []*contracts.Signal) error {
	for _, s := range signals {
		if err := r.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
