package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/joonho/earnquant/internal/backtest"
	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/strategyconfig"
	"github.com/joonho/earnquant/pkg/logger"
)

// BacktestHandler handles backtest API endpoints
type BacktestHandler struct {
	cfg      *strategyconfig.Config
	bars     contracts.BarRepository
	market   contracts.MarketRepository
	signals  contracts.SignalRepository
	runs     contracts.RunRepository
	progress *ProgressHub
	logger   *logger.Logger

	// running guards against concurrent runs sharing the progress feed.
	running sync.Mutex
}

// NewBacktestHandler creates a new backtest handler
func NewBacktestHandler(
	cfg *strategyconfig.Config,
	bars contracts.BarRepository,
	market contracts.MarketRepository,
	signals contracts.SignalRepository,
	runs contracts.RunRepository,
	log *logger.Logger,
) *BacktestHandler {
	return &BacktestHandler{
		cfg:      cfg,
		bars:     bars,
		market:   market,
		signals:  signals,
		runs:     runs,
		progress: NewProgressHub(log),
		logger:   log,
	}
}

// RunRequest is the body of POST /api/backtest/run.
type RunRequest struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Symbols []string `json:"symbols,omitempty"` // optional; defaults to all signal symbols in range
}

// RunBacktest executes a backtest over the requested range
// POST /api/backtest/run
func (h *BacktestHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid from date (want YYYY-MM-DD)")
		return
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid to date (want YYYY-MM-DD)")
		return
	}

	if !h.running.TryLock() {
		respondError(w, http.StatusConflict, "A backtest is already running")
		return
	}
	defer h.running.Unlock()

	signals, err := h.signals.GetByDateRange(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load signals")
		respondError(w, http.StatusInternalServerError, "Failed to load signals")
		return
	}
	if len(signals) == 0 {
		respondError(w, http.StatusNotFound, "No signals in range")
		return
	}

	symbols := req.Symbols
	if len(symbols) == 0 {
		symbols = signalSymbols(signals)
	}

	market, err := h.market.GetRange(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load market days")
		respondError(w, http.StatusInternalServerError, "Failed to load market days")
		return
	}

	var bars []*contracts.Bar
	for _, symbol := range symbols {
		sb, err := h.bars.GetBySymbolAndRange(ctx, symbol, from, to)
		if err != nil {
			h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to load bars")
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load bars for %s", symbol))
			return
		}
		bars = append(bars, sb...)
	}

	engine := backtest.NewEngine(h.cfg, h.logger)
	engine.OnSession = h.progress.Broadcast

	result, err := engine.Run(ctx, backtest.Input{
		From:    from,
		To:      to,
		Bars:    bars,
		Market:  market,
		Signals: signals,
	})
	if err != nil {
		if errors.Is(err, contracts.ErrRunInvalid) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Backtest run failed")
		respondError(w, http.StatusInternalServerError, "Backtest run failed")
		return
	}

	if h.runs != nil {
		if err := h.persist(ctx, result); err != nil {
			h.logger.WithError(err).WithField("run_id", result.RunID).Error("Failed to persist run")
			respondError(w, http.StatusInternalServerError, "Backtest completed but persistence failed")
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"runId":      result.RunID,
			"configHash": result.ConfigHash,
			"from":       result.From.Format("2006-01-02"),
			"to":         result.To.Format("2006-01-02"),
			"sessions":   result.Sessions,
			"initialNav": result.InitialNAV,
			"finalNav":   result.FinalNAV,
			"trades":     len(result.Trades),
			"warnings":   result.Warnings.Total(),
			"metrics":    result.Metrics,
		},
	})
}

func (h *BacktestHandler) persist(ctx context.Context, result *backtest.Result) error {
	if err := h.runs.SaveRun(ctx, result.RunRecord()); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := h.runs.SaveTrades(ctx, result.RunID, result.Trades); err != nil {
		return fmt.Errorf("save trades: %w", err)
	}
	if err := h.runs.SaveNAV(ctx, result.RunID, result.NAV); err != nil {
		return fmt.Errorf("save nav: %w", err)
	}
	return nil
}

// GetRun returns the persisted header of one run
// GET /api/backtest/runs/{id}
func (h *BacktestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	run, err := h.runs.GetRun(ctx, id)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", id).Error("Failed to get run")
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    run,
	})
}

// GetTrades returns the trade ledger of one run
// GET /api/backtest/runs/{id}/trades
func (h *BacktestHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	trades, err := h.runs.GetTrades(ctx, id)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", id).Error("Failed to get trades")
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"runId":  id,
			"count":  len(trades),
			"trades": trades,
		},
	})
}

// GetNAV returns the NAV series of one run
// GET /api/backtest/runs/{id}/nav
func (h *BacktestHandler) GetNAV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	nav, err := h.runs.GetNAV(ctx, id)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", id).Error("Failed to get NAV series")
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"runId": id,
			"count": len(nav),
			"nav":   nav,
		},
	})
}

// StreamProgress upgrades the connection and streams NAV points of the
// in-flight run as they are produced
// GET /ws/backtest/progress
func (h *BacktestHandler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	h.progress.Serve(w, r)
}

// ProgressSubscribers returns the number of connected progress listeners
func (h *BacktestHandler) ProgressSubscribers() int {
	return h.progress.Subscribers()
}

func signalSymbols(signals []*contracts.Signal) []string {
	seen := make(map[string]bool)
	var symbols []string
	for _, s := range signals {
		if !seen[s.Symbol] {
			seen[s.Symbol] = true
			symbols = append(symbols, s.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
