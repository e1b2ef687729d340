package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joonho/earnquant/internal/api"
	"github.com/joonho/earnquant/internal/api/handlers"
	"github.com/joonho/earnquant/internal/backtest"
	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/internal/strategyconfig"
	"github.com/joonho/earnquant/pkg/config"
	"github.com/joonho/earnquant/pkg/logger"
)

// In-memory repositories backing the handler under test.

type memBars struct{ bars []*contracts.Bar }

func (m *memBars) GetBySymbolAndRange(_ context.Context, symbol string, from, to time.Time) ([]*contracts.Bar, error) {
	var out []*contracts.Bar
	for _, b := range m.bars {
		if b.Symbol == symbol && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memBars) GetLatestDate(_ context.Context, symbol string) (time.Time, error) {
	var latest time.Time
	for _, b := range m.bars {
		if b.Symbol == symbol && b.Date.After(latest) {
			latest = b.Date
		}
	}
	return latest, nil
}

func (m *memBars) SaveBatch(_ context.Context, bars []*contracts.Bar) error {
	m.bars = append(m.bars, bars...)
	return nil
}

type memMarket struct{ days []*contracts.MarketDay }

func (m *memMarket) GetRange(_ context.Context, from, to time.Time) ([]*contracts.MarketDay, error) {
	var out []*contracts.MarketDay
	for _, d := range m.days {
		if !d.Date.Before(from) && !d.Date.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memMarket) SaveBatch(_ context.Context, days []*contracts.MarketDay) error {
	m.days = append(m.days, days...)
	return nil
}

type memSignals struct{ signals []*contracts.Signal }

func (m *memSignals) GetByDateRange(_ context.Context, from, to time.Time) ([]*contracts.Signal, error) {
	var out []*contracts.Signal
	for _, s := range m.signals {
		if !s.AsOfDate.Before(from) && !s.AsOfDate.After(to) {
			out = append(out, s)
		}
	}
	contracts.SortSignals(out)
	return out, nil
}

func (m *memSignals) Save(_ context.Context, signal *contracts.Signal) error {
	m.signals = append(m.signals, signal)
	return nil
}

func (m *memSignals) SaveBatch(_ context.Context, signals []*contracts.Signal) error {
	m.signals = append(m.signals, signals...)
	return nil
}

type memRuns struct {
	runs   map[string]*contracts.RunRecord
	trades map[string][]contracts.TradeRecord
	nav    map[string][]contracts.NAVPoint
}

func newMemRuns() *memRuns {
	return &memRuns{
		runs:   make(map[string]*contracts.RunRecord),
		trades: make(map[string][]contracts.TradeRecord),
		nav:    make(map[string][]contracts.NAVPoint),
	}
}

func (m *memRuns) SaveRun(_ context.Context, run *contracts.RunRecord) error {
	m.runs[run.ID] = run
	return nil
}

func (m *memRuns) GetRun(_ context.Context, id string) (*contracts.RunRecord, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, nil
}

func (m *memRuns) SaveTrades(_ context.Context, runID string, trades []contracts.TradeRecord) error {
	m.trades[runID] = trades
	return nil
}

func (m *memRuns) GetTrades(_ context.Context, runID string) ([]contracts.TradeRecord, error) {
	trades, ok := m.trades[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return trades, nil
}

func (m *memRuns) SaveNAV(_ context.Context, runID string, nav []contracts.NAVPoint) error {
	m.nav[runID] = nav
	return nil
}

func (m *memRuns) GetNAV(_ context.Context, runID string) ([]contracts.NAVPoint, error) {
	nav, ok := m.nav[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	return nav, nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func f(v float64) *float64 { return &v }

func megaSignal(symbol string, asOf time.Time, year, quarter int) *contracts.Signal {
	return &contracts.Signal{
		Symbol:             symbol,
		AsOfDate:           asOf,
		Year:               year,
		Quarter:            quarter,
		Sector:             "Industrials",
		DirectionScore:     8,
		Confidence:         0.9,
		ReliabilityScore:   0.9,
		EvidenceScore:      0.8,
		ContradictionScore: 1,
		Anchors: contracts.RawAnchors{
			EPSSurprise:         f(0.25),
			EarningsDayReturn:   f(0.05),
			PreEarnings5DReturn: f(0.06),
			StockVolatility:     f(0.30),
		},
	}
}

// testEnv wires an in-memory world behind a real router.
type testEnv struct {
	server  *httptest.Server
	handler *handlers.BacktestHandler
	runs    *memRuns
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cal := backtest.NewCalendar(d("2019-01-02"), d("2019-03-29"))
	bars := &memBars{}
	market := &memMarket{}
	for _, day := range cal.Sessions() {
		bars.bars = append(bars.bars, &contracts.Bar{
			Symbol: "UAL", Date: day,
			Open: 100, High: 100, Low: 100, Close: 100,
			Volume: 1_000_000,
		})
		market.days = append(market.days, &contracts.MarketDay{
			Date: day, VIXClose: 15, SPYReturn: 0.001,
		})
	}

	signals := &memSignals{signals: []*contracts.Signal{
		megaSignal("UAL", d("2019-01-16"), 2019, 1),
	}}
	runs := newMemRuns()

	log := testLogger()
	handler := handlers.NewBacktestHandler(strategyconfig.Default(), bars, market, signals, runs, log)
	server := httptest.NewServer(api.NewRouter(handler, log))
	t.Cleanup(server.Close)

	return &testEnv{server: server, handler: handler, runs: runs}
}

func (e *testEnv) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(buf))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestRunBacktest(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/backtest/run", handlers.RunRequest{
		From: "2019-01-02",
		To:   "2019-03-29",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]interface{})
	runID := data["runId"].(string)
	require.NotEmpty(t, runID)
	assert.Equal(t, float64(1), data["trades"])
	assert.Greater(t, data["finalNav"].(float64), 0.0)

	// The run and its artifacts were persisted
	require.Contains(t, env.runs.runs, runID)
	assert.Len(t, env.runs.trades[runID], 1)
	assert.NotEmpty(t, env.runs.nav[runID])
}

func TestRunBacktest_BadRequests(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/backtest/run", "application/json",
		strings.NewReader("{not json"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.post(t, "/api/backtest/run", handlers.RunRequest{From: "01/02/2019", To: "2019-03-29"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// No signal can fall inside an inverted range
	resp = env.post(t, "/api/backtest/run", handlers.RunRequest{From: "2019-03-29", To: "2019-01-02"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunBacktest_NoSignalsInRange(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/backtest/run", handlers.RunRequest{
		From: "2020-01-02",
		To:   "2020-03-31",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRunArtifacts(t *testing.T) {
	env := newTestEnv(t)

	resp := env.post(t, "/api/backtest/run", handlers.RunRequest{
		From: "2019-01-02",
		To:   "2019-03-29",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runID := decodeBody(t, resp)["data"].(map[string]interface{})["runId"].(string)

	resp = env.get(t, "/api/backtest/runs/"+runID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, runID, run["id"])

	resp = env.get(t, "/api/backtest/runs/"+runID+"/trades")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	trades := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), trades["count"])

	resp = env.get(t, "/api/backtest/runs/"+runID+"/nav")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nav := decodeBody(t, resp)["data"].(map[string]interface{})
	assert.Greater(t, nav["count"].(float64), 0.0)

	resp = env.get(t, "/api/backtest/runs/no-such-run")
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamProgress(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/backtest/progress"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return env.handler.ProgressSubscribers() == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp := env.post(t, "/api/backtest/run", handlers.RunRequest{
		From: "2019-01-02",
		To:   "2019-03-29",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var points []contracts.NAVPoint
	for {
		var point contracts.NAVPoint
		if err := conn.ReadJSON(&point); err != nil {
			break
		}
		points = append(points, point)
		if len(points) >= 3 {
			break
		}
	}

	require.GreaterOrEqual(t, len(points), 3)
	assert.True(t, sort.SliceIsSorted(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	}))
	assert.Greater(t, points[0].NAV, 0.0)
}
