package fmp

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/joonho/earnquant/internal/contracts"
	"github.com/joonho/earnquant/pkg/redis"
)

const (
	vixSymbol = "^VIX"
	spySymbol = "SPY"
)

// eodBar is one row of the historical-price-eod endpoint.
type eodBar struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// GetDailyBars fetches daily OHLC bars for a symbol, oldest first.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]*contracts.Bar, error) {
	fromStr := from.Format("2006-01-02")
	toStr := to.Format("2006-01-02")
	cacheKey := redis.BarsKey(symbol, fromStr, toStr)

	var cached []*contracts.Bar
	if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	rows, err := c.fetchEOD(ctx, symbol, fromStr, toStr)
	if err != nil {
		return nil, fmt.Errorf("fetch bars for %s: %w", symbol, err)
	}

	bars := make([]*contracts.Bar, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			return nil, fmt.Errorf("bad date %q for %s: %w", row.Date, symbol, err)
		}
		bars = append(bars, &contracts.Bar{
			Symbol: symbol,
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	if err := c.cache.Set(ctx, cacheKey, bars, redis.TTLDaily); err != nil {
		c.log.WithError(err).Warn("Failed to cache bars")
	}

	c.log.WithFields(map[string]interface{}{
		"symbol": symbol,
		"from":   fromStr,
		"to":     toStr,
		"bars":   len(bars),
	}).Debug("Fetched daily bars")

	return bars, nil
}

// GetMarketDays builds the per-session market context from the VIX
// close and the SPY close-to-close return.
func (c *Client) GetMarketDays(ctx context.Context, from, to time.Time) ([]*contracts.MarketDay, error) {
	fromStr := from.Format("2006-01-02")
	toStr := to.Format("2006-01-02")
	cacheKey := redis.VIXKey(fromStr, toStr)

	var cached []*contracts.MarketDay
	if found, err := c.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	// Reach one session further back so the first SPY return is real.
	vix, err := c.GetDailyBars(ctx, vixSymbol, from.AddDate(0, 0, -7), to)
	if err != nil {
		return nil, err
	}
	spy, err := c.GetDailyBars(ctx, spySymbol, from.AddDate(0, 0, -7), to)
	if err != nil {
		return nil, err
	}

	spyReturns := make(map[string]float64, len(spy))
	for i := 1; i < len(spy); i++ {
		if prev := spy[i-1].Close; prev > 0 {
			spyReturns[spy[i].Date.Format("2006-01-02")] = spy[i].Close/prev - 1
		}
	}

	var days []*contracts.MarketDay
	for _, bar := range vix {
		if bar.Date.Before(from) {
			continue
		}
		days = append(days, &contracts.MarketDay{
			Date:      bar.Date,
			VIXClose:  bar.Close,
			SPYReturn: spyReturns[bar.Date.Format("2006-01-02")],
		})
	}

	if err := c.cache.Set(ctx, cacheKey, days, redis.TTLDaily); err != nil {
		c.log.WithError(err).Warn("Failed to cache market days")
	}

	return days, nil
}

func (c *Client) fetchEOD(ctx context.Context, symbol, from, to string) ([]eodBar, error) {
	endpoint := fmt.Sprintf("%s/historical-price-eod/full?symbol=%s&from=%s&to=%s&apikey=%s",
		c.baseURL, url.QueryEscape(symbol), from, to, url.QueryEscape(c.apiKey))

	var rows []eodBar
	if err := c.getJSON(ctx, endpoint, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
