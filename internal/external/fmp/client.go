package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/joonho/earnquant/pkg/config"
	"github.com/joonho/earnquant/pkg/httputil"
	"github.com/joonho/earnquant/pkg/logger"
	"github.com/joonho/earnquant/pkg/redis"
)

// Client fetches historical prices from Financial Modeling Prep.
// Every request passes a local token-bucket limiter and a circuit
// breaker; daily-bar responses are cached in Redis for a day since
// history never changes.
type Client struct {
	http    *httputil.Client
	cache   *redis.Cache
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger

	apiKey  string
	baseURL string
}

// NewClient creates a new FMP client.
func NewClient(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fmp",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		http:    httpClient,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Limit(cfg.FMP.RatePerSecond), 1),
		breaker: breaker,
		log:     log,
		apiKey:  cfg.FMP.APIKey,
		baseURL: cfg.FMP.BaseURL,
	}
}

// getJSON performs one rate-limited, breaker-guarded GET and decodes
// the response body into dest.
func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fmp returned status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}

	return json.Unmarshal(body.([]byte), dest)
}
