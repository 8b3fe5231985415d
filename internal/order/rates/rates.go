// Package rates resolves the USD to EUR conversion rate used to derive
// price_eur on create events. The rate source is an external collaborator
// behind a narrow interface; the order service decides what to do when it
// fails.
package rates

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drblury/orderflow/internal/jsoncodec"
)

// Source yields the current USD to EUR rate.
type Source interface {
	Rate(ctx context.Context) (float64, error)
}

// ErrNoEndpoint is returned when no rate endpoint is configured.
var ErrNoEndpoint = errors.New("orderflow: no rate endpoint configured")

const cacheKey = "orderflow:rate:usd_eur"

// Client fetches the rate from an HTTP endpoint shaped like the public
// exchange-rate APIs ({"rates":{"EUR":0.92}}) and caches it in Redis so the
// order API does not hit the third party on every create.
type Client struct {
	httpClient *http.Client
	url        string
	cache      *redis.Client
	ttl        time.Duration
}

// NewClient builds a rate client. cache may be nil to disable caching.
func NewClient(url string, cache *redis.Client, ttl time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		url:        url,
		cache:      cache,
		ttl:        ttl,
	}
}

type rateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate returns the cached rate when fresh, otherwise fetches and caches it.
func (c *Client) Rate(ctx context.Context) (float64, error) {
	if c.url == "" {
		return 0, ErrNoEndpoint
	}

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Result(); err == nil {
			if rate, err := strconv.ParseFloat(cached, 64); err == nil {
				return rate, nil
			}
		}
	}

	rate, err := c.fetch(ctx)
	if err != nil {
		return 0, err
	}

	if c.cache != nil {
		// Cache failures are not worth failing the lookup over.
		c.cache.Set(ctx, cacheKey, strconv.FormatFloat(rate, 'f', -1, 64), c.ttl)
	}
	return rate, nil
}

func (c *Client) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("rates: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rates: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rates: unexpected status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := jsoncodec.Decode(resp.Body, &body); err != nil {
		return 0, fmt.Errorf("rates: decode response: %w", err)
	}

	rate, ok := body.Rates["EUR"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("rates: response missing EUR rate")
	}
	return rate, nil
}
