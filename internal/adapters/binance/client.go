// Package binance implements ports.ExchangeClient against the Binance spot
// REST and WebSocket APIs.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRESTBase = "https://api.binance.com"

	// Rate limits well under Binance's documented request weights:
	// market data endpoints get a generous budget, signed order
	// endpoints a conservative one.
	marketRatePerSec = 10
	orderRatePerSec  = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// Client talks to a single Binance spot account with rate limiting and
// retries. Public market-data calls retry on transient failures; signed
// order calls never retry (a duplicate market order is worse than a
// reported timeout).
type Client struct {
	http          *http.Client
	restBase      string
	apiKey        string
	apiSecret     string
	takerFeeRate  float64
	marketLimiter *rate.Limiter
	orderLimiter  *rate.Limiter
	stream        *BookTickerStream // optional live quote cache
	now           func() time.Time
}

// NewClient creates a Client. If restBase is empty the production URL is
// used. takerFeeRate is applied to every market the client reports, since
// Binance exposes the account's fee tier, not a per-symbol fee.
func NewClient(restBase, apiKey, apiSecret string, takerFeeRate float64) *Client {
	if restBase == "" {
		restBase = defaultRESTBase
	}
	return &Client{
		http:          &http.Client{Timeout: 10 * time.Second},
		restBase:      restBase,
		apiKey:        apiKey,
		apiSecret:     apiSecret,
		takerFeeRate:  takerFeeRate,
		marketLimiter: rate.NewLimiter(marketRatePerSec, 5),
		orderLimiter:  rate.NewLimiter(orderRatePerSec, 2),
		now:           time.Now,
	}
}

// WithStream attaches a running book-ticker stream. When the stream holds
// fresh quotes, FetchSnapshot serves them without touching the REST API.
func (c *Client) WithStream(s *BookTickerStream) *Client {
	c.stream = s
	return c
}

// get performs a rate-limited public GET with retries and decodes JSON into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.restBase + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.marketLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("status %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("binance: transient error, retrying",
				"status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// signedCall performs one signed request against an account endpoint.
// No retries: the caller handles timeouts through reconciliation.
func (c *Client) signedCall(ctx context.Context, method, path string, params url.Values, out any) error {
	if err := c.orderLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	payload := params.Encode()
	params.Set("signature", c.sign(payload))

	u := c.restBase + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// sign computes the HMAC-SHA256 signature Binance requires on account calls.
func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// sleep waits with exponential backoff, respecting the context.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
