// Package openrates provides a USD-base exchange rate client backed by
// the Open Exchange Rates API.
package openrates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/foliokit/folio/internal/common"
	"github.com/foliokit/folio/internal/models"
)

const (
	DefaultBaseURL   = "https://openexchangerates.org/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2 // requests per second

	maxRetries = 3
)

// Client implements interfaces.ExchangeRateClient.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Open Exchange Rates client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// latestResponse mirrors the /latest.json payload.
type latestResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates returns a USD-base rate per requested currency. USD maps
// to 1.0; currencies the provider does not quote map to nil ("rate
// unknown"), never zero. The full set is resolved in one request.
func (c *Client) FetchRates(ctx context.Context, currencies []string) (map[string]*float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("app_id", c.apiKey)
	reqURL := fmt.Sprintf("%s/latest.json?%s", c.baseURL, params.Encode())

	var latest latestResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}

		c.logger.Debug().Msg("Open Exchange Rates request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &models.NetworkError{Provider: "openrates", Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("openrates: status %d: %s", resp.StatusCode, string(body))
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return err
			}
			return backoff.Permanent(err)
		}

		if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	rates := make(map[string]*float64, len(currencies))
	for _, currency := range currencies {
		if currency == "USD" {
			one := 1.0
			rates[currency] = &one
			continue
		}
		if v, ok := latest.Rates[currency]; ok {
			value := v
			rates[currency] = &value
		} else {
			rates[currency] = nil
		}
	}

	return rates, nil
}
