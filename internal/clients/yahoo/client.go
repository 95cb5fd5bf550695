// Package yahoo provides a market data client backed by the Yahoo
// Finance public API.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/foliokit/folio/internal/common"
	"github.com/foliokit/folio/internal/models"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 5 // requests per second

	maxRetries = 3
)

// Client implements interfaces.MarketDataClient against the Yahoo
// Finance chart and quoteSummary endpoints.
type Client struct {
	baseURL    string
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

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
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

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET with bounded exponential-backoff
// retries around transport failures and 5xx responses.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", "Mozilla/5.0")

		c.logger.Debug().Str("url", c.baseURL+path).Msg("Yahoo API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &models.NetworkError{Provider: "yahoo", Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(body),
				Endpoint:   path,
			}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return apiErr // retryable
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries),
		ctx,
	)
	return backoff.Retry(operation, policy)
}

// chartResponse mirrors the Yahoo chart API payload.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// fetchSymbolCloses retrieves one symbol's daily close series.
func (c *Client) fetchSymbolCloses(ctx context.Context, symbol string, start, end time.Time) (map[time.Time]float64, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	params.Set("period2", fmt.Sprintf("%d", end.Unix()))
	params.Set("interval", "1d")

	path := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(symbol))

	var chart chartResponse
	if err := c.get(ctx, path, params, &chart); err != nil {
		return nil, err
	}

	if chart.Chart.Error != nil {
		return nil, &APIError{
			StatusCode: http.StatusBadRequest,
			Message:    chart.Chart.Error.Description,
			Endpoint:   path,
		}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close

	series := make(map[time.Time]float64, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		day := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
		series[day] = *closes[i]
	}

	return series, nil
}

// FetchDailyCloses retrieves a close-price table for the symbols over
// [start, end]. Rows are aligned on the union of trading days; days a
// symbol did not trade carry NaN so callers can drop incomplete rows.
// Total failure yields an empty table, not an error.
func (c *Client) FetchDailyCloses(ctx context.Context, symbols []string, start, end time.Time) (*models.PriceTable, error) {
	if len(symbols) == 0 {
		return &models.PriceTable{}, nil
	}

	perSymbol := make([]map[time.Time]float64, len(symbols))
	dateSet := make(map[time.Time]struct{})

	for i, symbol := range symbols {
		series, err := c.fetchSymbolCloses(ctx, symbol, start, end)
		if err != nil {
			c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to fetch close prices")
			return &models.PriceTable{}, nil
		}
		perSymbol[i] = series
		for day := range series {
			dateSet[day] = struct{}{}
		}
	}

	if len(dateSet) == 0 {
		return &models.PriceTable{}, nil
	}

	dates := make([]time.Time, 0, len(dateSet))
	for day := range dateSet {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := &models.PriceTable{
		Dates:   dates,
		Symbols: append([]string(nil), symbols...),
		Close:   make([][]float64, len(dates)),
	}
	for row, day := range dates {
		prices := make([]float64, len(symbols))
		for col := range symbols {
			if v, ok := perSymbol[col][day]; ok {
				prices[col] = v
			} else {
				prices[col] = math.NaN()
			}
		}
		table.Close[row] = prices
	}

	return table, nil
}

// quoteSummaryResponse mirrors the Yahoo quoteSummary payload for the
// assetProfile and price modules.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile *struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			Price *struct {
				ShortName string `json:"shortName"`
				LongName  string `json:"longName"`
				Currency  string `json:"currency"`
			} `json:"price"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// FetchProfile retrieves name, sector, industry and trading currency
// for a symbol.
func (c *Client) FetchProfile(ctx context.Context, symbol string) (*models.AssetProfile, error) {
	params := url.Values{}
	params.Set("modules", "assetProfile,price")

	path := fmt.Sprintf("/v10/finance/quoteSummary/%s", url.PathEscape(symbol))

	var summary quoteSummaryResponse
	if err := c.get(ctx, path, params, &summary); err != nil {
		return nil, err
	}

	if summary.QuoteSummary.Error != nil || len(summary.QuoteSummary.Result) == 0 {
		return nil, models.ErrNoHistoricalData
	}

	result := summary.QuoteSummary.Result[0]
	profile := &models.AssetProfile{
		Symbol:   symbol,
		Currency: "USD",
	}
	if result.Price != nil {
		profile.Name = result.Price.ShortName
		if profile.Name == "" {
			profile.Name = result.Price.LongName
		}
		if result.Price.Currency != "" {
			profile.Currency = result.Price.Currency
		}
	}
	if result.AssetProfile != nil {
		profile.Sector = result.AssetProfile.Sector
		profile.Industry = result.AssetProfile.Industry
	}

	return profile, nil
}
