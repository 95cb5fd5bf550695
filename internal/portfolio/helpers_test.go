package portfolio

import (
	"context"
	"math"
	"time"

	"github.com/foliokit/folio/internal/common"
	"github.com/foliokit/folio/internal/models"
)

// fakeMarket serves canned daily closes and profiles for tests.
type fakeMarket struct {
	dates      []time.Time
	closes     map[string][]float64
	profiles   map[string]*models.AssetProfile
	fetchErr   error
	profileErr error
	nilProfile bool
	fetchCalls int
}

func (f *fakeMarket) FetchDailyCloses(_ context.Context, symbols []string, _, _ time.Time) (*models.PriceTable, error) {
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	table := &models.PriceTable{
		Dates:   append([]time.Time(nil), f.dates...),
		Symbols: append([]string(nil), symbols...),
		Close:   make([][]float64, len(f.dates)),
	}
	for row := range table.Close {
		table.Close[row] = make([]float64, len(symbols))
		for col, symbol := range symbols {
			prices, ok := f.closes[symbol]
			if !ok || row >= len(prices) {
				table.Close[row][col] = math.NaN()
				continue
			}
			table.Close[row][col] = prices[row]
		}
	}
	return table, nil
}

func (f *fakeMarket) FetchProfile(_ context.Context, symbol string) (*models.AssetProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	if f.nilProfile {
		return nil, nil
	}
	if p, ok := f.profiles[symbol]; ok {
		return p, nil
	}
	return &models.AssetProfile{Symbol: symbol, Currency: "USD"}, nil
}

// fakeFX serves canned USD exchange rates.
type fakeFX struct {
	rates     map[string]*float64
	err       error
	rateCalls int
}

func (f *fakeFX) FetchRates(_ context.Context, currencies []string) (map[string]*float64, error) {
	f.rateCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]*float64, len(currencies))
	for _, c := range currencies {
		out[c] = f.rates[c]
	}
	return out, nil
}

func tradingDates(n int) []time.Time {
	dates := make([]time.Time, n)
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		dates[i] = d
		d = d.AddDate(0, 0, 1)
	}
	return dates
}

func testConfig() common.AnalyticsConfig {
	return common.AnalyticsConfig{
		HistoryYears:   3,
		RiskFreeRate:   0,
		MaxSimulations: 10000,
		MaxDays:        2520,
	}
}

func newTestService(market *fakeMarket, fx *fakeFX, opts ...Option) *Service {
	opts = append([]Option{WithSeed(42)}, opts...)
	return NewService(market, fx, testConfig(), common.NewSilentLogger(), opts...)
}

func floatPtr(v float64) *float64 { return &v }
