package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartPayload(timestamps []int64, closes []string) string {
	ts := make([]string, len(timestamps))
	for i, t := range timestamps {
		ts[i] = fmt.Sprintf("%d", t)
	}
	return fmt.Sprintf(`{
		"chart": {
			"result": [{
				"timestamp": [%s],
				"indicators": {"quote": [{"close": [%s]}]}
			}],
			"error": null
		}
	}`, strings.Join(ts, ","), strings.Join(closes, ","))
}

func day(yyyy int, mm time.Month, dd int) time.Time {
	return time.Date(yyyy, mm, dd, 0, 0, 0, 0, time.UTC)
}

func TestFetchDailyCloses_SingleSymbol(t *testing.T) {
	ts := []int64{
		day(2024, 1, 2).Unix(),
		day(2024, 1, 3).Unix(),
		day(2024, 1, 4).Unix(),
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/AAPL")
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		fmt.Fprint(w, chartPayload(ts, []string{"100", "102", "101"}))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	table, err := client.FetchDailyCloses(context.Background(), []string{"AAPL"}, day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)

	require.Len(t, table.Dates, 3)
	assert.Equal(t, []string{"AAPL"}, table.Symbols)
	assert.Equal(t, 100.0, table.Close[0][0])
	assert.Equal(t, 102.0, table.Close[1][0])
	assert.Equal(t, 101.0, table.Close[2][0])
	assert.Equal(t, day(2024, 1, 2), table.Dates[0])
}

func TestFetchDailyCloses_AlignsOnDateUnion(t *testing.T) {
	shared := day(2024, 1, 2).Unix()
	only1 := day(2024, 1, 3).Unix()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "AAPL") {
			fmt.Fprint(w, chartPayload([]int64{shared, only1}, []string{"100", "101"}))
			return
		}
		fmt.Fprint(w, chartPayload([]int64{shared}, []string{"200"}))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	table, err := client.FetchDailyCloses(context.Background(), []string{"AAPL", "MSFT"}, day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)

	require.Len(t, table.Dates, 2)
	assert.Equal(t, 100.0, table.Close[0][0])
	assert.Equal(t, 200.0, table.Close[0][1])
	assert.Equal(t, 101.0, table.Close[1][0])
	assert.True(t, math.IsNaN(table.Close[1][1]))
}

func TestFetchDailyCloses_SkipsNullCloses(t *testing.T) {
	ts := []int64{day(2024, 1, 2).Unix(), day(2024, 1, 3).Unix()}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartPayload(ts, []string{"100", "null"}))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	table, err := client.FetchDailyCloses(context.Background(), []string{"AAPL"}, day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)

	require.Len(t, table.Dates, 1)
	assert.Equal(t, 100.0, table.Close[0][0])
}

func TestFetchDailyCloses_ProviderFailureYieldsEmptyTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	table, err := client.FetchDailyCloses(context.Background(), []string{"ZZZZ"}, day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)
	assert.True(t, table.Empty())
}

func TestFetchDailyCloses_NoSymbols(t *testing.T) {
	client := NewClient(WithRateLimit(1000))
	table, err := client.FetchDailyCloses(context.Background(), nil, day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)
	assert.True(t, table.Empty())
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, chartPayload([]int64{day(2024, 1, 2).Unix()}, []string{"100"}))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	table, err := client.FetchDailyCloses(context.Background(), []string{"AAPL"}, day(2024, 1, 1), day(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, table.Dates, 1)
}

func TestGet_DoesNotRetryClientErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	var chart chartResponse
	err := client.get(context.Background(), "/v8/finance/chart/AAPL", nil, &chart)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestFetchProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v10/finance/quoteSummary/SAP")
		assert.Equal(t, "assetProfile,price", r.URL.Query().Get("modules"))
		fmt.Fprint(w, `{
			"quoteSummary": {
				"result": [{
					"assetProfile": {"sector": "Technology", "industry": "Software"},
					"price": {"shortName": "SAP SE", "currency": "EUR"}
				}],
				"error": null
			}
		}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	profile, err := client.FetchProfile(context.Background(), "SAP")
	require.NoError(t, err)

	assert.Equal(t, "SAP SE", profile.Name)
	assert.Equal(t, "Technology", profile.Sector)
	assert.Equal(t, "Software", profile.Industry)
	assert.Equal(t, "EUR", profile.Currency)
}

func TestFetchProfile_EmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"quoteSummary": {"result": [], "error": null}}`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	_, err := client.FetchProfile(context.Background(), "ZZZZ")
	assert.Error(t, err)
}
