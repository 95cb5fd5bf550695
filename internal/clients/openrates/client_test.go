package openrates

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRates_ResolvesRequestedCurrencies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest.json", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("app_id"))
		fmt.Fprint(w, `{"base": "USD", "rates": {"EUR": 0.92, "GBP": 0.79, "JPY": 151.2}}`)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	rates, err := client.FetchRates(context.Background(), []string{"EUR", "GBP"})
	require.NoError(t, err)

	require.NotNil(t, rates["EUR"])
	assert.Equal(t, 0.92, *rates["EUR"])
	require.NotNil(t, rates["GBP"])
	assert.Equal(t, 0.79, *rates["GBP"])
}

func TestFetchRates_USDIsAlwaysOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"base": "USD", "rates": {}}`)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	rates, err := client.FetchRates(context.Background(), []string{"USD"})
	require.NoError(t, err)

	require.NotNil(t, rates["USD"])
	assert.Equal(t, 1.0, *rates["USD"])
}

func TestFetchRates_UnknownCurrencyIsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"base": "USD", "rates": {"EUR": 0.92}}`)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	rates, err := client.FetchRates(context.Background(), []string{"EUR", "XXX"})
	require.NoError(t, err)

	require.NotNil(t, rates["EUR"])
	assert.Nil(t, rates["XXX"])
}

func TestFetchRates_SingleRequestForManyCurrencies(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"base": "USD", "rates": {"EUR": 0.92, "GBP": 0.79}}`)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.FetchRates(context.Background(), []string{"EUR", "GBP", "USD"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestFetchRates_ClientErrorNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient("bad-key", WithBaseURL(server.URL))
	_, err := client.FetchRates(context.Background(), []string{"EUR"})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
