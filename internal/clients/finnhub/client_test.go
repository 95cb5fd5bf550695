package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "apple", r.URL.Query().Get("q"))
		assert.Equal(t, "test-token", r.URL.Query().Get("token"))
		fmt.Fprint(w, `{
			"count": 2,
			"result": [
				{"symbol": "AAPL", "description": "APPLE INC", "type": "Common Stock"},
				{"symbol": "AAPL.MX", "description": "APPLE INC", "type": "Common Stock"}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	matches, err := client.Search(context.Background(), "apple")
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "AAPL", matches[0].Symbol)
	assert.Equal(t, "APPLE INC", matches[0].Description)
	assert.Equal(t, "Common Stock", matches[0].Type)
}

func TestSearch_NoMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count": 0, "result": []}`)
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	matches, err := client.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSearch_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))
	_, err := client.Search(context.Background(), "apple")
	assert.Error(t, err)
}
