package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssetNormalize(t *testing.T) {
	tests := []struct {
		name         string
		asset        Asset
		wantSymbol   string
		wantCurrency string
	}{
		{"lowercase symbol", Asset{Symbol: "aapl"}, "AAPL", "USD"},
		{"padded symbol", Asset{Symbol: " msft "}, "MSFT", "USD"},
		{"explicit currency", Asset{Symbol: "SAP", Currency: "eur"}, "SAP", "EUR"},
		{"empty currency defaults", Asset{Symbol: "IBM", Currency: ""}, "IBM", "USD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.asset.Normalize()
			assert.Equal(t, tt.wantSymbol, tt.asset.Symbol)
			assert.Equal(t, tt.wantCurrency, tt.asset.Currency)
		})
	}
}
