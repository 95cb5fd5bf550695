package models

import (
	"errors"
	"fmt"
)

// ErrNoHistoricalData signals that the market data provider returned
// nothing usable for the requested symbols and range. Retrying with the
// same inputs will not help; the caller should correct them.
var ErrNoHistoricalData = errors.New("no historical data for the requested symbols and date range")

// ErrMissingData signals a price table without a usable close series.
var ErrMissingData = errors.New("price data is missing a close series")

// ErrEmptyPortfolio signals an analytics request against an empty asset list.
var ErrEmptyPortfolio = errors.New("portfolio holds no assets")

// DuplicateAssetError is returned by AddAsset when the symbol is
// already held. The portfolio is left unchanged.
type DuplicateAssetError struct {
	Symbol string
}

func (e *DuplicateAssetError) Error() string {
	return fmt.Sprintf("asset %s is already in the portfolio", e.Symbol)
}

// OptimizationFailedError is returned when the solver does not
// converge. It carries the solver's diagnostic; portfolio weights are
// left untouched.
type OptimizationFailedError struct {
	Reason string
}

func (e *OptimizationFailedError) Error() string {
	return fmt.Sprintf("optimization failed: %s", e.Reason)
}

// NetworkError wraps a transport failure talking to an external
// provider. Unlike missing data, these are worth retrying.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
