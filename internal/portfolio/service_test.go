package portfolio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliokit/folio/internal/models"
)

func weightSum(assets []models.Asset) float64 {
	sum := 0.0
	for _, a := range assets {
		sum += a.Weight
	}
	return sum
}

func TestAddAsset_EqualWeightRecalc(t *testing.T) {
	market := &fakeMarket{}
	svc := newTestService(market, &fakeFX{})
	ctx := context.Background()

	_, err := svc.AddAsset(ctx, models.Asset{Symbol: "aapl"})
	require.NoError(t, err)

	assets := svc.Assets()
	require.Len(t, assets, 1)
	assert.Equal(t, "AAPL", assets[0].Symbol)
	assert.Equal(t, 1.0, assets[0].Weight)

	_, err = svc.AddAsset(ctx, models.Asset{Symbol: "MSFT"})
	require.NoError(t, err)
	_, err = svc.AddAsset(ctx, models.Asset{Symbol: "GOOG"})
	require.NoError(t, err)

	assets = svc.Assets()
	require.Len(t, assets, 3)
	for _, a := range assets {
		assert.InDelta(t, 1.0/3.0, a.Weight, 1e-9)
	}
	assert.InDelta(t, 1.0, weightSum(assets), 1e-9)
}

func TestAddAsset_Duplicate(t *testing.T) {
	svc := newTestService(&fakeMarket{}, &fakeFX{})
	ctx := context.Background()

	_, err := svc.AddAsset(ctx, models.Asset{Symbol: "AAPL"})
	require.NoError(t, err)

	_, err = svc.AddAsset(ctx, models.Asset{Symbol: "aapl"})
	var dup *models.DuplicateAssetError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "AAPL", dup.Symbol)
	assert.Len(t, svc.Assets(), 1)
}

func TestAddAsset_ProfileEnrichment(t *testing.T) {
	market := &fakeMarket{
		profiles: map[string]*models.AssetProfile{
			"SAP": {Symbol: "SAP", Name: "SAP SE", Sector: "Technology", Industry: "Software", Currency: "EUR"},
		},
	}
	svc := newTestService(market, &fakeFX{})

	added, err := svc.AddAsset(context.Background(), models.Asset{Symbol: "SAP"})
	require.NoError(t, err)
	assert.Equal(t, "SAP SE", added.Name)
	assert.Equal(t, "Technology", added.Sector)
	assert.Equal(t, "EUR", added.Currency)
}

func TestAddAsset_ProfileFailureFallsBack(t *testing.T) {
	market := &fakeMarket{profileErr: &models.NetworkError{Provider: "yahoo"}}
	svc := newTestService(market, &fakeFX{})

	added, err := svc.AddAsset(context.Background(), models.Asset{Symbol: "AAPL", Name: "Apple"})
	require.NoError(t, err)
	assert.Equal(t, "Apple", added.Name)
	assert.Equal(t, "USD", added.Currency)
}

func TestAddAsset_NilProfileKeepsSubmittedFields(t *testing.T) {
	market := &fakeMarket{nilProfile: true}
	svc := newTestService(market, &fakeFX{})

	added, err := svc.AddAsset(context.Background(), models.Asset{Symbol: "AAPL", Name: "Apple"})
	require.NoError(t, err)
	assert.Equal(t, "Apple", added.Name)
	assert.Equal(t, "USD", added.Currency)
}

func TestRemoveAsset_RestoresEqualWeights(t *testing.T) {
	svc := newTestService(&fakeMarket{}, &fakeFX{})
	ctx := context.Background()

	for _, symbol := range []string{"AAPL", "MSFT", "GOOG"} {
		_, err := svc.AddAsset(ctx, models.Asset{Symbol: symbol})
		require.NoError(t, err)
	}

	removed, err := svc.RemoveAsset(ctx, "MSFT")
	require.NoError(t, err)
	assert.True(t, removed)

	assets := svc.Assets()
	require.Len(t, assets, 2)
	assert.Equal(t, "AAPL", assets[0].Symbol)
	assert.Equal(t, "GOOG", assets[1].Symbol)
	for _, a := range assets {
		assert.InDelta(t, 0.5, a.Weight, 1e-9)
	}
	assert.InDelta(t, 1.0, weightSum(assets), 1e-9)
}

func TestRemoveAsset_Absent(t *testing.T) {
	svc := newTestService(&fakeMarket{}, &fakeFX{})

	removed, err := svc.RemoveAsset(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSetWeights_SkipsUnknownSymbols(t *testing.T) {
	svc := newTestService(&fakeMarket{}, &fakeFX{})
	ctx := context.Background()

	for _, symbol := range []string{"AAPL", "MSFT"} {
		_, err := svc.AddAsset(ctx, models.Asset{Symbol: symbol})
		require.NoError(t, err)
	}

	skipped, err := svc.SetWeights(ctx, []models.WeightUpdate{
		{Symbol: "AAPL", Weight: 0.7},
		{Symbol: "MSFT", Weight: 0.3},
		{Symbol: "TSLA", Weight: 0.1},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA"}, skipped)

	assets := svc.Assets()
	assert.Equal(t, 0.7, assets[0].Weight)
	assert.Equal(t, 0.3, assets[1].Weight)
}

func TestSetWeights_RejectsInvalidWeight(t *testing.T) {
	svc := newTestService(&fakeMarket{}, &fakeFX{})
	ctx := context.Background()

	_, err := svc.AddAsset(ctx, models.Asset{Symbol: "AAPL"})
	require.NoError(t, err)

	for _, w := range []float64{-0.1, 1.5} {
		_, err := svc.SetWeights(ctx, []models.WeightUpdate{{Symbol: "AAPL", Weight: w}})
		assert.Error(t, err)
	}

	// Rejected updates leave the original weight in place.
	assert.Equal(t, 1.0, svc.Assets()[0].Weight)
}

func TestWeightsSumToOne(t *testing.T) {
	assert.True(t, weightsSumToOne([]float64{0.5, 0.5}))
	assert.True(t, weightsSumToOne([]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}))
	assert.True(t, weightsSumToOne([]float64{0.6, 0.4 + weightTolerance/2}))
	assert.False(t, weightsSumToOne([]float64{0.6, 0.3}))
	assert.False(t, weightsSumToOne([]float64{0.6, 0.4 + 2*weightTolerance}))
}

func TestAssets_ReturnsCopy(t *testing.T) {
	svc := newTestService(&fakeMarket{}, &fakeFX{})

	_, err := svc.AddAsset(context.Background(), models.Asset{Symbol: "AAPL"})
	require.NoError(t, err)

	assets := svc.Assets()
	assets[0].Weight = 99

	assert.Equal(t, 1.0, svc.Assets()[0].Weight)
}
