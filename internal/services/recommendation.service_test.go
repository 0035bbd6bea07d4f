package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySpendBands(t *testing.T) {
	tests := []struct {
		spend    string
		expected SpendBand
	}{
		{"0", SpendBandSmall},
		{"249999.99", SpendBandSmall},
		{"250000", SpendBandMedium},
		{"1999999.99", SpendBandMedium},
		{"2000000", SpendBandLarge},
		{"15000000", SpendBandLarge},
	}

	for _, tt := range tests {
		t.Run(tt.spend, func(t *testing.T) {
			spend, err := decimal.NewFromString(tt.spend)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ClassifySpend(spend))
		})
	}
}

func TestLookupReturnsFixedRecords(t *testing.T) {
	service, err := NewRecommendationService()
	require.NoError(t, err)

	rec, err := service.Lookup(decimal.NewFromInt(5_000_000), DataQualityHigh, CoverageComplete)
	require.NoError(t, err)
	assert.Equal(t, "strategic sourcing pipeline", rec.Approach)
	assert.Equal(t, "spend analytics platform", rec.Tooling)

	again, err := service.Lookup(decimal.NewFromInt(5_000_000), DataQualityHigh, CoverageComplete)
	require.NoError(t, err)
	assert.Equal(t, rec, again)
}

func TestLowQualityAlwaysRoutesToCleanup(t *testing.T) {
	service, err := NewRecommendationService()
	require.NoError(t, err)

	for _, spend := range []int64{10_000, 500_000, 10_000_000} {
		for _, coverage := range []Coverage{CoveragePartial, CoverageComplete} {
			rec, err := service.Lookup(decimal.NewFromInt(spend), DataQualityLow, coverage)
			require.NoError(t, err)
			assert.Equal(t, "data cleanup sprint", rec.Approach)
		}
	}
}

func TestLookupNormalizesCase(t *testing.T) {
	service, err := NewRecommendationService()
	require.NoError(t, err)

	rec, err := service.LookupByBand("MEDIUM", "High", "Complete")
	require.NoError(t, err)
	assert.Equal(t, "savings opportunity scan", rec.Approach)
}

func TestLookupRejectsUnknownInputs(t *testing.T) {
	service, err := NewRecommendationService()
	require.NoError(t, err)

	_, err = service.LookupByBand(SpendBandMedium, "excellent", CoverageComplete)
	assert.Error(t, err)
}
