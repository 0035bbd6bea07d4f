package services

import (
	"fmt"
	"strings"

	"spendlens/internal/logger"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
)

// DataQuality is the analyst's self-assessed quality of the source data
type DataQuality string

const (
	DataQualityLow    DataQuality = "low"
	DataQualityMedium DataQuality = "medium"
	DataQualityHigh   DataQuality = "high"
)

// Coverage is how much of total spend has been categorized
type Coverage string

const (
	CoveragePartial  Coverage = "partial"
	CoverageComplete Coverage = "complete"
)

// SpendBand buckets annual vendor spend. Band edges are product-defined
// dollar amounts compared exactly, so decimal rather than float.
type SpendBand string

const (
	SpendBandSmall  SpendBand = "small"  // < $250k
	SpendBandMedium SpendBand = "medium" // $250k - $2M
	SpendBandLarge  SpendBand = "large"  // >= $2M
)

var (
	spendBandMediumFloor = decimal.NewFromInt(250_000)
	spendBandLargeFloor  = decimal.NewFromInt(2_000_000)
)

// Recommendation is a fixed playbook entry. Records are static lookup
// results, not inferred output.
type Recommendation struct {
	Approach string `json:"approach"`
	Tooling  string `json:"tooling"`
	Cadence  string `json:"cadence"`
	Notes    string `json:"notes,omitempty"`
}

type recommendationKey struct {
	Band     SpendBand
	Quality  DataQuality
	Coverage Coverage
}

// RecommendationService maps (spend band, data quality, coverage) to a
// fixed recommendation via table lookup
type RecommendationService struct {
	table map[recommendationKey]Recommendation
	cache *lru.Cache[string, Recommendation]
	log   logger.Logger
}

const recommendationCacheSize = 256

func NewRecommendationService() (*RecommendationService, error) {
	cache, err := lru.New[string, Recommendation](recommendationCacheSize)
	if err != nil {
		return nil, err
	}

	return &RecommendationService{
		table: buildRecommendationTable(),
		cache: cache,
		log:   logger.New("recommendationService"),
	}, nil
}

// ClassifySpend maps an annual spend amount onto its band
func ClassifySpend(annualSpend decimal.Decimal) SpendBand {
	if annualSpend.GreaterThanOrEqual(spendBandLargeFloor) {
		return SpendBandLarge
	}
	if annualSpend.GreaterThanOrEqual(spendBandMediumFloor) {
		return SpendBandMedium
	}
	return SpendBandSmall
}

// Lookup resolves a recommendation from the raw annual spend figure
func (s *RecommendationService) Lookup(annualSpend decimal.Decimal, quality DataQuality, coverage Coverage) (Recommendation, error) {
	return s.LookupByBand(ClassifySpend(annualSpend), quality, coverage)
}

// LookupByBand resolves a recommendation from an already-classified band
func (s *RecommendationService) LookupByBand(band SpendBand, quality DataQuality, coverage Coverage) (Recommendation, error) {
	log := s.log.Function("LookupByBand")

	quality = DataQuality(strings.ToLower(string(quality)))
	coverage = Coverage(strings.ToLower(string(coverage)))
	band = SpendBand(strings.ToLower(string(band)))

	cacheKey := fmt.Sprintf("%s|%s|%s", band, quality, coverage)
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached, nil
	}

	recommendation, ok := s.table[recommendationKey{Band: band, Quality: quality, Coverage: coverage}]
	if !ok {
		return Recommendation{}, log.Error(
			"no recommendation for inputs",
			"band", band,
			"quality", quality,
			"coverage", coverage,
		)
	}

	s.cache.Add(cacheKey, recommendation)
	return recommendation, nil
}

// buildRecommendationTable enumerates the full input space. Low-quality
// data always routes through cleanup first regardless of spend.
func buildRecommendationTable() map[recommendationKey]Recommendation {
	table := make(map[recommendationKey]Recommendation)

	add := func(band SpendBand, quality DataQuality, coverage Coverage, rec Recommendation) {
		table[recommendationKey{Band: band, Quality: quality, Coverage: coverage}] = rec
	}

	for _, band := range []SpendBand{SpendBandSmall, SpendBandMedium, SpendBandLarge} {
		for _, coverage := range []Coverage{CoveragePartial, CoverageComplete} {
			add(band, DataQualityLow, coverage, Recommendation{
				Approach: "data cleanup sprint",
				Tooling:  "spreadsheet with dedupe macros",
				Cadence:  "one-time, then reassess",
				Notes:    "Categorization results are unreliable until source quality improves.",
			})
		}
	}

	add(SpendBandSmall, DataQualityMedium, CoveragePartial, Recommendation{
		Approach: "manual category review",
		Tooling:  "spreadsheet",
		Cadence:  "quarterly",
	})
	add(SpendBandSmall, DataQualityMedium, CoverageComplete, Recommendation{
		Approach: "spot-check top vendors",
		Tooling:  "spreadsheet",
		Cadence:  "semi-annual",
	})
	add(SpendBandSmall, DataQualityHigh, CoveragePartial, Recommendation{
		Approach: "finish categorization then trend review",
		Tooling:  "spreadsheet",
		Cadence:  "quarterly",
	})
	add(SpendBandSmall, DataQualityHigh, CoverageComplete, Recommendation{
		Approach: "annual trend review",
		Tooling:  "spreadsheet",
		Cadence:  "annual",
	})

	add(SpendBandMedium, DataQualityMedium, CoveragePartial, Recommendation{
		Approach: "guided categorization with taxonomy templates",
		Tooling:  "BI dashboard over exports",
		Cadence:  "monthly",
	})
	add(SpendBandMedium, DataQualityMedium, CoverageComplete, Recommendation{
		Approach: "category deep-dives on top quartile",
		Tooling:  "BI dashboard over exports",
		Cadence:  "monthly",
	})
	add(SpendBandMedium, DataQualityHigh, CoveragePartial, Recommendation{
		Approach: "close coverage gap, then savings scan",
		Tooling:  "BI dashboard over exports",
		Cadence:  "monthly",
	})
	add(SpendBandMedium, DataQualityHigh, CoverageComplete, Recommendation{
		Approach: "savings opportunity scan",
		Tooling:  "BI dashboard over exports",
		Cadence:  "quarterly",
	})

	add(SpendBandLarge, DataQualityMedium, CoveragePartial, Recommendation{
		Approach: "dedicated categorization workstream",
		Tooling:  "spend analytics platform",
		Cadence:  "weekly",
	})
	add(SpendBandLarge, DataQualityMedium, CoverageComplete, Recommendation{
		Approach: "vendor consolidation analysis",
		Tooling:  "spend analytics platform",
		Cadence:  "monthly",
	})
	add(SpendBandLarge, DataQualityHigh, CoveragePartial, Recommendation{
		Approach: "close coverage gap with sourcing team",
		Tooling:  "spend analytics platform",
		Cadence:  "weekly",
	})
	add(SpendBandLarge, DataQualityHigh, CoverageComplete, Recommendation{
		Approach: "strategic sourcing pipeline",
		Tooling:  "spend analytics platform",
		Cadence:  "monthly",
	})

	return table
}
