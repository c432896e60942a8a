package categorize

import (
	"sort"

	"github.com/castlemilk/bankfeed/backend/internal/model"
)

// MerchantTotal is one entry of the top-merchants ranking.
type MerchantTotal struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// Stats summarizes a categorization run.
type Stats struct {
	CategoryTotals    map[model.Category]float64 `json:"categoryTotals"`
	SubcategoryTotals map[string]float64         `json:"subcategoryTotals"`
	TopMerchants      []MerchantTotal            `json:"topMerchants"`
	TotalSpend        float64                    `json:"totalSpend"`
	TotalIncome       float64                    `json:"totalIncome"`
	AvgConfidence     float64                    `json:"avgConfidence"`
	CacheHits         int                        `json:"cacheHits"`
	BalanceEntries    int                        `json:"balanceEntriesCount"`
}

const topMerchantLimit = 10

func buildStats(results []Result) *Stats {
	stats := &Stats{
		CategoryTotals:    make(map[model.Category]float64),
		SubcategoryTotals: make(map[string]float64),
	}

	byMerchant := make(map[string]*MerchantTotal)
	confidenceSum := 0.0
	for _, res := range results {
		if res.FromCache {
			stats.CacheHits++
		}
		confidenceSum += res.Confidence

		if res.Category == model.CategoryBalance {
			stats.BalanceEntries++
			continue
		}

		stats.CategoryTotals[res.Category] += res.Row.Amount
		if res.Subcategory != "" {
			stats.SubcategoryTotals[res.Subcategory] += res.Row.Amount
		}
		switch res.Row.Kind {
		case "-":
			stats.TotalSpend += res.Row.Amount
		case "+":
			stats.TotalIncome += res.Row.Amount
		}

		if res.MerchantName != "" {
			mt, ok := byMerchant[res.MerchantName]
			if !ok {
				mt = &MerchantTotal{Name: res.MerchantName}
				byMerchant[res.MerchantName] = mt
			}
			mt.Count++
			mt.Total += res.Row.Amount
		}
	}

	if len(results) > 0 {
		stats.AvgConfidence = confidenceSum / float64(len(results))
	}

	for _, mt := range byMerchant {
		stats.TopMerchants = append(stats.TopMerchants, *mt)
	}
	sort.Slice(stats.TopMerchants, func(i, j int) bool {
		if stats.TopMerchants[i].Count != stats.TopMerchants[j].Count {
			return stats.TopMerchants[i].Count > stats.TopMerchants[j].Count
		}
		return stats.TopMerchants[i].Name < stats.TopMerchants[j].Name
	})
	if len(stats.TopMerchants) > topMerchantLimit {
		stats.TopMerchants = stats.TopMerchants[:topMerchantLimit]
	}
	return stats
}
