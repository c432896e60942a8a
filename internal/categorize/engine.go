// Package categorize assigns categories to canonical transaction rows,
// consulting the per-user merchant cache before falling back to the
// classification oracle in bounded parallel batches.
package categorize

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/castlemilk/bankfeed/backend/internal/merchant"
	"github.com/castlemilk/bankfeed/backend/internal/model"
	"github.com/castlemilk/bankfeed/backend/internal/oracle"
)

// Result is the categorization of one input row, positionally aligned
// with the rows passed to Categorize.
type Result struct {
	Row          model.CanonicalRow
	Category     model.Category
	Subcategory  string
	MerchantName string
	MerchantType string
	Confidence   float64
	FromCache    bool

	// ExcludeFromPersistence marks rows that must not become
	// transactions (account balance snapshots).
	ExcludeFromPersistence bool
}

// Engine runs the cache-first categorization flow.
type Engine struct {
	classifier      oracle.Classifier
	cacheStore      merchant.EntryStore
	batchSize       int
	parallelBatches int
	logger          zerolog.Logger
}

// NewEngine builds an engine. batchSize and parallelBatches fall back
// to 50 and 10 when non-positive.
func NewEngine(classifier oracle.Classifier, cacheStore merchant.EntryStore, batchSize, parallelBatches int, logger zerolog.Logger) *Engine {
	if batchSize <= 0 {
		batchSize = 50
	}
	if parallelBatches <= 0 {
		parallelBatches = 10
	}
	return &Engine{
		classifier:      classifier,
		cacheStore:      cacheStore,
		batchSize:       batchSize,
		parallelBatches: parallelBatches,
		logger:          logger,
	}
}

// Categorize resolves a category for every row, in input order.
//
// Rows whose description hits the merchant cache exactly are answered
// without an oracle call. The misses are chunked and classified
// concurrently; a batch whose oracle call fails (after the model
// fallback chain) degrades to the best-effort default for its rows
// only. Successful oracle answers are written back to the cache.
func (e *Engine) Categorize(ctx context.Context, userID string, rows []model.CanonicalRow) ([]Result, *Stats, error) {
	results := make([]Result, len(rows))
	cache := merchant.NewCache(e.cacheStore, userID)

	var missIdx []int
	for i, row := range rows {
		entry, err := cache.Lookup(ctx, row.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("cache lookup: %w", err)
		}
		if entry != nil {
			results[i] = Result{
				Row:          row,
				Category:     entry.Category,
				Subcategory:  entry.Subcategory,
				MerchantName: entry.MerchantName,
				MerchantType: entry.MerchantType,
				Confidence:   entry.Confidence,
				FromCache:    true,
			}
			continue
		}
		missIdx = append(missIdx, i)
	}

	if err := e.classifyMisses(ctx, rows, missIdx, results); err != nil {
		return nil, nil, err
	}

	// Cache writes happen after the fan-out so a degraded batch never
	// poisons the cache with zero-confidence defaults.
	for _, i := range missIdx {
		res := results[i]
		if res.Confidence <= 0 {
			continue
		}
		if err := cache.Put(ctx, res.Row.Description, merchant.Resolution{
			Category:     res.Category,
			Subcategory:  res.Subcategory,
			MerchantName: res.MerchantName,
			MerchantType: res.MerchantType,
			Confidence:   res.Confidence,
		}); err != nil {
			e.logger.Warn().Err(err).Msg("merchant cache write failed")
		}
	}

	for i := range results {
		if results[i].Category == model.CategoryBalance {
			results[i].ExcludeFromPersistence = true
		}
	}

	return results, buildStats(results), nil
}

// classifyMisses chunks the cache misses and fans the chunks out to the
// oracle, writing answers into results at their original indices.
func (e *Engine) classifyMisses(ctx context.Context, rows []model.CanonicalRow, missIdx []int, results []Result) error {
	if len(missIdx) == 0 {
		return nil
	}

	var chunks [][]int
	for start := 0; start < len(missIdx); start += e.batchSize {
		end := min(start+e.batchSize, len(missIdx))
		chunks = append(chunks, missIdx[start:end])
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelBatches)
	for _, chunk := range chunks {
		g.Go(func() error {
			e.classifyChunk(ctx, rows, chunk, results)
			return nil
		})
	}
	return g.Wait()
}

func (e *Engine) classifyChunk(ctx context.Context, rows []model.CanonicalRow, chunk []int, results []Result) {
	batchRows := make([]oracle.BatchRow, len(chunk))
	for pos, i := range chunk {
		row := rows[i]
		batchRows[pos] = oracle.BatchRow{
			TransactionID: fmt.Sprintf("%d", pos),
			Date:          row.Date,
			Kind:          row.Kind,
			Amount:        row.Amount,
			Currency:      row.Currency,
			Description:   row.Description,
		}
	}

	resp, err := e.classifier.Classify(ctx, oracle.Request{
		Kind: oracle.KindCategorizeBatch,
		Rows: batchRows,
	})
	if err != nil {
		e.logger.Warn().Err(err).Int("rows", len(chunk)).Msg("batch categorization failed, applying defaults")
		for _, i := range chunk {
			results[i] = fallbackResult(rows[i])
		}
		return
	}

	byID := make(map[string]oracle.BatchItem, len(resp.Batch.Items))
	for _, item := range resp.Batch.Items {
		byID[item.TransactionID] = item
	}

	for pos, i := range chunk {
		item, ok := byID[fmt.Sprintf("%d", pos)]
		if !ok {
			results[i] = fallbackResult(rows[i])
			continue
		}
		name := item.MerchantName
		if name == "" {
			name = merchant.Normalize(rows[i].Description)
		}
		results[i] = Result{
			Row:          rows[i],
			Category:     model.ParseCategory(item.Category),
			Subcategory:  item.Subcategory,
			MerchantName: name,
			MerchantType: item.MerchantType,
			Confidence:   item.Confidence,
		}
	}
}

// fallbackResult is the best-effort default applied when a batch's
// oracle call is exhausted.
func fallbackResult(row model.CanonicalRow) Result {
	return Result{
		Row:          row,
		Category:     model.CategoryOther,
		Subcategory:  "Unknown",
		MerchantName: "Unknown",
		MerchantType: "Unknown",
		Confidence:   0,
	}
}
