package categorize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/bankfeed/backend/internal/model"
	"github.com/castlemilk/bankfeed/backend/internal/oracle"
)

type memEntryStore struct {
	mu      sync.Mutex
	entries map[string]*model.MerchantCacheEntry
}

func newMemEntryStore() *memEntryStore {
	return &memEntryStore{entries: make(map[string]*model.MerchantCacheEntry)}
}

func (s *memEntryStore) GetMerchantCacheEntry(_ context.Context, userID, key string) (*model.MerchantCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[userID+"/"+key]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (s *memEntryStore) UpsertMerchantCacheEntry(_ context.Context, entry *model.MerchantCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.entries[entry.UserID+"/"+entry.Key] = &copied
	return nil
}

func (s *memEntryStore) ListMerchantCacheEntries(_ context.Context, userID string) ([]*model.MerchantCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.MerchantCacheEntry
	for _, entry := range s.entries {
		if entry.UserID == userID {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}

// scriptedClassifier answers categorize_batch requests from a
// description→category table and fails any batch containing a row
// whose description includes "BOOM".
type scriptedClassifier struct {
	mu         sync.Mutex
	categories map[string]string
	calls      int
}

func (c *scriptedClassifier) Classify(_ context.Context, req oracle.Request) (*oracle.Response, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	items := make([]oracle.BatchItem, 0, len(req.Rows))
	for _, row := range req.Rows {
		if strings.Contains(row.Description, "BOOM") {
			return nil, errors.New("model unavailable")
		}
		category, ok := c.categories[row.Description]
		if !ok {
			category = "Shopping"
		}
		items = append(items, oracle.BatchItem{
			TransactionID: row.TransactionID,
			Category:      category,
			Subcategory:   "General",
			MerchantName:  row.Description,
			Confidence:    0.9,
		})
	}
	return &oracle.Response{Batch: &oracle.CategorizedBatch{Items: items}}, nil
}

func row(desc string, kind string, amount float64) model.CanonicalRow {
	return model.CanonicalRow{
		Date:        "2024-03-12",
		Kind:        kind,
		Amount:      amount,
		Currency:    "EUR",
		Description: desc,
	}
}

func newTestEngine(c oracle.Classifier, store *memEntryStore, batchSize int) *Engine {
	return NewEngine(c, store, batchSize, 4, zerolog.Nop())
}

func TestCategorizeBatchFailureIsolated(t *testing.T) {
	classifier := &scriptedClassifier{categories: map[string]string{
		"REWE MARKT": "Groceries",
		"NETFLIX":    "Subscriptions",
	}}
	engine := newTestEngine(classifier, newMemEntryStore(), 2)

	rows := []model.CanonicalRow{
		row("REWE MARKT", "-", 42.50),
		row("NETFLIX", "-", 12.99),
		row("BOOM MERCHANT", "-", 5),
		row("BOOM AGAIN", "-", 7),
	}

	results, _, err := engine.Categorize(context.Background(), "u1", rows)
	require.NoError(t, err)
	require.Len(t, results, 4)

	// First batch succeeds normally.
	assert.Equal(t, model.CategoryGroceries, results[0].Category)
	assert.Equal(t, model.CategorySubscriptions, results[1].Category)

	// Only the failing batch degrades to the default.
	for _, res := range results[2:] {
		assert.Equal(t, model.CategoryOther, res.Category)
		assert.Equal(t, "Unknown", res.Subcategory)
		assert.Equal(t, "Unknown", res.MerchantName)
		assert.Zero(t, res.Confidence)
	}
}

func TestCategorizeBalanceCountedNotPersisted(t *testing.T) {
	classifier := &scriptedClassifier{categories: map[string]string{
		"SALDO PER 31.03": "Balance",
		"REWE MARKT":      "Groceries",
	}}
	engine := newTestEngine(classifier, newMemEntryStore(), 50)

	results, stats, err := engine.Categorize(context.Background(), "u1", []model.CanonicalRow{
		row("SALDO PER 31.03", "+", 1500),
		row("REWE MARKT", "-", 42.50),
	})
	require.NoError(t, err)

	assert.True(t, results[0].ExcludeFromPersistence)
	assert.False(t, results[1].ExcludeFromPersistence)
	assert.Equal(t, 1, stats.BalanceEntries)
	// Balance snapshots never contribute to totals.
	assert.Zero(t, stats.TotalIncome)
	assert.Equal(t, 42.50, stats.TotalSpend)
}

func TestCategorizeCachePartition(t *testing.T) {
	classifier := &scriptedClassifier{categories: map[string]string{
		"REWE MARKT": "Groceries",
	}}
	store := newMemEntryStore()
	engine := newTestEngine(classifier, store, 50)
	ctx := context.Background()

	rows := []model.CanonicalRow{row("REWE MARKT", "-", 42.50)}

	results, stats, err := engine.Categorize(ctx, "u1", rows)
	require.NoError(t, err)
	assert.False(t, results[0].FromCache)
	assert.Zero(t, stats.CacheHits)
	require.Equal(t, 1, classifier.calls)

	// Second run answers from the cache without touching the oracle.
	results, stats, err = engine.Categorize(ctx, "u1", rows)
	require.NoError(t, err)
	assert.True(t, results[0].FromCache)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, model.CategoryGroceries, results[0].Category)
	assert.Equal(t, 1, classifier.calls, "cache hit must not call the oracle")

	// A different user misses.
	results, _, err = engine.Categorize(ctx, "u2", rows)
	require.NoError(t, err)
	assert.False(t, results[0].FromCache)
}

func TestCategorizeDefaultsNotCached(t *testing.T) {
	classifier := &scriptedClassifier{}
	store := newMemEntryStore()
	engine := newTestEngine(classifier, store, 50)
	ctx := context.Background()

	_, _, err := engine.Categorize(ctx, "u1", []model.CanonicalRow{row("BOOM", "-", 5)})
	require.NoError(t, err)

	entries, err := store.ListMerchantCacheEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries, "zero-confidence defaults must not enter the cache")
}

func TestCategorizeResultsInInputOrder(t *testing.T) {
	classifier := &scriptedClassifier{categories: map[string]string{}}
	engine := newTestEngine(classifier, newMemEntryStore(), 3)

	var rows []model.CanonicalRow
	for i := 0; i < 20; i++ {
		rows = append(rows, row(fmt.Sprintf("MERCHANT %03d", i), "-", float64(i)))
	}
	results, _, err := engine.Categorize(context.Background(), "u1", rows)
	require.NoError(t, err)
	require.Len(t, results, 20)
	for i, res := range results {
		assert.Equal(t, rows[i].Description, res.Row.Description)
		assert.Equal(t, rows[i].Description, res.MerchantName)
	}
}
