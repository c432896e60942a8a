package merchant

import (
	"context"
	"fmt"
	"time"

	"github.com/castlemilk/bankfeed/backend/internal/model"
)

// DefaultSimilarityThreshold is the minimum score FindSimilar accepts.
const DefaultSimilarityThreshold = 0.75

// EntryStore is the slice of the durable store the cache needs.
type EntryStore interface {
	GetMerchantCacheEntry(ctx context.Context, userID, key string) (*model.MerchantCacheEntry, error)
	UpsertMerchantCacheEntry(ctx context.Context, entry *model.MerchantCacheEntry) error
	ListMerchantCacheEntries(ctx context.Context, userID string) ([]*model.MerchantCacheEntry, error)
}

// Resolution is a categorization outcome being written to the cache.
type Resolution struct {
	Category     model.Category
	Subcategory  string
	MerchantName string
	MerchantType string
	Confidence   float64
}

// Cache is the per-user merchant cache. Entries are advisory: writers
// race last-writer-wins on a key, which is acceptable because a stale
// entry only costs one extra oracle resolution.
type Cache struct {
	store  EntryStore
	userID string
}

// NewCache scopes a cache to one user.
func NewCache(store EntryStore, userID string) *Cache {
	return &Cache{store: store, userID: userID}
}

// Lookup performs the exact-key lookup for a description and bumps the
// usage counter on a hit. A miss returns (nil, nil).
func (c *Cache) Lookup(ctx context.Context, description string) (*model.MerchantCacheEntry, error) {
	key := CacheKey(description)
	entry, err := c.store.GetMerchantCacheEntry(ctx, c.userID, key)
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	if entry == nil {
		return nil, nil
	}

	entry.UsageCount++
	entry.LastUsed = time.Now()
	if err := c.store.UpsertMerchantCacheEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("bump cache entry: %w", err)
	}
	return entry, nil
}

// Put records an oracle resolution under the description-derived key.
// Cache writes never key on the merchant name: two transactions that
// share a merchant but differ materially in description must not
// inherit each other's categorization.
func (c *Cache) Put(ctx context.Context, description string, res Resolution) error {
	key := CacheKey(description)
	entry, err := c.store.GetMerchantCacheEntry(ctx, c.userID, key)
	if err != nil {
		return fmt.Errorf("get cache entry: %w", err)
	}

	usage := 1
	if entry != nil {
		usage = entry.UsageCount + 1
	}
	return c.store.UpsertMerchantCacheEntry(ctx, &model.MerchantCacheEntry{
		Key:          key,
		UserID:       c.userID,
		Category:     res.Category,
		Subcategory:  res.Subcategory,
		MerchantName: res.MerchantName,
		MerchantType: res.MerchantType,
		Confidence:   res.Confidence,
		UsageCount:   usage,
		LastUsed:     time.Now(),
	})
}

// FindSimilar scans the user's cached merchant names for the closest
// fuzzy match at or above threshold (DefaultSimilarityThreshold when
// <= 0). It is an available capability, deliberately not called by the
// categorization engine, which relies on exact keys only.
func (c *Cache) FindSimilar(ctx context.Context, description string, threshold float64) (*model.MerchantCacheEntry, float64, error) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	entries, err := c.store.ListMerchantCacheEntries(ctx, c.userID)
	if err != nil {
		return nil, 0, fmt.Errorf("list cache entries: %w", err)
	}

	var best *model.MerchantCacheEntry
	bestScore := 0.0
	for _, entry := range entries {
		score := Similarity(description, entry.MerchantName)
		if score > bestScore {
			best = entry
			bestScore = score
		}
	}
	if best == nil || bestScore < threshold {
		return nil, 0, nil
	}
	return best, bestScore, nil
}
