// Package store provides the durable persistence layer behind the
// ingestion pipeline, with an in-memory implementation for local
// development and tests and a Firestore implementation for production.
package store

import (
	"context"
	"errors"

	"github.com/castlemilk/bankfeed/backend/internal/model"
)

// ErrNotFound is returned by point lookups for missing documents.
var ErrNotFound = errors.New("not found")

// bulkChunkSize caps the number of writes per bulk commit.
const bulkChunkSize = 500

// Store defines the interface for all database operations used by the
// ingestion pipeline.
type Store interface {
	// Upload operations
	CreateUpload(ctx context.Context, upload *model.Upload) error
	GetUpload(ctx context.Context, uploadID string) (*model.Upload, error)
	UpdateUpload(ctx context.Context, upload *model.Upload) error
	ListUploads(ctx context.Context, userID string) ([]*model.Upload, error)

	// Raw line operations. Insertion is chunked; NextUnprocessedLines
	// returns lines ordered by line number so a resumed run picks up
	// exactly where the previous one stopped.
	BulkInsertRawLines(ctx context.Context, lines []*model.RawLine) error
	GetRawLineByNumber(ctx context.Context, uploadID string, lineNumber int) (*model.RawLine, error)
	NextUnprocessedLines(ctx context.Context, uploadID string, n int) ([]*model.RawLine, error)
	MarkLineProcessed(ctx context.Context, lineID string, encryptedError string) error
	CountUnprocessedLines(ctx context.Context, uploadID string) (int, error)

	// Transaction operations. UpsertTransaction is keyed by
	// (userID, hash): a colliding insert is a silent no-op reported as
	// inserted=false, never an error.
	UpsertTransaction(ctx context.Context, txn *model.Transaction) (inserted bool, err error)
	ListTransactionsByUpload(ctx context.Context, uploadID string) ([]*model.Transaction, error)

	// Merchant cache operations, scoped per user. A missing entry is
	// (nil, nil), not an error.
	GetMerchantCacheEntry(ctx context.Context, userID, key string) (*model.MerchantCacheEntry, error)
	UpsertMerchantCacheEntry(ctx context.Context, entry *model.MerchantCacheEntry) error
	ListMerchantCacheEntries(ctx context.Context, userID string) ([]*model.MerchantCacheEntry, error)
}
