package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/castlemilk/bankfeed/backend/internal/model"
)

const (
	uploadsCollection       = "uploads"
	rawLinesCollection      = "rawLines"
	transactionsCollection  = "transactions"
	merchantCacheCollection = "merchantCache"
)

// FirestoreStore implements the Store interface using Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a new Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) Store {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) CreateUpload(ctx context.Context, upload *model.Upload) error {
	_, err := s.client.Collection(uploadsCollection).Doc(upload.ID).Set(ctx, upload)
	return err
}

func (s *FirestoreStore) GetUpload(ctx context.Context, uploadID string) (*model.Upload, error) {
	doc, err := s.client.Collection(uploadsCollection).Doc(uploadID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload: %w", err)
	}
	var upload model.Upload
	if err := doc.DataTo(&upload); err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}
	return &upload, nil
}

func (s *FirestoreStore) UpdateUpload(ctx context.Context, upload *model.Upload) error {
	_, err := s.client.Collection(uploadsCollection).Doc(upload.ID).Set(ctx, upload)
	return err
}

func (s *FirestoreStore) ListUploads(ctx context.Context, userID string) ([]*model.Upload, error) {
	iter := s.client.Collection(uploadsCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []*model.Upload
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list uploads: %w", err)
		}
		var upload model.Upload
		if err := doc.DataTo(&upload); err != nil {
			return nil, fmt.Errorf("parse upload: %w", err)
		}
		out = append(out, &upload)
	}
	return out, nil
}

// BulkInsertRawLines writes lines in batches capped at the Firestore
// write-batch limit.
func (s *FirestoreStore) BulkInsertRawLines(ctx context.Context, lines []*model.RawLine) error {
	for start := 0; start < len(lines); start += bulkChunkSize {
		end := min(start+bulkChunkSize, len(lines))
		batch := s.client.Batch()
		for _, line := range lines[start:end] {
			batch.Set(s.client.Collection(rawLinesCollection).Doc(line.ID), line)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return fmt.Errorf("bulk insert raw lines: %w", err)
		}
	}
	return nil
}

func (s *FirestoreStore) GetRawLineByNumber(ctx context.Context, uploadID string, lineNumber int) (*model.RawLine, error) {
	iter := s.client.Collection(rawLinesCollection).
		Where("uploadId", "==", uploadID).
		Where("lineNumber", "==", lineNumber).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get raw line: %w", err)
	}
	var line model.RawLine
	if err := doc.DataTo(&line); err != nil {
		return nil, fmt.Errorf("parse raw line: %w", err)
	}
	return &line, nil
}

func (s *FirestoreStore) NextUnprocessedLines(ctx context.Context, uploadID string, n int) ([]*model.RawLine, error) {
	query := s.client.Collection(rawLinesCollection).
		Where("uploadId", "==", uploadID).
		Where("processed", "==", false).
		OrderBy("lineNumber", firestore.Asc)
	if n > 0 {
		query = query.Limit(n)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []*model.RawLine
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("next unprocessed lines: %w", err)
		}
		var line model.RawLine
		if err := doc.DataTo(&line); err != nil {
			return nil, fmt.Errorf("parse raw line: %w", err)
		}
		out = append(out, &line)
	}
	return out, nil
}

func (s *FirestoreStore) MarkLineProcessed(ctx context.Context, lineID string, encryptedError string) error {
	_, err := s.client.Collection(rawLinesCollection).Doc(lineID).Update(ctx, []firestore.Update{
		{Path: "processed", Value: true},
		{Path: "encryptedError", Value: encryptedError},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (s *FirestoreStore) CountUnprocessedLines(ctx context.Context, uploadID string) (int, error) {
	iter := s.client.Collection(rawLinesCollection).
		Where("uploadId", "==", uploadID).
		Where("processed", "==", false).
		Select().
		Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("count unprocessed lines: %w", err)
		}
		count++
	}
	return count, nil
}

// UpsertTransaction inserts unless a document for (userID, hash)
// already exists. The composite doc ID makes the dedup check and the
// insert a single atomic create.
func (s *FirestoreStore) UpsertTransaction(ctx context.Context, txn *model.Transaction) (bool, error) {
	docID := txn.UserID + "_" + txn.Hash
	_, err := s.client.Collection(transactionsCollection).Doc(docID).Create(ctx, txn)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("upsert transaction: %w", err)
	}
	return true, nil
}

func (s *FirestoreStore) ListTransactionsByUpload(ctx context.Context, uploadID string) ([]*model.Transaction, error) {
	iter := s.client.Collection(transactionsCollection).
		Where("uploadId", "==", uploadID).
		OrderBy("date", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var out []*model.Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		var txn model.Transaction
		if err := doc.DataTo(&txn); err != nil {
			return nil, fmt.Errorf("parse transaction: %w", err)
		}
		out = append(out, &txn)
	}
	return out, nil
}

func (s *FirestoreStore) GetMerchantCacheEntry(ctx context.Context, userID, key string) (*model.MerchantCacheEntry, error) {
	doc, err := s.client.Collection(merchantCacheCollection).Doc(userID + "_" + key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get merchant cache entry: %w", err)
	}
	var entry model.MerchantCacheEntry
	if err := doc.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("parse merchant cache entry: %w", err)
	}
	return &entry, nil
}

func (s *FirestoreStore) UpsertMerchantCacheEntry(ctx context.Context, entry *model.MerchantCacheEntry) error {
	_, err := s.client.Collection(merchantCacheCollection).Doc(entry.UserID+"_"+entry.Key).Set(ctx, entry)
	return err
}

func (s *FirestoreStore) ListMerchantCacheEntries(ctx context.Context, userID string) ([]*model.MerchantCacheEntry, error) {
	iter := s.client.Collection(merchantCacheCollection).
		Where("userId", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var out []*model.MerchantCacheEntry
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list merchant cache entries: %w", err)
		}
		var entry model.MerchantCacheEntry
		if err := doc.DataTo(&entry); err != nil {
			return nil, fmt.Errorf("parse merchant cache entry: %w", err)
		}
		out = append(out, &entry)
	}
	return out, nil
}
