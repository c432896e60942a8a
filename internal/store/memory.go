package store

import (
	"context"
	"sort"
	"sync"

	"github.com/castlemilk/bankfeed/backend/internal/model"
)

// MemoryStore implements Store with in-memory maps. It is the store of
// choice for tests and local single-process runs.
type MemoryStore struct {
	mu sync.RWMutex

	uploads      map[string]*model.Upload
	rawLines     map[string]*model.RawLine
	transactions map[string]*model.Transaction        // userID/hash
	cacheEntries map[string]*model.MerchantCacheEntry // userID/key
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		uploads:      make(map[string]*model.Upload),
		rawLines:     make(map[string]*model.RawLine),
		transactions: make(map[string]*model.Transaction),
		cacheEntries: make(map[string]*model.MerchantCacheEntry),
	}
}

func (s *MemoryStore) CreateUpload(_ context.Context, upload *model.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *upload
	s.uploads[upload.ID] = &copied
	return nil
}

func (s *MemoryStore) GetUpload(_ context.Context, uploadID string) (*model.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	upload, ok := s.uploads[uploadID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *upload
	return &copied, nil
}

func (s *MemoryStore) UpdateUpload(_ context.Context, upload *model.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploads[upload.ID]; !ok {
		return ErrNotFound
	}
	copied := *upload
	s.uploads[upload.ID] = &copied
	return nil
}

func (s *MemoryStore) ListUploads(_ context.Context, userID string) ([]*model.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Upload
	for _, upload := range s.uploads {
		if upload.UserID == userID {
			copied := *upload
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) BulkInsertRawLines(_ context.Context, lines []*model.RawLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, line := range lines {
		copied := *line
		s.rawLines[line.ID] = &copied
	}
	return nil
}

func (s *MemoryStore) GetRawLineByNumber(_ context.Context, uploadID string, lineNumber int) (*model.RawLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, line := range s.rawLines {
		if line.UploadID == uploadID && line.LineNumber == lineNumber {
			copied := *line
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) NextUnprocessedLines(_ context.Context, uploadID string, n int) ([]*model.RawLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.RawLine
	for _, line := range s.rawLines {
		if line.UploadID == uploadID && !line.Processed {
			copied := *line
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LineNumber < out[j].LineNumber })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) MarkLineProcessed(_ context.Context, lineID string, encryptedError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.rawLines[lineID]
	if !ok {
		return ErrNotFound
	}
	line.Processed = true
	line.EncryptedError = encryptedError
	return nil
}

func (s *MemoryStore) CountUnprocessedLines(_ context.Context, uploadID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, line := range s.rawLines {
		if line.UploadID == uploadID && !line.Processed {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) UpsertTransaction(_ context.Context, txn *model.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txn.UserID + "/" + txn.Hash
	if _, ok := s.transactions[key]; ok {
		return false, nil
	}
	copied := *txn
	s.transactions[key] = &copied
	return true, nil
}

func (s *MemoryStore) ListTransactionsByUpload(_ context.Context, uploadID string) ([]*model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Transaction
	for _, txn := range s.transactions {
		if txn.UploadID == uploadID {
			copied := *txn
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *MemoryStore) GetMerchantCacheEntry(_ context.Context, userID, key string) (*model.MerchantCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cacheEntries[userID+"/"+key]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (s *MemoryStore) UpsertMerchantCacheEntry(_ context.Context, entry *model.MerchantCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *entry
	s.cacheEntries[entry.UserID+"/"+entry.Key] = &copied
	return nil
}

func (s *MemoryStore) ListMerchantCacheEntries(_ context.Context, userID string) ([]*model.MerchantCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.MerchantCacheEntry
	for _, entry := range s.cacheEntries {
		if entry.UserID == userID {
			copied := *entry
			out = append(out, &copied)
		}
	}
	return out, nil
}
