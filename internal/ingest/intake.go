package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/castlemilk/bankfeed/backend/internal/crypto"
	"github.com/castlemilk/bankfeed/backend/internal/model"
	"github.com/castlemilk/bankfeed/backend/internal/store"
)

// IngestFile reads a bank-export file, stores each physical line
// encrypted, and creates the Upload in pending state. Line 0 is the
// header. Blank lines are dropped.
func IngestFile(ctx context.Context, st store.Store, cipher crypto.Encryptor, userID, accountID, filename string, r io.Reader) (*model.Upload, error) {
	encryptedName, err := cipher.Encrypt(filename)
	if err != nil {
		return nil, fmt.Errorf("encrypt filename: %w", err)
	}

	uploadID := uuid.NewString()
	now := time.Now()

	var lines []*model.RawLine
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		encrypted, err := cipher.Encrypt(text)
		if err != nil {
			return nil, fmt.Errorf("encrypt line %d: %w", lineNumber, err)
		}
		lines = append(lines, &model.RawLine{
			ID:            uuid.NewString(),
			UploadID:      uploadID,
			LineNumber:    lineNumber,
			EncryptedData: encrypted,
			CreatedAt:     now,
		})
		lineNumber++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	upload := &model.Upload{
		ID:                uploadID,
		UserID:            userID,
		AccountID:         accountID,
		EncryptedFilename: encryptedName,
		Status:            model.UploadStatusPending,
		TotalLines:        len(lines),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := st.CreateUpload(ctx, upload); err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	if err := st.BulkInsertRawLines(ctx, lines); err != nil {
		return nil, fmt.Errorf("store raw lines: %w", err)
	}
	return upload, nil
}
