package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/castlemilk/bankfeed/backend/internal/categorize"
	"github.com/castlemilk/bankfeed/backend/internal/crypto"
	"github.com/castlemilk/bankfeed/backend/internal/model"
	"github.com/castlemilk/bankfeed/backend/internal/notify"
	"github.com/castlemilk/bankfeed/backend/internal/oracle"
	"github.com/castlemilk/bankfeed/backend/internal/store"
	"github.com/castlemilk/bankfeed/backend/internal/transform"
)

// Orchestrator drives one Upload through the state machine
// pending → detecting_separator → detecting_mapping → processing →
// completed|failed. Progress is tracked at raw-line granularity, so a
// crashed or aborted run can be resumed by calling Process again: the
// stored separator and mapping are reused and only unprocessed lines
// are fetched.
type Orchestrator struct {
	store           store.Store
	classifier      oracle.Classifier
	cipher          crypto.Encryptor
	notifier        notify.Notifier
	engine          *categorize.Engine
	batchSize       int
	defaultCurrency string
	logger          zerolog.Logger
}

// NewOrchestrator wires the pipeline. batchSize falls back to 50 when
// non-positive.
func NewOrchestrator(st store.Store, classifier oracle.Classifier, cipher crypto.Encryptor, notifier notify.Notifier, engine *categorize.Engine, batchSize int, defaultCurrency string, logger zerolog.Logger) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 50
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Orchestrator{
		store:           st,
		classifier:      classifier,
		cipher:          cipher,
		notifier:        notifier,
		engine:          engine,
		batchSize:       batchSize,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// Process runs the Upload to a terminal state. A completed Upload is a
// no-op; a failed one is re-entered from its last durable position.
func (o *Orchestrator) Process(ctx context.Context, uploadID string) error {
	upload, err := o.store.GetUpload(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("get upload: %w", err)
	}
	if upload.Status == model.UploadStatusCompleted {
		return nil
	}
	upload.EncryptedError = ""

	o.notifier.Notify(upload.UserID, notify.EventUploadStarted, map[string]any{
		"uploadId":   upload.ID,
		"totalLines": upload.TotalLines,
	})

	if upload.TotalLines == 0 {
		return o.fail(ctx, upload, fmt.Errorf("empty file"))
	}

	if err := o.ensureSeparator(ctx, upload); err != nil {
		return o.fail(ctx, upload, err)
	}
	mapping, err := o.ensureMapping(ctx, upload)
	if err != nil {
		return o.fail(ctx, upload, err)
	}
	if err := o.processLines(ctx, upload, mapping); err != nil {
		return o.fail(ctx, upload, err)
	}

	upload.Status = model.UploadStatusCompleted
	if err := o.updateUpload(ctx, upload); err != nil {
		return err
	}
	o.notifier.Notify(upload.UserID, notify.EventUploadCompleted, map[string]any{
		"uploadId":          upload.ID,
		"processedLines":    upload.ProcessedLines,
		"successfulLines":   upload.SuccessfulLines,
		"failedLines":       upload.FailedLines,
		"skippedDuplicates": upload.SkippedDuplicates,
	})
	o.logger.Info().
		Str("upload_id", upload.ID).
		Int("successful", upload.SuccessfulLines).
		Int("failed", upload.FailedLines).
		Int("duplicates", upload.SkippedDuplicates).
		Msg("upload completed")
	return nil
}

// ensureSeparator detects and persists the field separator, unless a
// previous run already stored one.
func (o *Orchestrator) ensureSeparator(ctx context.Context, upload *model.Upload) error {
	if upload.Separator != "" {
		return nil
	}

	upload.Status = model.UploadStatusDetectingSeparator
	if err := o.updateUpload(ctx, upload); err != nil {
		return err
	}

	lines, err := o.store.NextUnprocessedLines(ctx, upload.ID, 5)
	if err != nil {
		return fmt.Errorf("fetch sample lines: %w", err)
	}
	if len(lines) == 0 {
		return fmt.Errorf("empty file")
	}

	samples := make([]string, 0, len(lines))
	for _, line := range lines {
		plaintext, err := o.cipher.Decrypt(line.EncryptedData)
		if err != nil {
			return fmt.Errorf("decrypt sample line %d: %w", line.LineNumber, err)
		}
		samples = append(samples, plaintext)
	}

	result, err := transform.DetectSeparator(ctx, o.classifier, samples)
	if err != nil {
		return err
	}

	upload.Separator = result.Separator
	if err := o.updateUpload(ctx, upload); err != nil {
		return err
	}
	o.notifier.Notify(upload.UserID, notify.EventSeparatorDetected, map[string]any{
		"uploadId":   upload.ID,
		"separator":  result.Separator,
		"confidence": result.Confidence,
	})
	return nil
}

// ensureMapping detects and persists the field mapping (encrypted),
// unless a previous run already stored one. The header line is marked
// processed once the mapping is known.
func (o *Orchestrator) ensureMapping(ctx context.Context, upload *model.Upload) (*oracle.FieldMapping, error) {
	if upload.EncryptedMappings != "" {
		plaintext, err := o.cipher.Decrypt(upload.EncryptedMappings)
		if err != nil {
			return nil, fmt.Errorf("decrypt stored mapping: %w", err)
		}
		var mapping oracle.FieldMapping
		if err := json.Unmarshal([]byte(plaintext), &mapping); err != nil {
			return nil, fmt.Errorf("parse stored mapping: %w", err)
		}
		return &mapping, nil
	}

	upload.Status = model.UploadStatusDetectingMapping
	if err := o.updateUpload(ctx, upload); err != nil {
		return nil, err
	}

	lines, err := o.store.NextUnprocessedLines(ctx, upload.ID, 2)
	if err != nil {
		return nil, fmt.Errorf("fetch header lines: %w", err)
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("file has no data rows")
	}

	header, err := o.cipher.Decrypt(lines[0].EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("decrypt header: %w", err)
	}
	sample, err := o.cipher.Decrypt(lines[1].EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("decrypt sample row: %w", err)
	}

	mapping, err := transform.DetectMapping(ctx, o.classifier, header, sample)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(mapping)
	if err != nil {
		return nil, fmt.Errorf("encode mapping: %w", err)
	}
	encrypted, err := o.cipher.Encrypt(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("encrypt mapping: %w", err)
	}
	upload.EncryptedMappings = encrypted
	if err := o.updateUpload(ctx, upload); err != nil {
		return nil, err
	}

	// The header is consumed by mapping detection, never processed as
	// a transaction.
	if err := o.store.MarkLineProcessed(ctx, lines[0].ID, ""); err != nil {
		return nil, fmt.Errorf("mark header processed: %w", err)
	}
	upload.ProcessedLines++

	o.notifier.Notify(upload.UserID, notify.EventMappingDetected, map[string]any{
		"uploadId":   upload.ID,
		"confidence": mapping.Confidence,
	})
	return mapping, nil
}

// processLines is the batch loop: fetch unprocessed lines, transform,
// categorize, persist, mark, repeat until none remain. Per-line
// failures are recorded on the line and counted; they never abort the
// Upload.
func (o *Orchestrator) processLines(ctx context.Context, upload *model.Upload, mapping *oracle.FieldMapping) error {
	upload.Status = model.UploadStatusProcessing
	if err := o.updateUpload(ctx, upload); err != nil {
		return err
	}

	headerFields, err := o.headerFields(ctx, upload)
	if err != nil {
		return err
	}
	transformer := transform.NewRowTransformer(*mapping, o.defaultCurrency)

	for {
		lines, err := o.store.NextUnprocessedLines(ctx, upload.ID, o.batchSize)
		if err != nil {
			return fmt.Errorf("fetch unprocessed lines: %w", err)
		}
		if len(lines) == 0 {
			return nil
		}

		if err := o.processBatch(ctx, upload, lines, headerFields, transformer); err != nil {
			return err
		}
		if err := o.updateUpload(ctx, upload); err != nil {
			return err
		}
		o.notifier.Notify(upload.UserID, notify.EventProcessingProgress, map[string]any{
			"uploadId":          upload.ID,
			"processedLines":    upload.ProcessedLines,
			"totalLines":        upload.TotalLines,
			"failedLines":       upload.FailedLines,
			"skippedDuplicates": upload.SkippedDuplicates,
		})
	}
}

func (o *Orchestrator) headerFields(ctx context.Context, upload *model.Upload) ([]string, error) {
	header, err := o.store.GetRawLineByNumber(ctx, upload.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch header line: %w", err)
	}
	plaintext, err := o.cipher.Decrypt(header.EncryptedData)
	if err != nil {
		return nil, fmt.Errorf("decrypt header: %w", err)
	}
	fields, err := transform.SplitFields(plaintext, upload.Separator)
	if err != nil {
		return nil, fmt.Errorf("split header: %w", err)
	}
	return fields, nil
}

func (o *Orchestrator) processBatch(ctx context.Context, upload *model.Upload, lines []*model.RawLine, headerFields []string, transformer *transform.RowTransformer) error {
	var rows []model.CanonicalRow
	var rowLines []*model.RawLine

	for _, line := range lines {
		if line.LineNumber == 0 {
			// Header survived a crash between mapping detection and
			// its processed mark.
			if err := o.store.MarkLineProcessed(ctx, line.ID, ""); err != nil {
				return fmt.Errorf("mark header processed: %w", err)
			}
			upload.ProcessedLines++
			continue
		}

		row, parseErr := o.parseLine(line, upload.Separator, headerFields, transformer)
		if parseErr != nil {
			if err := o.markLineFailed(ctx, upload, line, parseErr); err != nil {
				return err
			}
			continue
		}
		rows = append(rows, row)
		rowLines = append(rowLines, line)
	}

	if len(rows) == 0 {
		return nil
	}

	results, _, err := o.engine.Categorize(ctx, upload.UserID, rows)
	if err != nil {
		return fmt.Errorf("categorize batch: %w", err)
	}

	for i, res := range results {
		line := rowLines[i]
		if !res.ExcludeFromPersistence {
			inserted, err := o.persistTransaction(ctx, upload, res)
			if err != nil {
				if markErr := o.markLineFailed(ctx, upload, line, err); markErr != nil {
					return markErr
				}
				continue
			}
			if !inserted {
				upload.SkippedDuplicates++
			}
		}
		if err := o.store.MarkLineProcessed(ctx, line.ID, ""); err != nil {
			return fmt.Errorf("mark line processed: %w", err)
		}
		upload.ProcessedLines++
		upload.SuccessfulLines++
	}
	return nil
}

// parseLine decrypts and transforms one raw line. A row that yields no
// date or no amount is a per-line failure.
func (o *Orchestrator) parseLine(line *model.RawLine, separator string, headerFields []string, transformer *transform.RowTransformer) (model.CanonicalRow, error) {
	plaintext, err := o.cipher.Decrypt(line.EncryptedData)
	if err != nil {
		return model.CanonicalRow{}, fmt.Errorf("decrypt line: %w", err)
	}
	fields, err := transform.SplitFields(plaintext, separator)
	if err != nil {
		return model.CanonicalRow{}, err
	}
	row := transformer.Transform(transform.RowMap(headerFields, fields))
	if row.Date == "" {
		return model.CanonicalRow{}, fmt.Errorf("no date in line %d", line.LineNumber)
	}
	if row.Kind == "" {
		return model.CanonicalRow{}, fmt.Errorf("no amount in line %d", line.LineNumber)
	}
	return row, nil
}

func (o *Orchestrator) markLineFailed(ctx context.Context, upload *model.Upload, line *model.RawLine, cause error) error {
	o.logger.Warn().
		Str("upload_id", upload.ID).
		Int("line", line.LineNumber).
		Err(cause).
		Msg("line failed")

	encrypted, err := o.cipher.Encrypt(cause.Error())
	if err != nil {
		return fmt.Errorf("encrypt line error: %w", err)
	}
	if err := o.store.MarkLineProcessed(ctx, line.ID, encrypted); err != nil {
		return fmt.Errorf("mark line failed: %w", err)
	}
	upload.ProcessedLines++
	upload.FailedLines++
	return nil
}

func (o *Orchestrator) persistTransaction(ctx context.Context, upload *model.Upload, res categorize.Result) (bool, error) {
	row := res.Row
	payload, err := json.Marshal(model.TransactionPayload{
		Description:  row.Description,
		MerchantName: res.MerchantName,
		MerchantType: res.MerchantType,
		Subcategory:  res.Subcategory,
		Code:         row.Code,
	})
	if err != nil {
		return false, fmt.Errorf("encode payload: %w", err)
	}
	encrypted, err := o.cipher.Encrypt(string(payload))
	if err != nil {
		return false, fmt.Errorf("encrypt payload: %w", err)
	}

	month, year := 0, 0
	if t, err := time.Parse("2006-01-02", row.Date); err == nil {
		month, year = int(t.Month()), t.Year()
	}

	return o.store.UpsertTransaction(ctx, &model.Transaction{
		ID:               uuid.NewString(),
		UserID:           upload.UserID,
		AccountID:        upload.AccountID,
		UploadID:         upload.ID,
		Date:             row.Date,
		Month:            month,
		Year:             year,
		Kind:             row.Kind,
		Amount:           row.Amount,
		Currency:         row.Currency,
		Category:         res.Category,
		EncryptedPayload: encrypted,
		Confidence:       res.Confidence,
		Hash:             TransactionHash(upload.UserID, row.Date, row.Amount, row.Currency, row.Kind, row.Description),
		CreatedAt:        time.Now(),
	})
}

// fail moves the Upload to the failed state with an encrypted error
// message. Unprocessed lines are left untouched so the Upload can be
// resumed.
func (o *Orchestrator) fail(ctx context.Context, upload *model.Upload, cause error) error {
	o.logger.Error().Str("upload_id", upload.ID).Err(cause).Msg("upload failed")

	encrypted, encErr := o.cipher.Encrypt(cause.Error())
	if encErr == nil {
		upload.EncryptedError = encrypted
	}
	upload.Status = model.UploadStatusFailed
	if err := o.updateUpload(ctx, upload); err != nil {
		o.logger.Error().Err(err).Msg("persisting failed state")
	}
	o.notifier.Notify(upload.UserID, notify.EventUploadFailed, map[string]any{
		"uploadId": upload.ID,
		"error":    cause.Error(),
		"canRetry": true,
	})
	return cause
}

func (o *Orchestrator) updateUpload(ctx context.Context, upload *model.Upload) error {
	upload.UpdatedAt = time.Now()
	if err := o.store.UpdateUpload(ctx, upload); err != nil {
		return fmt.Errorf("update upload: %w", err)
	}
	return nil
}
