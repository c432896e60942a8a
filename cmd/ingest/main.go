// Command ingest runs the full pipeline over a local CSV file using
// the in-memory store and prints a summary. Useful for trying a new
// bank export without a server or a Firestore project.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/castlemilk/bankfeed/backend/internal/categorize"
	"github.com/castlemilk/bankfeed/backend/internal/config"
	"github.com/castlemilk/bankfeed/backend/internal/crypto"
	"github.com/castlemilk/bankfeed/backend/internal/ingest"
	"github.com/castlemilk/bankfeed/backend/internal/logger"
	"github.com/castlemilk/bankfeed/backend/internal/model"
	"github.com/castlemilk/bankfeed/backend/internal/notify"
	"github.com/castlemilk/bankfeed/backend/internal/oracle"
	"github.com/castlemilk/bankfeed/backend/internal/store"
)

func main() {
	userID := flag.String("user", "local", "user ID to ingest as")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ingest [-user ID] <file.csv>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	_ = godotenv.Load()
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("BANKFEED_GEMINI_API_KEY is required")
	}

	cipher, err := crypto.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing blob cipher")
	}

	file, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Msg("opening file")
	}
	defer file.Close()

	st := store.NewMemoryStore()
	classifier := oracle.NewGeminiClient(cfg.GeminiAPIKey, cfg.Models, log).
		WithBaseURL(cfg.GeminiBaseURL)
	engine := categorize.NewEngine(classifier, st, cfg.BatchSize, cfg.ParallelBatches, log)
	orchestrator := ingest.NewOrchestrator(st, classifier, cipher, notify.Nop{}, engine, cfg.BatchSize, cfg.DefaultCurrency, log)

	ctx := context.Background()
	upload, err := ingest.IngestFile(ctx, st, cipher, *userID, "", path, file)
	if err != nil {
		log.Fatal().Err(err).Msg("storing file")
	}
	if err := orchestrator.Process(ctx, upload.ID); err != nil {
		log.Fatal().Err(err).Msg("processing upload")
	}

	final, err := st.GetUpload(ctx, upload.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("fetching upload")
	}
	txns, err := st.ListTransactionsByUpload(ctx, upload.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("listing transactions")
	}

	fmt.Printf("upload %s: %s\n", final.ID, final.Status)
	fmt.Printf("  lines: %d total, %d ok, %d failed, %d duplicates\n",
		final.TotalLines, final.SuccessfulLines, final.FailedLines, final.SkippedDuplicates)
	fmt.Printf("  separator: %q\n", final.Separator)
	fmt.Println("  transactions:")
	for _, txn := range txns {
		var payload model.TransactionPayload
		description := cipher.DecryptLenient(txn.EncryptedPayload)
		if err := decodePayload(description, &payload); err == nil {
			description = payload.Description
		}
		fmt.Printf("    %s  %s%8.2f %s  %-18s  %s\n",
			txn.Date, txn.Kind, txn.Amount, txn.Currency, txn.Category, description)
	}
}

func decodePayload(raw string, payload *model.TransactionPayload) error {
	return json.Unmarshal([]byte(raw), payload)
}
