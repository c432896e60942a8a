package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/castlemilk/bankfeed/backend/internal/categorize"
	"github.com/castlemilk/bankfeed/backend/internal/config"
	"github.com/castlemilk/bankfeed/backend/internal/crypto"
	"github.com/castlemilk/bankfeed/backend/internal/ingest"
	"github.com/castlemilk/bankfeed/backend/internal/logger"
	"github.com/castlemilk/bankfeed/backend/internal/notify"
	"github.com/castlemilk/bankfeed/backend/internal/oracle"
	"github.com/castlemilk/bankfeed/backend/internal/store"
)

func main() {
	// Optional .env for local development; ignore if absent.
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	ctx := context.Background()

	var storeImpl store.Store
	if cfg.UseMemoryStore {
		log.Info().Msg("using in-memory store for local development")
		storeImpl = store.NewMemoryStore()
	} else {
		if cfg.FirestoreProject == "" {
			log.Fatal().Msg("BANKFEED_FIRESTORE_PROJECT is required without the memory store")
		}
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirestoreProject)
		if err != nil {
			log.Fatal().Err(err).Msg("creating Firestore client")
		}
		defer firestoreClient.Close()
		storeImpl = store.NewFirestoreStore(firestoreClient)
	}

	cipher, err := crypto.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("initializing blob cipher")
	}

	classifier := oracle.NewGeminiClient(cfg.GeminiAPIKey, cfg.Models, log).
		WithBaseURL(cfg.GeminiBaseURL)
	hub := notify.NewHub()
	engine := categorize.NewEngine(classifier, storeImpl, cfg.BatchSize, cfg.ParallelBatches, log)
	orchestrator := ingest.NewOrchestrator(storeImpl, classifier, cipher, hub, engine, cfg.BatchSize, cfg.DefaultCurrency, log)

	srv := &server{
		store:        storeImpl,
		cipher:       cipher,
		orchestrator: orchestrator,
		logger:       log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/uploads", srv.handleCreateUpload)
	mux.HandleFunc("GET /v1/uploads/{id}", srv.handleGetUpload)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:1234",
			"http://127.0.0.1:1234",
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"User-Agent",
		},
		AllowCredentials: true,
	})
	handler := c.Handler(mux)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}

	log.Info().Str("port", cfg.Port).Msg("starting server")
	if err := httpSrv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

type server struct {
	store        store.Store
	cipher       crypto.Encryptor
	orchestrator *ingest.Orchestrator
	logger       zerolog.Logger
}

// handleCreateUpload accepts a multipart CSV, stores it encrypted and
// kicks off processing in the background.
func (s *server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	userID := r.FormValue("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}
	accountID := r.FormValue("accountId")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	upload, err := ingest.IngestFile(r.Context(), s.store, s.cipher, userID, accountID, header.Filename, file)
	if err != nil {
		s.logger.Error().Err(err).Msg("ingesting upload")
		http.Error(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	go func() {
		if err := s.orchestrator.Process(context.Background(), upload.ID); err != nil {
			s.logger.Error().Err(err).Str("upload_id", upload.ID).Msg("processing upload")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"uploadId":   upload.ID,
		"status":     upload.Status,
		"totalLines": upload.TotalLines,
	})
}

func (s *server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	upload, err := s.store.GetUpload(r.Context(), r.PathValue("id"))
	if err == store.ErrNotFound {
		http.Error(w, "upload not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("fetching upload")
		http.Error(w, "failed to fetch upload", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uploadId":          upload.ID,
		"status":            upload.Status,
		"filename":          s.cipher.DecryptLenient(upload.EncryptedFilename),
		"totalLines":        upload.TotalLines,
		"processedLines":    upload.ProcessedLines,
		"successfulLines":   upload.SuccessfulLines,
		"failedLines":       upload.FailedLines,
		"skippedDuplicates": upload.SkippedDuplicates,
		"separator":         upload.Separator,
		"error":             s.cipher.DecryptLenient(upload.EncryptedError),
		"createdAt":         upload.CreatedAt,
		"updatedAt":         upload.UpdatedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
