package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"plate-api/api/internal/config"
	"plate-api/api/internal/detect"
	"plate-api/api/internal/handle"
	"plate-api/api/internal/ocr"
	"plate-api/api/internal/ocr/gemini"
	"plate-api/api/internal/ocr/openai"
	"plate-api/api/internal/pipeline"
	"plate-api/api/internal/store"
)

func main() {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("create upload dir %s: %v", cfg.UploadDir, err)
	}

	// --- Optional recognition history ---
	var (
		db      *sql.DB
		history *store.RecognitionRepo
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("sql.Open: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			cancel()
			log.Fatalf("db.Ping: %v", err)
		}
		cancel()
		history = store.NewRecognitionRepo(db)
		log.Printf("recognition history enabled")
	}

	// --- Engines ---
	engines := &ocr.Engines{}
	if cfg.OpenAIAPIKey != "" {
		engines.OpenAI = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	if cfg.GeminiAPIKey != "" {
		engines.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	engine, err := engines.GetEngine(cfg.ExtractionEngine)
	if err != nil {
		log.Fatalf("select extraction engine: %v", err)
	}

	// --- Detector ---
	var detector detect.Detector = detect.Passthrough{}
	if cfg.YOLOConfig != "" && cfg.YOLOWeights != "" {
		detector = detect.NewYOLODetector(cfg.YOLOConfig, cfg.YOLOWeights, cfg.YOLOConfThreshold)
		log.Printf("YOLO detector: %s", cfg.YOLOWeights)
	} else {
		log.Printf("no YOLO model configured; vision model does plate localization")
	}

	pipe := pipeline.New(detector, engine, history)
	h := handle.New(pipe, cfg.UploadDir, cfg.AllowedExts, cfg.OpenAIAPIKey != "", history)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/info", h.Info)
	mux.HandleFunc("/recognize", h.Recognize)
	if history != nil {
		mux.HandleFunc("/recognitions", h.Recognitions)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := ":" + cfg.Port
	log.Printf("plate-api listening on %s (engine=%s model=%s)", addr, engine.Name(), engine.GetModel())
	log.Fatal(http.ListenAndServe(addr, mux))
}
