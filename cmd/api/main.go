package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelforge/reelforge/internal/api"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/db"
	"github.com/reelforge/reelforge/internal/pipeline"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/services"
	"github.com/reelforge/reelforge/internal/storage"
	"github.com/reelforge/reelforge/internal/worker"
)

func main() {
	log.Println("Starting ReelForge...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize the media library directories
	lib := storage.New(cfg.MoviesDir, cfg.SubtitlesDir, cfg.MusicDir,
		cfg.OutputDir, cfg.VerticalDir, cfg.RetiredDir, cfg.WorkDir)
	if err := lib.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create library directories: %v", err)
	}
	log.Printf("Media library rooted at %s", cfg.MoviesDir)

	// Start worker if enabled
	var w *worker.Worker
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		// Scene planner — OpenAI by default, Gemini as the alternate provider
		var planner services.ScenePlanner
		switch cfg.PlannerProvider {
		case "gemini":
			planner = services.NewGeminiService(cfg.GeminiKey)
			log.Println("Scene planner: Gemini")
		default:
			planner = services.NewOpenAIService(cfg.OpenAIKey)
			log.Println("Scene planner: OpenAI")
		}

		ttsSvc := services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID)
		log.Printf("TTS provider: ElevenLabs (voice: %s, model: %s)", cfg.ElevenLabsVoiceID, cfg.ElevenLabsModelID)

		ffmpegSvc := services.NewFFmpegService(cfg.FFmpegPath, cfg.FFprobePath)
		pipe := pipeline.New(cfg, ffmpegSvc, ttsSvc, planner, lib)

		w = worker.New(cfg, database, q, lib, pipe)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Create API handler; the worker doubles as the scan trigger
	var scanner api.Scanner
	if w != nil {
		scanner = w
	}
	handler := api.NewHandler(database, q, scanner)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
