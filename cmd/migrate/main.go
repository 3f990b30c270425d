package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"deepfake-detector/internal/app"
	"deepfake-detector/internal/config"
	"deepfake-detector/internal/logger"
	"deepfake-detector/internal/services"
	"deepfake-detector/internal/services/storage"
)

func main() {
	cfg := config.Load()

	uploadsDir := flag.String("uploads", cfg.UploadDirectory, "Directory containing stored uploads")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path (ignored when DATABASE_URL is set)")
	flag.Parse()

	cfg.UploadDirectory = *uploadsDir
	cfg.DatabasePath = *dbPath

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("%v", err)
	}
}

// run returns instead of exiting so the deferred Close calls always run.
func run(ctx context.Context, cfg *config.Config) error {
	fmt.Printf("Reindexing uploads from %s\n", cfg.UploadDirectory)

	l, err := logger.New(cfg.LogDirectory)
	if err != nil {
		return fmt.Errorf("failed to open logs: %w", err)
	}
	defer l.Close()

	pipeline, err := app.LoadPipeline(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	defer pipeline.Close()

	repo, err := app.OpenRepository(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	manager := services.NewManager(pipeline.Detector, storage.NewUploadStore(cfg.UploadDirectory), repo, nil, cfg, l)
	defer manager.Stop()

	report, err := manager.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("✅ Scanned %d file(s), recorded %d new detection(s)\n", report.Scanned, report.Added)
	if report.Failed > 0 {
		fmt.Printf("⚠️  Failed to record %d file(s), see error.log\n", report.Failed)
	}

	// Show stats
	stats, err := repo.GetStats(ctx)
	if err == nil {
		fmt.Printf("\n📊 Database Statistics:\n")
		fmt.Printf("   Total detections: %d\n", stats.Total)
		fmt.Printf("   Total size: %d bytes\n", stats.TotalSizeBytes)
		fmt.Printf("   Per label:\n")
		for label, count := range stats.PerLabel {
			fmt.Printf("      - %s: %d\n", label, count)
		}
	}
	return nil
}
