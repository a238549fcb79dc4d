package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/app"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/config"
)

// The ingestion entry point reads the dataset directory of per-year .txt
// letters, chunks and embeds them, and upserts the vectors. It exits 0 on
// success and 1 on any failure; a failed run is safe to repeat because
// chunk IDs are deterministic.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		<-c
		cancel()
	}()

	cfg := config.LoadConfig()
	application, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer application.Close()

	log.Printf("Starting ingestion from %s", cfg.DatasetDir)
	if err := application.Ingestor.IngestDirectory(ctx, cfg.DatasetDir); err != nil {
		log.Printf("ingestion failed: %v", err)
		application.Close()
		os.Exit(1)
	}
	log.Println("Document ingestion completed successfully.")
}
