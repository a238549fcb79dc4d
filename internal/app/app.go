package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/config"
	db "github.com/MJ665/my-invest-mind-RAG-Application/internal/core/database"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core/ingestion_engine"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core/llm"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core/mailer"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core/vectorstore"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/services"
)

// App wires every long-lived dependency once at startup and hands them
// down explicitly; nothing is re-instantiated per request.
type App struct {
	DBClient    *db.DatabaseClient
	VectorStore *vectorstore.PgVectorStore
	Ingestor    *ingestion_engine.DocumentIngestor
	Embedder    *llm.GeminiEmbedder
	LLM         *llm.GeminiLLM
	Server      *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	pgClient := dbClient.(*db.DatabaseClient)
	vecStore := vectorstore.NewPgVectorStore(pgClient.DB())

	geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the chat model, %w", err)
	}

	smtpMailer := mailer.NewSMTPMailer(cfg)

	docIngestor := ingestion_engine.NewDocumentIngestor(vecStore, geminiEmbedder, ingestion_engine.DefaultIngestConfig())

	chatService := services.NewChatService(dbClient, vecStore, geminiEmbedder, llmProvider)

	server := NewServer(cfg, dbClient, chatService, smtpMailer)

	return &App{
		DBClient:    pgClient,
		VectorStore: vecStore,
		Ingestor:    docIngestor,
		Embedder:    geminiEmbedder,
		LLM:         llmProvider,
		Server:      server,
	}, nil
}

func (a *App) Close() {
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
