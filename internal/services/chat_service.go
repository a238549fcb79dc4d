package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

const (
	// NumRelevantChunks is the top-K for the vector lookup.
	NumRelevantChunks = 5

	analystInstructions = `You are a financial analyst trained on Warren Buffett's philosophy.
Your knowledge comes from Berkshire Hathaway shareholder letters.
When you answer, you MUST cite the source year for the information you use.
The user will provide a query, and you will be given context from the letters formatted as "Source Year: [year] Content: [text]".
Synthesize an answer from the content and include citations like [Source: 2021] in your response.`
)

// ChatService runs the retrieval-augmented generation flow: embed the
// latest question, fetch the nearest letter chunks, assemble the prompt and
// stream the model answer, persisting a query record when the stream
// completes.
type ChatService struct {
	db       core.DbClient
	store    core.VectorStore
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
}

func NewChatService(db core.DbClient, store core.VectorStore, emb core.EmbeddingProvider, llm core.LLMProvider) *ChatService {
	return &ChatService{db: db, store: store, embedder: emb, llm: llm}
}

// BuildContext renders retrieved chunks as labeled source blocks.
func BuildContext(chunks []models.Chunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		year := ch.Year
		if year == "" {
			year = "N/A"
		}
		text := ch.Content
		if text == "" {
			text = "No text available."
		}
		blocks = append(blocks, fmt.Sprintf("Source Year: %s\nContent: %s", year, text))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// StreamAnswer validates the conversation, injects the user's custom
// instruction (if any) as a leading system turn, retrieves context for the
// latest question and streams the model response through onToken. Exactly
// one query record is written, and only after the stream has fully
// completed; a cancelled or failed stream persists nothing.
func (s *ChatService) StreamAnswer(ctx context.Context, userID string, messages []models.ChatMessage, onToken func(string) error) (*models.Query, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages must not be empty")
	}
	lastMsg := messages[len(messages)-1]
	if lastMsg.Role != "user" || strings.TrimSpace(lastMsg.Content) == "" {
		return nil, fmt.Errorf("last message must be a non-empty user message")
	}
	userQuery := lastMsg.Content

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}

	prepared := messages
	if user.SystemInstruction != "" {
		prepared = append([]models.ChatMessage{
			{Role: "system", Content: user.SystemInstruction},
		}, messages...)
	}

	contextBlock, err := s.retrieveContext(ctx, userQuery)
	if err != nil {
		return nil, err
	}
	if contextBlock != "" {
		// Rewrite only the final user turn; the stored record keeps the
		// verbatim question.
		prepared = append([]models.ChatMessage{}, prepared...)
		prepared[len(prepared)-1] = models.ChatMessage{
			Role: "user",
			Content: fmt.Sprintf("Context from the shareholder letters:\n\n%s\n\nQuestion: %s",
				contextBlock, userQuery),
		}
	}

	answer, err := s.llm.StreamChat(ctx, analystInstructions, prepared, onToken)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	record := &models.Query{
		ID:        uuid.NewString(),
		UserID:    userID,
		Query:     userQuery,
		Response:  answer,
		CreatedAt: time.Now(),
	}
	if err := s.db.CreateQuery(ctx, record); err != nil {
		return nil, fmt.Errorf("persist query record: %w", err)
	}
	return record, nil
}

func (s *ChatService) retrieveContext(ctx context.Context, query string) (string, error) {
	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return "", fmt.Errorf("embedding service returned no vector")
	}

	chunks, err := s.store.SearchChunks(ctx, vecs[0], NumRelevantChunks)
	if err != nil {
		return "", fmt.Errorf("vector search: %w", err)
	}
	if len(chunks) == 0 {
		return "", nil
	}
	return BuildContext(chunks), nil
}
