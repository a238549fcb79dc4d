package core

import (
	"context"
	"errors"
	"time"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

// ErrEmailTaken reports that a user insert hit the unique email index, e.g.
// when two signups for the same address race past the existence check.
var ErrEmailTaken = errors.New("email already registered")

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, id, bio, systemInstruction string) error

	SetPasswordResetToken(ctx context.Context, email, tokenHash string, expiry time.Time) error
	ConsumePasswordResetToken(ctx context.Context, tokenHash, newPasswordHash string) (bool, error)

	CreateQuery(ctx context.Context, q *models.Query) error
	ListQueriesByUser(ctx context.Context, userID string) ([]models.Query, error)
	DeleteQuery(ctx context.Context, id, userID string) (bool, error)

	Close() error
}

// VectorStore abstracts the external vector index holding letter chunks.
type VectorStore interface {
	UpsertChunks(ctx context.Context, chunks []models.Chunk) error
	SearchChunks(ctx context.Context, queryVec []float32, limit int) ([]models.Chunk, error)
	DeleteChunksByYear(ctx context.Context, year string) error

	GetIngestedSource(ctx context.Context, year string) (*models.IngestedSource, error)
	RecordIngestedSource(ctx context.Context, src *models.IngestedSource) error
}

// EmbeddingProvider turns texts into fixed-dimension vectors.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider streams a model answer for a conversation. onToken is called
// once per generated fragment; the full answer text is returned when the
// stream completes.
type LLMProvider interface {
	StreamChat(ctx context.Context, systemPrompt string, history []models.ChatMessage, onToken func(string) error) (string, error)
}

// Mailer sends transactional mail (password reset, login links).
type Mailer interface {
	Send(to, subject, htmlBody string) error
}
