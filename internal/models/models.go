package models

import (
	"time"
)

// User represents an authenticated user of the system.
// PasswordHash is nil for accounts created through the email login link.
type User struct {
	ID                  string     `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        *string    `db:"password_hash" json:"-"`
	Bio                 string     `db:"bio" json:"bio"`
	SystemInstruction   string     `db:"system_instruction" json:"system_instruction"`
	PasswordResetToken  *string    `db:"password_reset_token" json:"-"`
	PasswordResetExpiry *time.Time `db:"password_reset_expiry" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Query is one completed chat exchange: the user's question and the full
// generated answer. Rows are written once when a stream finishes and never
// mutated afterwards.
type Query struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Query     string    `db:"query" json:"query"`
	Response  string    `db:"response" json:"response"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Chunk is one embedded slice of a shareholder letter as stored in the
// vector index. ID is "<year>-<globalPosition>", so re-ingesting the same
// file with the same chunking parameters overwrites instead of duplicating.
type Chunk struct {
	ID        string    `db:"id" json:"id"`
	Year      string    `db:"year" json:"year"`
	Content   string    `db:"content" json:"content"`
	Embedding []float32 `db:"embedding" json:"-"`
}

// IngestedSource records the content hash of each source file so a re-run
// can skip unchanged files and drop stale chunks before re-upserting.
type IngestedSource struct {
	Year        string    `db:"year" json:"year"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	ChunkCount  int       `db:"chunk_count" json:"chunk_count"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage is one turn of the conversation as sent by the client.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}
