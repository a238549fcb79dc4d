package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/config"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

// NewDatabaseClient opens a lifecycle-managed pool, pings it and applies the
// bootstrap schema once. The pool is created a single time at process startup
// and handed down explicitly; nothing re-opens connections per request.
func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB exposes the underlying pool so the vector store can share it.
func (c *DatabaseClient) DB() *sql.DB {
	return c.db
}

// Implementing the db interface for user

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, password_hash, bio, system_instruction, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), COALESCE($7, now()))
	`
	created := sql.NullTime{Time: user.CreatedAt, Valid: !user.CreatedAt.IsZero()}
	updated := sql.NullTime{Time: user.UpdatedAt, Valid: !user.UpdatedAt.IsZero()}
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.Email, user.PasswordHash, user.Bio, user.SystemInstruction, created, updated)
	if err != nil {
		// 23505 = unique_violation; the only unique index on users is email.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, bio, system_instruction,
		       password_reset_token, password_reset_expiry, created_at, updated_at
		FROM users WHERE email = $1
	`
	return c.scanUser(c.db.QueryRowContext(ctx, q, email))
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const q = `
		SELECT id, email, password_hash, bio, system_instruction,
		       password_reset_token, password_reset_expiry, created_at, updated_at
		FROM users WHERE id = $1
	`
	return c.scanUser(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Bio, &u.SystemInstruction,
		&u.PasswordResetToken, &u.PasswordResetExpiry, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) UpdateUserProfile(ctx context.Context, id, bio, systemInstruction string) error {
	const q = `
		UPDATE users
		SET bio = $2, system_instruction = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, bio, systemInstruction)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// SetPasswordResetToken stores the hash of a freshly issued reset token plus
// its expiry. Only the hash ever touches the database.
func (c *DatabaseClient) SetPasswordResetToken(ctx context.Context, email, tokenHash string, expiry time.Time) error {
	const q = `
		UPDATE users
		SET password_reset_token = $2, password_reset_expiry = $3, updated_at = now()
		WHERE email = $1
	`
	res, err := c.db.ExecContext(ctx, q, email, tokenHash, expiry)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("user not found: %s", email)
	}
	return nil
}

// ConsumePasswordResetToken redeems a reset token in a single UPDATE: the new
// password hash is set and the token/expiry cleared only when a non-expired
// matching row exists, so a token can never be used twice.
func (c *DatabaseClient) ConsumePasswordResetToken(ctx context.Context, tokenHash, newPasswordHash string) (bool, error) {
	const q = `
		UPDATE users
		SET password_hash = $2, password_reset_token = NULL, password_reset_expiry = NULL, updated_at = now()
		WHERE password_reset_token = $1 AND password_reset_expiry > now()
	`
	res, err := c.db.ExecContext(ctx, q, tokenHash, newPasswordHash)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Implementing the db interface for query history

func (c *DatabaseClient) CreateQuery(ctx context.Context, query *models.Query) error {
	if query == nil {
		return errors.New("nil query")
	}
	const q = `
		INSERT INTO queries (id, user_id, query, response, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	// A zero time must reach Postgres as NULL, not 0001-01-01, or the
	// COALESCE fallback never fires.
	created := sql.NullTime{Time: query.CreatedAt, Valid: !query.CreatedAt.IsZero()}
	_, err := c.db.ExecContext(ctx, q,
		query.ID, query.UserID, query.Query, query.Response, created)
	return err
}

func (c *DatabaseClient) ListQueriesByUser(ctx context.Context, userID string) ([]models.Query, error) {
	const q = `
		SELECT id, user_id, query, response, created_at
		FROM queries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Query
	for rows.Next() {
		var rec models.Query
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Query, &rec.Response, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteQuery removes a record only when it belongs to the given user.
func (c *DatabaseClient) DeleteQuery(ctx context.Context, id, userID string) (bool, error) {
	const q = `DELETE FROM queries WHERE id = $1 AND user_id = $2`
	res, err := c.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
