package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

// fakeDB is an in-memory DbClient for handler tests.
type fakeDB struct {
	mu      sync.Mutex
	users   map[string]*models.User // keyed by email
	queries []models.Query

	// lookupMisses makes that many GetUserByEmail calls miss even when the
	// row exists, to reproduce a lookup/insert race window.
	lookupMisses int
}

func newFakeDB() *fakeDB {
	return &fakeDB{users: map[string]*models.User{}}
}

func (f *fakeDB) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Same constraint the unique email index enforces.
	if _, ok := f.users[u.Email]; ok {
		return core.ErrEmailTaken
	}
	cp := *u
	f.users[u.Email] = &cp
	return nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupMisses > 0 {
		f.lookupMisses--
		return nil, nil
	}
	if u, ok := f.users[email]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeDB) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) UpdateUserProfile(_ context.Context, id, bio, instruction string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			u.Bio = bio
			u.SystemInstruction = instruction
			return nil
		}
	}
	return nil
}

func (f *fakeDB) SetPasswordResetToken(_ context.Context, email, tokenHash string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil
	}
	u.PasswordResetToken = &tokenHash
	u.PasswordResetExpiry = &expiry
	return nil
}

func (f *fakeDB) ConsumePasswordResetToken(_ context.Context, tokenHash, newPasswordHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == tokenHash &&
			u.PasswordResetExpiry != nil && u.PasswordResetExpiry.After(time.Now()) {
			hash := newPasswordHash
			u.PasswordHash = &hash
			u.PasswordResetToken = nil
			u.PasswordResetExpiry = nil
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) CreateQuery(_ context.Context, q *models.Query) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, *q)
	return nil
}

func (f *fakeDB) ListQueriesByUser(_ context.Context, userID string) ([]models.Query, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Query
	for _, q := range f.queries {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	// Same contract as the ORDER BY created_at DESC in the real client.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeDB) DeleteQuery(_ context.Context, id, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, q := range f.queries {
		if q.ID == id && q.UserID == userID {
			f.queries = append(f.queries[:i], f.queries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDB) Close() error { return nil }

func (f *fakeDB) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

// fakeMailer records outgoing mail instead of sending it.
type fakeMailer struct {
	mu    sync.Mutex
	sends []sentMail
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *fakeMailer) sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sends...)
}

// fakeEmbedder returns a constant vector per text and counts calls.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
}

func (e *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeVectorStore serves canned chunks.
type fakeVectorStore struct {
	chunks []models.Chunk
}

func (s *fakeVectorStore) UpsertChunks(context.Context, []models.Chunk) error { return nil }

func (s *fakeVectorStore) SearchChunks(_ context.Context, _ []float32, limit int) ([]models.Chunk, error) {
	if limit > len(s.chunks) {
		limit = len(s.chunks)
	}
	return s.chunks[:limit], nil
}

func (s *fakeVectorStore) DeleteChunksByYear(context.Context, string) error { return nil }

func (s *fakeVectorStore) GetIngestedSource(context.Context, string) (*models.IngestedSource, error) {
	return nil, nil
}

func (s *fakeVectorStore) RecordIngestedSource(context.Context, *models.IngestedSource) error {
	return nil
}

// fakeLLM streams canned tokens and records what it was asked.
type fakeLLM struct {
	mu         sync.Mutex
	tokens     []string
	gotSystem  string
	gotHistory []models.ChatMessage
}

func (l *fakeLLM) StreamChat(_ context.Context, systemPrompt string, history []models.ChatMessage, onToken func(string) error) (string, error) {
	l.mu.Lock()
	l.gotSystem = systemPrompt
	l.gotHistory = append([]models.ChatMessage(nil), history...)
	tokens := l.tokens
	l.mu.Unlock()

	full := ""
	for _, t := range tokens {
		full += t
		if onToken != nil {
			if err := onToken(t); err != nil {
				return full, err
			}
		}
	}
	return full, nil
}

func (l *fakeLLM) received() (string, []models.ChatMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gotSystem, append([]models.ChatMessage(nil), l.gotHistory...)
}
