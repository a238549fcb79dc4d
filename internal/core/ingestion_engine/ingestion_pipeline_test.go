package ingestion_engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

// recordingStore captures every store interaction in order.
type recordingStore struct {
	mu      sync.Mutex
	chunks  map[string]models.Chunk
	sources map[string]*models.IngestedSource
	ops     []string
	batches []int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		chunks:  map[string]models.Chunk{},
		sources: map[string]*models.IngestedSource{},
	}
}

func (s *recordingStore) UpsertChunks(_ context.Context, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chunks {
		s.chunks[ch.ID] = ch
	}
	s.ops = append(s.ops, "upsert")
	s.batches = append(s.batches, len(chunks))
	return nil
}

func (s *recordingStore) SearchChunks(context.Context, []float32, int) ([]models.Chunk, error) {
	return nil, nil
}

func (s *recordingStore) DeleteChunksByYear(_ context.Context, year string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.chunks {
		if ch.Year == year {
			delete(s.chunks, id)
		}
	}
	s.ops = append(s.ops, "delete:"+year)
	return nil
}

func (s *recordingStore) GetIngestedSource(_ context.Context, year string) (*models.IngestedSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[year]; ok {
		cp := *src
		return &cp, nil
	}
	return nil, nil
}

func (s *recordingStore) RecordIngestedSource(_ context.Context, src *models.IngestedSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *src
	s.sources[src.Year] = &cp
	return nil
}

func (s *recordingStore) chunkIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.chunks))
	for id := range s.chunks {
		ids = append(ids, id)
	}
	return ids
}

// countingEmbedder embeds deterministically and records batch sizes.
type countingEmbedder struct {
	mu         sync.Mutex
	batchSizes []int
}

func (e *countingEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batchSizes = append(e.batchSizes, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i]))}
	}
	return out, nil
}

func writeDataset(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestDiscoverSources(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"1994.txt":   "letter",
		"2021.txt":   "letter",
		"notes.md":   "ignored",
		"README.txt": "picked up, year label README",
	})

	files, err := DiscoverSources(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "1994", files[0].Year)
	assert.Equal(t, "2021", files[1].Year)
	assert.Equal(t, "README", files[2].Year)
}

func TestIngest_DeterministicIDs(t *testing.T) {
	letter := strings.Repeat("Our gain in net worth during 1994 was notable. ", 40)
	dir := writeDataset(t, map[string]string{"1994.txt": letter})

	store := newRecordingStore()
	ing := NewDocumentIngestor(store, &countingEmbedder{}, &IngestConfig{MaxChunkSize: 200, OverlapSize: 20, BatchSize: 3})
	require.NoError(t, ing.IngestDirectory(context.Background(), dir))

	ids := store.chunkIDs()
	require.NotEmpty(t, ids)
	for _, id := range ids {
		assert.True(t, strings.HasPrefix(id, "1994-"), "id %s should be <year>-<pos>", id)
	}

	want := len(SplitText(letter, 200, 20))
	assert.Len(t, ids, want)
	for pos := 0; pos < want; pos++ {
		assert.Contains(t, ids, fmt.Sprintf("1994-%d", pos))
	}
}

func TestIngest_RerunUnchangedFileSkips(t *testing.T) {
	dir := writeDataset(t, map[string]string{"2008.txt": "Be fearful when others are greedy."})

	store := newRecordingStore()
	emb := &countingEmbedder{}
	ing := NewDocumentIngestor(store, emb, &IngestConfig{MaxChunkSize: 100, OverlapSize: 10, BatchSize: 5})

	require.NoError(t, ing.IngestDirectory(context.Background(), dir))
	firstIDs := store.chunkIDs()
	firstEmbeds := len(emb.batchSizes)

	// Second run: the content hash matches, so nothing is re-embedded.
	require.NoError(t, ing.IngestDirectory(context.Background(), dir))
	assert.ElementsMatch(t, firstIDs, store.chunkIDs())
	assert.Equal(t, firstEmbeds, len(emb.batchSizes))
}

func TestIngest_ChangedFileDeletesStaleChunksFirst(t *testing.T) {
	dir := writeDataset(t, map[string]string{"2008.txt": strings.Repeat("old content here. ", 30)})

	store := newRecordingStore()
	ing := NewDocumentIngestor(store, &countingEmbedder{}, &IngestConfig{MaxChunkSize: 100, OverlapSize: 0, BatchSize: 5})
	require.NoError(t, ing.IngestDirectory(context.Background(), dir))
	require.NotEmpty(t, store.chunkIDs())

	// Shrink the file so the old run's higher positions become stale.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2008.txt"), []byte("short."), 0o644))
	require.NoError(t, ing.IngestDirectory(context.Background(), dir))

	assert.Equal(t, []string{"2008-0"}, store.chunkIDs(), "stale chunks must be removed")

	// The delete happened before the re-upsert.
	var lastDelete, firstUpsertAfter int = -1, -1
	for i, op := range store.ops {
		if op == "delete:2008" {
			lastDelete = i
		}
	}
	for i := lastDelete + 1; i < len(store.ops); i++ {
		if store.ops[i] == "upsert" {
			firstUpsertAfter = i
			break
		}
	}
	assert.Greater(t, lastDelete, -1)
	assert.Greater(t, firstUpsertAfter, lastDelete)
}

func TestIngest_BatchesAreBounded(t *testing.T) {
	// Force many small chunks through a tiny batch size.
	letter := strings.Repeat("sentence one two three four five six seven eight nine ten. ", 50)
	dir := writeDataset(t, map[string]string{"1999.txt": letter})

	store := newRecordingStore()
	emb := &countingEmbedder{}
	ing := NewDocumentIngestor(store, emb, &IngestConfig{MaxChunkSize: 120, OverlapSize: 0, BatchSize: 4})
	require.NoError(t, ing.IngestDirectory(context.Background(), dir))

	require.NotEmpty(t, emb.batchSizes)
	for i, size := range emb.batchSizes {
		assert.LessOrEqual(t, size, 4, "batch %d exceeds the configured size", i)
	}
	// Embed batches and upsert batches line up one-to-one.
	assert.Equal(t, emb.batchSizes, store.batches)
}
