package ingestion_engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

// chunk is the internal representation passed through the pipeline.
//
// Pos:  stable, zero-based position of the chunk inside the source file.
// Text: chunk content.
type chunk struct {
	Pos  int
	Text string
}

// DocumentIngestor orchestrates the ingestion pipeline: discover .txt files,
// chunk them, embed chunk batches and upsert vectors into the store.
type DocumentIngestor struct {
	store    core.VectorStore
	embedder core.EmbeddingProvider
	cfg      *IngestConfig
}

func NewDocumentIngestor(store core.VectorStore, emb core.EmbeddingProvider, cfg *IngestConfig) *DocumentIngestor {
	if cfg == nil {
		cfg = DefaultIngestConfig()
	}
	return &DocumentIngestor{store: store, embedder: emb, cfg: cfg}
}

// sourceFile is one labeled document: the file path plus the year taken from
// its filename ("1994.txt" -> "1994").
type sourceFile struct {
	Path string
	Year string
}

// DiscoverSources lists the .txt files of a dataset directory in a stable
// order.
func DiscoverSources(dir string) ([]sourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir %s: %w", dir, err)
	}

	var files []sourceFile
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		files = append(files, sourceFile{
			Path: filepath.Join(dir, e.Name()),
			Year: strings.TrimSuffix(e.Name(), ".txt"),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Year < files[j].Year })
	return files, nil
}

// IngestDirectory processes every source file in dir. Any error aborts the
// whole run; a partially ingested file is safe to re-run because chunk IDs
// are deterministic and upserts overwrite.
func (i *DocumentIngestor) IngestDirectory(ctx context.Context, dir string) error {
	files, err := DiscoverSources(dir)
	if err != nil {
		return err
	}
	log.Printf("Found %d documents to process in %s", len(files), dir)

	for _, f := range files {
		if err := i.ingestFile(ctx, f); err != nil {
			return fmt.Errorf("ingest %s: %w", f.Path, err)
		}
	}
	return nil
}

// ingestFile runs the chunk -> embed -> upsert pipeline for one file.
// Unchanged files (same content hash as the previous run) are skipped;
// changed files have their stale chunks deleted before re-upserting so
// re-chunking with new parameters cannot orphan old vectors.
func (i *DocumentIngestor) ingestFile(ctx context.Context, f sourceFile) error {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])

	prev, err := i.store.GetIngestedSource(ctx, f.Year)
	if err != nil {
		return fmt.Errorf("lookup ingested source: %w", err)
	}
	if prev != nil && prev.ContentHash == hash {
		log.Printf("  - %s unchanged (hash match), skipping", f.Year)
		return nil
	}

	if err := i.store.DeleteChunksByYear(ctx, f.Year); err != nil {
		return fmt.Errorf("delete stale chunks: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	chunkCh := i.streamChunk(gctx, g, string(raw))

	var total int
	g.Go(func() error {
		n, err := i.embedAndUpsert(gctx, f.Year, chunkCh)
		total = n
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	if err := i.store.RecordIngestedSource(ctx, &models.IngestedSource{
		Year:        f.Year,
		ContentHash: hash,
		ChunkCount:  total,
		UpdatedAt:   time.Now(),
	}); err != nil {
		return fmt.Errorf("record ingested source: %w", err)
	}

	log.Printf("  - Ingested %d chunks for year %s", total, f.Year)
	return nil
}

// streamChunk splits the text and emits chunks downstream with backpressure.
func (i *DocumentIngestor) streamChunk(ctx context.Context, g *errgroup.Group, text string) <-chan chunk {
	out := make(chan chunk, 8)

	g.Go(func() error {
		defer close(out)
		for pos, piece := range SplitText(text, i.cfg.MaxChunkSize, i.cfg.OverlapSize) {
			select {
			case out <- chunk{Pos: pos, Text: piece}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	return out
}

// embedAndUpsert consumes chunks, embeds them in batches and upserts each
// batch before starting the next. The sequential await is deliberate: the
// embedding service rate-limits concurrent batches.
func (i *DocumentIngestor) embedAndUpsert(ctx context.Context, year string, in <-chan chunk) (int, error) {
	batch := make([]chunk, 0, i.cfg.BatchSize)
	total := 0

	flush := func(items []chunk) error {
		if len(items) == 0 {
			return nil
		}

		texts := make([]string, len(items))
		for idx := range items {
			texts[idx] = items[idx].Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if len(vecs) != len(items) {
			return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(items))
		}

		rows := make([]models.Chunk, len(items))
		for k := range items {
			rows[k] = models.Chunk{
				// Global position keeps IDs unique across batches.
				ID:        fmt.Sprintf("%s-%d", year, items[k].Pos),
				Year:      year,
				Content:   items[k].Text,
				Embedding: vecs[k],
			}
		}
		if err := i.store.UpsertChunks(ctx, rows); err != nil {
			return fmt.Errorf("upsert chunks: %w", err)
		}
		total += len(items)
		return nil
	}

	for c := range in {
		batch = append(batch, c)
		if len(batch) == i.cfg.BatchSize {
			if err := flush(batch); err != nil {
				return total, err
			}
			batch = batch[:0]
		}
	}
	// Final tail.
	if err := flush(batch); err != nil {
		return total, err
	}
	return total, nil
}
