package ingestion_engine

// IngestConfig carries the runtime tuning knobs for the pipeline.
//
// MaxChunkSize: approximate characters per chunk.
// OverlapSize:  characters retained from the end of the previous chunk.
// BatchSize:    chunks embedded and upserted per batch; batches run strictly
//               sequentially to respect the embedding service's rate limit.
type IngestConfig struct {
	MaxChunkSize int
	OverlapSize  int
	BatchSize    int
}

func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		MaxChunkSize: 512,
		OverlapSize:  50,
		BatchSize:    100,
	}
}
