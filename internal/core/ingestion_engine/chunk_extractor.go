package ingestion_engine

import (
	"strings"
)

// SplitText slices text into overlapping chunks of at most maxSize runes.
// Boundaries prefer paragraph breaks, then line breaks, then spaces, so a
// chunk rarely ends mid-word. The output is fully determined by
// (text, maxSize, overlap): re-running the same file with the same
// parameters yields the same chunk list, which keeps vector IDs stable.
func SplitText(text string, maxSize, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if maxSize <= 0 {
		maxSize = 512
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = 0
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxSize
		if end >= len(runes) {
			end = len(runes)
		} else if cut := lastBoundary(runes[start:end]); cut > overlap {
			// Break at a natural boundary inside the window. cut > overlap
			// guarantees the next start still moves forward.
			end = start + cut
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		start = end - overlap
	}
	return chunks
}

// lastBoundary returns the index just past the best split point in window,
// or 0 when no separator exists.
func lastBoundary(window []rune) int {
	s := string(window)
	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(s, sep); idx > 0 {
			return len([]rune(s[:idx+len(sep)]))
		}
	}
	return 0
}
