package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

func TestBuildContext_Empty(t *testing.T) {
	assert.Equal(t, "", BuildContext(nil))
}

func TestBuildContext_FormatsLabeledBlocks(t *testing.T) {
	got := BuildContext([]models.Chunk{
		{Year: "1994", Content: "Our gain in net worth was $1.45 billion."},
		{Year: "2008", Content: "Be fearful when others are greedy."},
	})

	want := "Source Year: 1994\nContent: Our gain in net worth was $1.45 billion." +
		"\n\n---\n\n" +
		"Source Year: 2008\nContent: Be fearful when others are greedy."
	assert.Equal(t, want, got)
}

func TestBuildContext_FallbacksForMissingFields(t *testing.T) {
	got := BuildContext([]models.Chunk{{Year: "", Content: ""}})
	assert.Equal(t, "Source Year: N/A\nContent: No text available.", got)
}
