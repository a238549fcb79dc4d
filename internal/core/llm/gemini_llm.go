package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// StreamChat pushes the model response token-by-token through onToken and
// returns the full assembled text once the stream finishes.
//
// Gemini only knows "user" and "model" roles, so system-role turns in the
// history are folded into the model's system instruction, in order, ahead of
// the static prompt's own instructions.
func (g *GeminiLLM) StreamChat(ctx context.Context, systemPrompt string, history []models.ChatMessage, onToken func(string) error) (string, error) {
	var sysParts []string
	if systemPrompt != "" {
		sysParts = append(sysParts, systemPrompt)
	}

	var turns []*genai.Content
	for _, msg := range history {
		switch msg.Role {
		case "system":
			sysParts = append(sysParts, msg.Content)
		case "assistant", "model":
			turns = append(turns, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			turns = append(turns, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}
	if len(turns) == 0 {
		return "", fmt.Errorf("conversation has no user turns")
	}
	last := turns[len(turns)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("last message in history is not from the user")
	}

	m := g.client.GenerativeModel(g.modelName)
	if len(sysParts) > 0 {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(sysParts, "\n\n"))},
		}
	}

	cs := m.StartChat()
	cs.History = turns[:len(turns)-1]

	iter := cs.SendMessageStream(ctx, last.Parts...)

	var full strings.Builder
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return full.String(), fmt.Errorf("gemini stream: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}
		for _, p := range resp.Candidates[0].Content.Parts {
			t, ok := p.(genai.Text)
			if !ok {
				continue
			}
			full.WriteString(string(t))
			if onToken != nil {
				if err := onToken(string(t)); err != nil {
					return full.String(), err
				}
			}
		}
	}
	return full.String(), nil
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
