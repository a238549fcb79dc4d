package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	middleware "github.com/MJ665/my-invest-mind-RAG-Application/internal/api/middlewares"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/services"
)

type ChatHandler struct {
	chat *services.ChatService
}

func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	Messages []models.ChatMessage `json:"messages"`
}

// Chat streams the generated answer back as plain text chunks. The query
// record is persisted by the service once the stream completes.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		respondMessage(w, http.StatusBadRequest, "messages are required")
		return
	}

	flusher, canFlush := w.(http.Flusher)

	streamed := false
	onToken := func(token string) error {
		if !streamed {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			streamed = true
		}
		if _, err := w.Write([]byte(token)); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	}

	if _, err := h.chat.StreamAnswer(r.Context(), userID, req.Messages, onToken); err != nil {
		if streamed {
			// Headers are gone; all we can do is drop the connection.
			log.Printf("chat stream aborted for user %s: %v", userID, err)
			return
		}
		log.Printf("chat failed for user %s: %v", userID, err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
