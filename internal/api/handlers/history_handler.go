package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	middleware "github.com/MJ665/my-invest-mind-RAG-Application/internal/api/middlewares"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

type HistoryHandler struct {
	db core.DbClient
}

func NewHistoryHandler(db core.DbClient) *HistoryHandler {
	return &HistoryHandler{db: db}
}

// List returns the caller's query records, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	history, err := h.db.ListQueriesByUser(r.Context(), userID)
	if err != nil {
		log.Printf("history list failed for user %s: %v", userID, err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if history == nil {
		history = []models.Query{}
	}
	respondJSON(w, http.StatusOK, history)
}

// Delete removes one record; ownership is enforced in the same statement
// that deletes, so a foreign ID simply reports not found.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	queryID := chi.URLParam(r, "queryID")
	if queryID == "" {
		respondMessage(w, http.StatusBadRequest, "query id is required")
		return
	}

	ok, err := h.db.DeleteQuery(r.Context(), queryID, userID)
	if err != nil {
		log.Printf("history delete failed for user %s: %v", userID, err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !ok {
		respondMessage(w, http.StatusNotFound, "record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
