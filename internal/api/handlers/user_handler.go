package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	middleware "github.com/MJ665/my-invest-mind-RAG-Application/internal/api/middlewares"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
)

type UserHandler struct {
	db core.DbClient
}

func NewUserHandler(db core.DbClient) *UserHandler {
	return &UserHandler{db: db}
}

type profileResponse struct {
	Email             string `json:"email"`
	Bio               string `json:"bio"`
	SystemInstruction string `json:"systemInstruction"`
}

// Me returns the caller's profile fields for the settings page.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.db.GetUserByID(r.Context(), userID)
	if err != nil {
		log.Printf("profile load failed for user %s: %v", userID, err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if user == nil {
		respondMessage(w, http.StatusNotFound, "user not found")
		return
	}

	respondJSON(w, http.StatusOK, profileResponse{
		Email:             user.Email,
		Bio:               user.Bio,
		SystemInstruction: user.SystemInstruction,
	})
}

type updateProfileRequest struct {
	Bio               string `json:"bio"`
	SystemInstruction string `json:"systemInstruction"`
}

// Update writes the caller's bio and custom system instruction.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		respondMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid body")
		return
	}

	if err := h.db.UpdateUserProfile(r.Context(), userID, req.Bio, req.SystemInstruction); err != nil {
		log.Printf("profile update failed for user %s: %v", userID, err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondMessage(w, http.StatusOK, "Profile updated successfully")
}
