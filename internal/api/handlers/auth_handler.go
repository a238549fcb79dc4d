package handlers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/MJ665/my-invest-mind-RAG-Application/internal/config"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/core"
	"github.com/MJ665/my-invest-mind-RAG-Application/internal/models"
)

const (
	// Window a password-reset token stays valid.
	resetTokenTTL = 10 * time.Minute
	// Window an emailed login link stays valid.
	loginLinkTTL = 15 * time.Minute

	sessionTTL = 24 * time.Hour

	// The same body is returned whether or not the account exists so the
	// endpoint cannot be used to enumerate registered emails.
	genericResetMessage = "If an account with that email exists, a reset link has been sent."
	genericLoginMessage = "If the email is valid, a login link has been sent."
)

type AuthHandler struct {
	db     core.DbClient
	mailer core.Mailer
	cfg    *config.Config
}

func NewAuthHandler(db core.DbClient, mailer core.Mailer, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, mailer: mailer, cfg: cfg}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	existing, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("signup lookup failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if existing != nil {
		respondMessage(w, http.StatusConflict, "an account with that email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("signup hash failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	hashStr := string(hash)

	user, err := h.getOrCreateUser(r, req.Email, &hashStr)
	if errors.Is(err, core.ErrEmailTaken) {
		// A concurrent signup won the race between the lookup and the insert.
		respondMessage(w, http.StatusConflict, "an account with that email already exists")
		return
	}
	if err != nil {
		log.Printf("signup create failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	token, err := h.sessionToken(user.ID)
	if err != nil {
		log.Printf("signup token failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"token": token})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("login lookup failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	// A nil PasswordHash means a link-only account; credentials never match.
	if user == nil || user.PasswordHash == nil ||
		bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)) != nil {
		respondMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.sessionToken(user.ID)
	if err != nil {
		log.Printf("login token failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

type emailRequest struct {
	Email string `json:"email"`
}

// RequestLoginLink emails a short-lived signed login token. Accounts are
// created on first use, mirroring passwordless email sign-in.
func (h *AuthHandler) RequestLoginLink(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondMessage(w, http.StatusBadRequest, "email is required")
		return
	}

	if _, err := h.getOrCreateUser(r, req.Email, nil); err != nil {
		log.Printf("login link user lookup failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	claims := jwt.MapClaims{
		"email":   req.Email,
		"purpose": "login-link",
		"exp":     time.Now().Add(loginLinkTTL).Unix(),
	}
	linkToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		log.Printf("login link sign failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	loginURL := fmt.Sprintf("%s/login/verify/%s", h.cfg.AppBaseURL, linkToken)
	body := fmt.Sprintf(`<p>Click <a href="%s">here</a> to sign in to InvestMind.</p><p>This link will expire in 15 minutes.</p>`, loginURL)
	if err := h.mailer.Send(req.Email, "InvestMind - Your Login Link", body); err != nil {
		log.Printf("login link mail failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondMessage(w, http.StatusOK, genericLoginMessage)
}

type verifyLoginRequest struct {
	Token string `json:"token"`
}

// VerifyLoginLink exchanges an emailed login token for a session token.
func (h *AuthHandler) VerifyLoginLink(w http.ResponseWriter, r *http.Request) {
	var req verifyLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		respondMessage(w, http.StatusBadRequest, "token is required")
		return
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(req.Token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	purpose, _ := claims["purpose"].(string)
	email, _ := claims["email"].(string)
	if err != nil || !token.Valid || purpose != "login-link" || email == "" {
		respondMessage(w, http.StatusBadRequest, "Invalid or expired token.")
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), email)
	if err != nil || user == nil {
		log.Printf("login link verify lookup failed for %s: %v", email, err)
		respondMessage(w, http.StatusBadRequest, "Invalid or expired token.")
		return
	}

	sessionToken, err := h.sessionToken(user.ID)
	if err != nil {
		log.Printf("login link session token failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"token": sessionToken})
}

// RequestPasswordReset stores the hash of a fresh high-entropy token with a
// 10-minute expiry and emails the raw token. The response body never reveals
// whether the account exists.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		respondMessage(w, http.StatusBadRequest, "Email is required.")
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("password reset lookup failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if user == nil {
		respondMessage(w, http.StatusOK, genericResetMessage)
		return
	}

	rawToken, err := randomToken()
	if err != nil {
		log.Printf("password reset token generation failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	expiry := time.Now().Add(resetTokenTTL)
	if err := h.db.SetPasswordResetToken(r.Context(), req.Email, hashToken(rawToken), expiry); err != nil {
		log.Printf("password reset store failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", h.cfg.AppBaseURL, rawToken)
	body := fmt.Sprintf(`<p>Click <a href="%s">here</a> to reset your password.</p><p>This link will expire in 10 minutes.</p>`, resetURL)
	if err := h.mailer.Send(req.Email, "InvestMind - Reset Your Password", body); err != nil {
		log.Printf("password reset mail failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	respondMessage(w, http.StatusOK, genericResetMessage)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword redeems a reset token. Consumption is a single atomic
// update, so a token works at most once.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" || req.Password == "" {
		respondMessage(w, http.StatusBadRequest, "Missing token or password.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("password reset hash failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	ok, err := h.db.ConsumePasswordResetToken(r.Context(), hashToken(req.Token), string(hash))
	if err != nil {
		log.Printf("password reset consume failed: %v", err)
		respondMessage(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !ok {
		respondMessage(w, http.StatusBadRequest, "Invalid or expired token.")
		return
	}

	respondMessage(w, http.StatusOK, "Password updated successfully.")
}

func (h *AuthHandler) getOrCreateUser(r *http.Request, email string, passwordHash *string) (*models.User, error) {
	u, err := h.db.GetUserByEmail(r.Context(), email)
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}

	u = &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := h.db.CreateUser(r.Context(), u); err != nil {
		// Link requests don't care who created the row; reuse the winner's.
		if errors.Is(err, core.ErrEmailTaken) && passwordHash == nil {
			return h.db.GetUserByEmail(r.Context(), email)
		}
		return nil, err
	}
	return u, nil
}

// sessionToken creates a signed stateless token carrying the user ID.
func (h *AuthHandler) sessionToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(sessionTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.cfg.JWTSecret))
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken is the one-way transform applied before a reset token touches
// the database.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
