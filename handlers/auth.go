package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"moviemate/internal/auth"
	"moviemate/services/accounts"
	"moviemate/services/sessions"
)

// AuthHandler handles registration, login and session management.
type AuthHandler struct {
	accounts *accounts.Service
	sessions *sessions.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accountsSvc *accounts.Service, sessionsSvc *sessions.Service) *AuthHandler {
	return &AuthHandler{accounts: accountsSvc, sessions: sessionsSvc}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a new account and logs it in immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Create(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, accounts.ErrUsernameExists):
			writeJSONError(w, "username already exists", http.StatusConflict)
		case errors.Is(err, accounts.ErrUsernameRequired), errors.Is(err, accounts.ErrPasswordRequired):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("[Auth] Register error: %v", err)
			writeJSONError(w, "failed to create account", http.StatusInternalServerError)
		}
		return
	}

	session, err := h.sessions.Create(account.ID, account.IsMaster, r.UserAgent(), clientIP(r))
	if err != nil {
		log.Printf("[Auth] Session create error: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":   session.Token,
		"account": account,
	})
}

// Login verifies credentials and issues a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Authenticate(req.Username, req.Password)
	if err != nil {
		writeJSONError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}

	session, err := h.sessions.Create(account.ID, account.IsMaster, r.UserAgent(), clientIP(r))
	if err != nil {
		log.Printf("[Auth] Session create error: %v", err)
		writeJSONError(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":   session.Token,
		"account": account,
	})
}

// Logout revokes the current session token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.GetSession(r)
	if !ok {
		writeJSONError(w, "no active session", http.StatusUnauthorized)
		return
	}
	if err := h.sessions.Revoke(session.Token); err != nil && !errors.Is(err, sessions.ErrSessionNotFound) {
		log.Printf("[Auth] Logout error: %v", err)
		writeJSONError(w, "failed to revoke session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the account behind the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	account, ok := h.accounts.Get(auth.GetAccountID(r))
	if !ok {
		writeJSONError(w, "account not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword updates the caller's password and revokes their other
// sessions.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	accountID := auth.GetAccountID(r)
	account, ok := h.accounts.Get(accountID)
	if !ok {
		writeJSONError(w, "account not found", http.StatusNotFound)
		return
	}
	if _, err := h.accounts.Authenticate(account.Username, req.CurrentPassword); err != nil {
		writeJSONError(w, "current password is incorrect", http.StatusUnauthorized)
		return
	}
	if err := h.accounts.UpdatePassword(accountID, req.NewPassword); err != nil {
		if errors.Is(err, accounts.ErrPasswordRequired) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("[Auth] Password change error: %v", err)
		writeJSONError(w, "failed to update password", http.StatusInternalServerError)
		return
	}
	h.sessions.RevokeAllForAccount(accountID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// ListAccounts returns every account, master first. Reachable by master
// accounts only.
func (h *AuthHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.accounts.List())
}

// DeleteAccount removes an account and revokes its sessions. Reachable by
// master accounts only; the master account itself cannot be deleted.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	if err := h.accounts.Delete(accountID); err != nil {
		switch {
		case errors.Is(err, accounts.ErrAccountNotFound):
			writeJSONError(w, "account not found", http.StatusNotFound)
		case errors.Is(err, accounts.ErrCannotDeleteMaster):
			writeJSONError(w, "the master account cannot be deleted", http.StatusForbidden)
		default:
			log.Printf("[Auth] Delete account error: %v", err)
			writeJSONError(w, "failed to delete account", http.StatusInternalServerError)
		}
		return
	}
	h.sessions.RevokeAllForAccount(accountID)
	w.WriteHeader(http.StatusNoContent)
}

// Options handles CORS preflight
func (h *AuthHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.IndexByte(forwarded, ','); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx > 0 {
		host = host[:idx]
	}
	return host
}
