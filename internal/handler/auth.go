package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/tradedock/internal/security/audit"
	"github.com/yourorg/tradedock/internal/security/auth"
	"github.com/yourorg/tradedock/internal/security/middleware"
	"github.com/yourorg/tradedock/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	cookies     *auth.SessionCookies
	audit       *audit.Logger
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, cookies *auth.SessionCookies, auditLog *audit.Logger, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		audit:       auditLog,
		logger:      logger,
	}
}

// CredentialsRequest is the register/login payload
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error       string              `json:"error"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.authService.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("registration failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			writeValidationError(w, ve)
		case errors.Is(err, service.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "an error occurred during registration")
		}
		return
	}

	h.audit.LogRegistration(r.Context(), result.User.ID, "success")
	h.cookies.Set(w, result.Token)
	writeJSON(w, http.StatusCreated, result)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	result, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.audit.LogLogin(r.Context(), "", "failure")
			writeError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "an error occurred during login")
		return
	}

	h.audit.LogLogin(r.Context(), result.User.ID, "success")
	h.cookies.Set(w, result.Token)
	writeJSON(w, http.StatusOK, result)
}

// ChangePasswordRequest is the password change payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword handles PUT /api/auth/password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req ChangePasswordRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}

	if err := h.authService.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			writeValidationError(w, ve)
		case errors.Is(err, service.ErrInvalidCredentials):
			h.audit.LogAction(r.Context(), user.ID, "change_password", "account", user.ID, "failure", "")
			writeError(w, http.StatusUnauthorized, service.ErrInvalidCredentials.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	h.audit.LogAction(r.Context(), user.ID, "change_password", "account", user.ID, "success", "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// Logout handles POST /api/auth/logout; clearing the cookie is all a
// stateless bearer session needs
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if user := middleware.UserFromContext(r.Context()); user != nil {
		h.audit.LogAction(r.Context(), user.ID, "logout", "session", "", "success", "")
	}
	h.cookies.Clear(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /api/auth/me. Session resolution already ran; absence of
// a user means the token was missing, invalid, expired, or orphaned.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	writeJSON(w, http.StatusOK, service.UserInfo{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		log.Warn("failed to decode request",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid request")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeValidationError(w http.ResponseWriter, ve *service.ValidationError) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:       "invalid fields",
		FieldErrors: ve.Fields,
	})
}
