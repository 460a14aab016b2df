package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/observability/metrics"
	"github.com/yourorg/tradedock/internal/repository"
	"github.com/yourorg/tradedock/internal/security/auth"
)

// AuthService handles registration and login
type AuthService struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo domain.UserRepository, tokens *auth.TokenManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		logger:   logger,
	}
}

// AuthResult is the response to a successful register or login
type AuthResult struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo is the safe subset of a user record returned to clients
type UserInfo struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Register creates a new account and issues a session token
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	fields := fieldErrors{}
	if email == "" || !strings.Contains(email, "@") {
		fields.add("email", "a valid email address is required")
	}
	if len(password) < 8 {
		fields.add("password", "password must be at least 8 characters")
	}
	if err := fields.err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		metrics.ObserveAuthAttempt("register", "error")
		return nil, errors.New("failed to register user")
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.ObserveAuthAttempt("register", "duplicate")
			return nil, ErrEmailTaken
		}
		s.logger.Error("failed to create user", slog.String("error", err.Error()))
		metrics.ObserveAuthAttempt("register", "error")
		return nil, errors.New("failed to register user")
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		metrics.ObserveAuthAttempt("register", "error")
		return nil, errors.New("failed to register user")
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	metrics.ObserveAuthAttempt("register", "success")

	return &AuthResult{Token: token, User: userInfo(user)}, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password produce the identical error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Info("login attempt with unknown email", slog.String("email", email))
		metrics.ObserveAuthAttempt("login", "failure")
		return nil, ErrInvalidCredentials
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		metrics.ObserveAuthAttempt("login", "failure")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to sign token",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveAuthAttempt("login", "error")
		return nil, errors.New("failed to log in")
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	metrics.ObserveAuthAttempt("login", "success")

	return &AuthResult{Token: token, User: userInfo(user)}, nil
}

// ChangePassword replaces the caller's password after verifying the
// current one. A wrong current password surfaces as ErrInvalidCredentials.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	fields := fieldErrors{}
	if len(next) < 8 {
		fields.add("newPassword", "password must be at least 8 characters")
	}
	if err := fields.err(); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load user for password change",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return errors.New("failed to change password")
	}

	if !auth.VerifyPassword(current, user.PasswordHash) {
		metrics.ObserveAuthAttempt("change_password", "failure")
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		s.logger.Error("failed to hash password", slog.String("error", err.Error()))
		metrics.ObserveAuthAttempt("change_password", "error")
		return errors.New("failed to change password")
	}

	user.PasswordHash = hash
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("failed to store new password",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		metrics.ObserveAuthAttempt("change_password", "error")
		return errors.New("failed to change password")
	}

	metrics.ObserveAuthAttempt("change_password", "success")
	s.logger.Info("password changed", slog.String("user_id", userID))
	return nil
}

func userInfo(u *domain.User) UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}
