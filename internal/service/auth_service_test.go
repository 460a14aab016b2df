package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/yourorg/tradedock/internal/domain"
	"github.com/yourorg/tradedock/internal/repository"
	"github.com/yourorg/tradedock/internal/security/auth"
)

type memUserRepo struct {
	byID    map[string]*domain.User
	byEmail map[string]*domain.User
	seq     int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byEmail: map[string]*domain.User{}}
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	if _, exists := m.byEmail[u.Email]; exists {
		return repository.ErrDuplicate
	}
	if u.ID == "" {
		m.seq++
		u.ID = "u-" + strconv.Itoa(m.seq)
	}
	u.CreatedAt = time.Now()
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memUserRepo) Update(_ context.Context, u *domain.User) error {
	m.byID[u.ID] = u
	m.byEmail[u.Email] = u
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	if u, ok := m.byID[id]; ok {
		delete(m.byEmail, u.Email)
		delete(m.byID, id)
	}
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *memUserRepo) {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", "tradedock")
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	repo := newMemUserRepo()
	return NewAuthService(repo, tokens, nil), repo
}

func TestRegisterAndLogin(t *testing.T) {
	s, _ := newTestAuthService(t)
	ctx := context.Background()

	r, err := s.Register(ctx, "alice@example.com", "Password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if r.User.ID == "" || r.Token == "" {
		t.Fatalf("expected user id and token")
	}
	if r.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", r.User.Email)
	}

	// duplicate email
	if _, err := s.Register(ctx, "alice@example.com", "Password123"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// email is normalized before the uniqueness check
	if _, err := s.Register(ctx, "  ALICE@example.com ", "Password123"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken for case variant, got %v", err)
	}

	lr, err := s.Login(ctx, "alice@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" {
		t.Fatalf("expected token on login")
	}

	// case-insensitive email on login too
	if _, err := s.Login(ctx, "Alice@Example.COM", "Password123"); err != nil {
		t.Fatalf("login with case variant failed: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s, _ := newTestAuthService(t)
	ctx := context.Background()

	cases := []struct {
		name, email, password, field string
	}{
		{"bad email", "not-an-email", "Password123", "email"},
		{"short password", "bob@example.com", "short", "password"},
	}
	for _, tc := range cases {
		_, err := s.Register(ctx, tc.email, tc.password)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected validation error, got %v", tc.name, err)
		}
		if len(ve.Fields[tc.field]) == 0 {
			t.Fatalf("%s: expected message for field %s, got %v", tc.name, tc.field, ve.Fields)
		}
	}
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestAuthService(t)
	ctx := context.Background()

	r, err := s.Register(ctx, "carol@example.com", "OldPassword1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// too-short replacement is a field error
	err = s.ChangePassword(ctx, r.User.ID, "OldPassword1", "short")
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields["newPassword"]) == 0 {
		t.Fatalf("expected newPassword validation error, got %v", err)
	}

	// wrong current password is rejected
	if err := s.ChangePassword(ctx, r.User.ID, "WrongPassword", "NewPassword1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := s.ChangePassword(ctx, r.User.ID, "OldPassword1", "NewPassword1"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	// the old password no longer works, the new one does
	if _, err := s.Login(ctx, "carol@example.com", "OldPassword1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := s.Login(ctx, "carol@example.com", "NewPassword1"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := s.Register(ctx, "carol@example.com", "Password123"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, unknownErr := s.Login(ctx, "nobody@example.com", "Password123")
	_, wrongErr := s.Login(ctx, "carol@example.com", "WrongPassword")

	if !errors.Is(unknownErr, ErrInvalidCredentials) || !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", unknownErr, wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("unknown-email and wrong-password errors must be identical: %q vs %q",
			unknownErr.Error(), wrongErr.Error())
	}
}

func TestPasswordHashNeverStoredPlain(t *testing.T) {
	s, repo := newTestAuthService(t)

	r, err := s.Register(context.Background(), "dave@example.com", "Password123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	stored := repo.byID[r.User.ID]
	if stored.PasswordHash == "Password123" {
		t.Fatalf("password stored in plaintext")
	}
}
