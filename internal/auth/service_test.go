package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/workforce-hr/workforce/internal/shared"
)

type memoryRepo struct {
	users    map[string]*User
	err      error
	sessions []string
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (m *memoryRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	m.sessions = append(m.sessions, id)
	return nil
}

func (m *memoryRepo) DeleteSession(ctx context.Context, id string) error { return nil }

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestAuthenticate(t *testing.T) {
	repo := &memoryRepo{users: map[string]*User{
		"ada@example.com":  {ID: 1, Email: "ada@example.com", PasswordHash: hashed(t, "correct horse"), IsActive: true},
		"gone@example.com": {ID: 2, Email: "gone@example.com", PasswordHash: hashed(t, "correct horse")},
	}}
	svc := NewService(repo)
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "ada@example.com", "correct horse")
	if err != nil || user.ID != 1 {
		t.Fatalf("expected ada, got %v, %v", user, err)
	}

	cases := map[string][2]string{
		"wrong password": {"ada@example.com", "battery staple"},
		"unknown email":  {"nobody@example.com", "correct horse"},
		"inactive user":  {"gone@example.com", "correct horse"},
	}
	for name, c := range cases {
		if _, err := svc.Authenticate(ctx, c[0], c[1]); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("%s: expected invalid credentials, got %v", name, err)
		}
	}
}

func TestAuthenticateSurfacesStorageFailures(t *testing.T) {
	down := errors.New("connection refused")
	svc := NewService(&memoryRepo{err: down})

	_, err := svc.Authenticate(context.Background(), "ada@example.com", "correct horse")
	if !errors.Is(err, down) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
	if errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatal("storage failures must not look like bad credentials")
	}
}

func TestRegisterSessionValidatesRecord(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.RegisterSession(ctx, SessionRecord{UserID: 1}); err == nil {
		t.Fatal("expected error for record without id")
	}
	if err := svc.RegisterSession(ctx, SessionRecord{ID: "abc"}); err == nil {
		t.Fatal("expected error for record without user")
	}
	if err := svc.RegisterSession(ctx, SessionRecord{ID: "abc", UserID: 1}); err != nil {
		t.Fatalf("register session: %v", err)
	}
	if len(repo.sessions) != 1 || repo.sessions[0] != "abc" {
		t.Fatalf("unexpected sessions %v", repo.sessions)
	}
}

func TestDisplayNameFallsBackToEmail(t *testing.T) {
	u := &User{Email: "ada@example.com"}
	if got := u.DisplayName(); got != "ada@example.com" {
		t.Fatalf("expected email fallback, got %q", got)
	}
	u.Name = "Ada"
	if got := u.DisplayName(); got != "Ada" {
		t.Fatalf("expected name, got %q", got)
	}
}

func TestSessionExpiryIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, loc)
	got := sessionExpiry(now, 2*time.Hour)
	if got.Location() != time.UTC || !got.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("unexpected expiry %v", got)
	}
}
