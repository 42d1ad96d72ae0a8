package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/workforce-hr/workforce/internal/shared"
)

// timingHash is compared against when the account does not exist so unknown
// emails cost the same bcrypt work as wrong passwords.
var timingHash, _ = bcrypt.GenerateFromPassword([]byte("workforce-timing-equaliser"), bcrypt.DefaultCost)

// Service verifies credentials and tracks login sessions.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate checks email and password. Unknown, disabled and mismatching
// accounts all yield shared.ErrInvalidCredentials; storage failures are
// returned wrapped.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(timingHash, []byte(password))
		return nil, shared.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession records a login session row that outlives the Redis entry
// for auditing.
func (s *Service) RegisterSession(ctx context.Context, rec SessionRecord) error {
	if rec.ID == "" || rec.UserID <= 0 {
		return errors.New("auth: session record requires id and user")
	}
	return s.repo.CreateSession(ctx, rec.ID, rec.UserID, rec.ExpiresAt, rec.IP, rec.UserAgent)
}

// RemoveSession deletes the session row written at login.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// sessionExpiry is when a session created at now with ttl lapses.
func sessionExpiry(now time.Time, ttl time.Duration) time.Time {
	return now.Add(ttl).UTC()
}
