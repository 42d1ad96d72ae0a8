package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "workforce:session:"

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds per-request session data. A session carries at most one
// active tenant.
type Session struct {
	ID         string
	values     map[string]string
	userID     string
	tenantID   int64
	previousID string
	isNew      bool
	dirty      bool
	destroyed  bool
}

type sessionPayload struct {
	Values   map[string]string `json:"values"`
	UserID   string            `json:"user_id"`
	TenantID int64             `json:"tenant_id,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Unknown or expired ids are never adopted.
			return newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := newSession()
	sess.ID = cookie.Value
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.userID = stored.UserID
	sess.tenantID = stored.TenantID
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.previousID != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.previousID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.previousID = ""
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID, TenantID: sess.tenantID})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with a user ID and drops any tenant bound
// to a previous user.
func (s *Session) SetUser(id int64) {
	s.userID = strconv.FormatInt(id, 10)
	s.tenantID = 0
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	if s == nil {
		return ""
	}
	return s.userID
}

// UserID parses the bound user, reporting false for anonymous sessions.
func (s *Session) UserID() (int64, bool) {
	raw := s.User()
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// SetTenant binds the active tenant.
func (s *Session) SetTenant(id int64) {
	s.tenantID = id
	s.dirty = true
}

// TenantID returns the active tenant, zero when none is bound.
func (s *Session) TenantID() int64 {
	if s == nil {
		return 0
	}
	return s.tenantID
}

// Renew issues a fresh session ID, keeping the data. The old ID is removed
// from Redis on the next Commit.
func (s *Session) Renew() {
	if !s.isNew {
		s.previousID = s.ID
	}
	s.ID = generateSessionID()
	s.isNew = true
	s.dirty = true
}

func newSession() *Session {
	return &Session{
		ID:     generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return sessionKeyPrefix + id
}

func generateSessionID() string {
	return uuid.NewString()
}
