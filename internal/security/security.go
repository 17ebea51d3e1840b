// Package security implements password hashing and bearer token sessions for
// the dashboard API.
package security

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
	"github.com/victorakor/mall-surveillance-system/internal/errors"
	"github.com/victorakor/mall-surveillance-system/internal/logging"
)

// Session is an authenticated bearer token session.
type Session struct {
	Token     string    `json:"token"`
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Language  string    `json:"language"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager issues and validates sessions. Sessions live in an expiring
// in-memory cache, a restart logs everyone out.
type Manager struct {
	settings *conf.Settings
	sessions *cache.Cache
	logger   *slog.Logger
}

// NewManager creates a session manager using the configured session TTL.
func NewManager(settings *conf.Settings) *Manager {
	ttl := time.Duration(settings.Security.SessionTTL) * time.Minute
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Manager{
		settings: settings,
		sessions: cache.New(ttl, 10*time.Minute),
		logger:   logging.ForService("security"),
	}
}

// HashPassword hashes a plaintext password with bcrypt at the configured
// cost.
func (m *Manager) HashPassword(password string) (string, error) {
	cost := m.settings.Security.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.New(err).
			Component("security").
			Category(errors.CategoryAuth).
			Build()
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext password matches the stored
// bcrypt hash.
func (m *Manager) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateSession issues a new bearer token for the user.
func (m *Manager) CreateSession(user *datastore.User) Session {
	ttl := time.Duration(m.settings.Security.SessionTTL) * time.Minute
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	session := Session{
		Token:     uuid.NewString(),
		UID:       user.UID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		Language:  user.Language,
		ExpiresAt: time.Now().Add(ttl),
	}
	m.sessions.Set(session.Token, session, cache.DefaultExpiration)

	if m.logger != nil {
		m.logger.Info("Session created", "uid", user.UID, "role", user.Role)
	}
	return session
}

// Lookup resolves a bearer token to its session.
func (m *Manager) Lookup(token string) (Session, bool) {
	value, found := m.sessions.Get(token)
	if !found {
		return Session{}, false
	}
	session, ok := value.(Session)
	return session, ok
}

// Revoke deletes a session, logging the user out.
func (m *Manager) Revoke(token string) {
	m.sessions.Delete(token)
}

// ActiveAdmins returns the number of live admin sessions. The stop-cameras
// handoff check uses this to decide whether an unauthenticated stop is
// allowed.
func (m *Manager) ActiveAdmins() int {
	count := 0
	for _, item := range m.sessions.Items() {
		if session, ok := item.Object.(Session); ok && session.Role == datastore.RoleAdmin {
			count++
		}
	}
	return count
}
