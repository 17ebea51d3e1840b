// security_test.go: tests for password hashing and session management.
package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
	"github.com/victorakor/mall-surveillance-system/internal/datastore"
)

func securitySettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Security.SessionTTL = 60
	settings.Security.BcryptCost = 4 // min cost keeps tests fast
	return settings
}

func TestHashAndVerifyPassword(t *testing.T) {
	m := NewManager(securitySettings())

	hash, err := m.HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, m.VerifyPassword(hash, "s3cret"))
	assert.False(t, m.VerifyPassword(hash, "wrong"))
}

func TestSessionLifecycle(t *testing.T) {
	m := NewManager(securitySettings())
	user := &datastore.User{
		UID:   "uid-1",
		Name:  "Victor",
		Email: "victor@example.com",
		Role:  datastore.RoleAdmin,
	}

	session := m.CreateSession(user)
	require.NotEmpty(t, session.Token)

	got, ok := m.Lookup(session.Token)
	require.True(t, ok)
	assert.Equal(t, "uid-1", got.UID)
	assert.Equal(t, datastore.RoleAdmin, got.Role)

	m.Revoke(session.Token)
	_, ok = m.Lookup(session.Token)
	assert.False(t, ok)
}

func TestLookupUnknownToken(t *testing.T) {
	m := NewManager(securitySettings())
	_, ok := m.Lookup("not-a-token")
	assert.False(t, ok)
}

func TestActiveAdminsCountsOnlyAdmins(t *testing.T) {
	m := NewManager(securitySettings())
	assert.Equal(t, 0, m.ActiveAdmins())

	admin := m.CreateSession(&datastore.User{UID: "a", Role: datastore.RoleAdmin})
	m.CreateSession(&datastore.User{UID: "p", Role: datastore.RolePersonnel})
	assert.Equal(t, 1, m.ActiveAdmins())

	m.Revoke(admin.Token)
	assert.Equal(t, 0, m.ActiveAdmins())
}
