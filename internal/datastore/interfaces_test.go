// interfaces_test.go: datastore CRUD tests against a temporary SQLite file.
package datastore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
)

func openTestStore(t *testing.T) Interface {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store := New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestNewSelectsBackend(t *testing.T) {
	sqliteSettings := &conf.Settings{}
	sqliteSettings.Output.SQLite.Enabled = true
	_, ok := New(sqliteSettings).(*SQLiteStore)
	assert.True(t, ok)

	mysqlSettings := &conf.Settings{}
	mysqlSettings.Output.MySQL.Enabled = true
	_, ok = New(mysqlSettings).(*MySQLStore)
	assert.True(t, ok)

	assert.Nil(t, New(&conf.Settings{}))
}

func TestDetectionLifecycle(t *testing.T) {
	store := openTestStore(t)

	det := Detection{
		CameraID:    "cam-1",
		Label:       "weapons",
		Confidence:  0.91,
		ThreatLevel: ThreatHigh,
		X1:          10, Y1: 20, X2: 110, Y2: 220,
		DetectedAt: time.Now(),
	}
	require.NoError(t, store.SaveDetection(&det))
	require.NotZero(t, det.ID)
	assert.Equal(t, StatusPending, det.Status)

	got, err := store.GetDetection(det.ID)
	require.NoError(t, err)
	assert.Equal(t, "weapons", got.Label)
	assert.Equal(t, ThreatHigh, got.ThreatLevel)

	require.NoError(t, store.UpdateDetectionStatus(det.ID, StatusVerified))
	got, err = store.GetDetection(det.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusVerified, got.Status)

	err = store.UpdateDetectionStatus(9999, StatusDismissed)
	assert.True(t, Is(err, gorm.ErrRecordNotFound))

	recent, err := store.GetRecentDetections(10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestAlertsSince(t *testing.T) {
	store := openTestStore(t)

	now := time.Now()
	old := Alert{Label: "noMask", CameraID: "cam-1", ThreatLevel: ThreatLow, CreatedAt: now.Add(-48 * time.Hour)}
	fresh := Alert{Label: "weapons", CameraID: "cam-2", ThreatLevel: ThreatHigh, CreatedAt: now}
	require.NoError(t, store.SaveAlert(&old))
	require.NoError(t, store.SaveAlert(&fresh))

	alerts, err := store.AlertsSince(now.Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "weapons", alerts[0].Label)
}

func TestCameraOperations(t *testing.T) {
	store := openTestStore(t)

	cam, err := store.AddCamera("Entrance", "http://cam-1/feed")
	require.NoError(t, err)
	assert.NotEmpty(t, cam.CameraID)
	assert.True(t, cam.Active)

	// lookup works by external ID and by name
	byID, err := store.GetCamera(cam.CameraID)
	require.NoError(t, err)
	assert.Equal(t, cam.ID, byID.ID)

	byName, err := store.GetCamera("Entrance")
	require.NoError(t, err)
	assert.Equal(t, cam.ID, byName.ID)

	count, err := store.ActiveCameraCount()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, store.SetCameraActive(cam.CameraID, false))
	count, err = store.ActiveCameraCount()
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	cameras, err := store.ListCameras()
	require.NoError(t, err)
	assert.Len(t, cameras, 1)

	_, err = store.GetCamera("missing")
	assert.True(t, Is(err, gorm.ErrRecordNotFound))
}

func TestUserOperations(t *testing.T) {
	store := openTestStore(t)

	user := User{Name: "Guard", Email: "guard@example.com", PasswordHash: "hash"}
	require.NoError(t, store.CreateUser(&user))
	assert.NotEmpty(t, user.UID)
	assert.Equal(t, RolePersonnel, user.Role)
	assert.Equal(t, "english", user.Language)

	// duplicate email is rejected by the unique index
	dup := User{Name: "Other", Email: "guard@example.com", PasswordHash: "hash"}
	assert.Error(t, store.CreateUser(&dup))

	byEmail, err := store.GetUserByEmail("guard@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.UID, byEmail.UID)

	require.NoError(t, store.SetUserLanguage(user.UID, "arabic"))
	got, err := store.GetUser(user.UID)
	require.NoError(t, err)
	assert.Equal(t, "arabic", got.Language)
}

func TestEnsureDefaultAdmin(t *testing.T) {
	store := openTestStore(t)

	admin, err := store.EnsureDefaultAdmin("Administrator", "admin@example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, admin.Role)

	// second call returns the existing account
	again, err := store.EnsureDefaultAdmin("Administrator", "admin@example.com", "other-hash")
	require.NoError(t, err)
	assert.Equal(t, admin.UID, again.UID)
	assert.Equal(t, "hash", again.PasswordHash)

	// an existing non-admin account is promoted
	user := User{Name: "Former guard", Email: "promoted@example.com", PasswordHash: "h", Role: RolePersonnel}
	require.NoError(t, store.CreateUser(&user))
	promoted, err := store.EnsureDefaultAdmin("Administrator", "promoted@example.com", "h")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, promoted.Role)
}

func TestSystemState(t *testing.T) {
	store := openTestStore(t)

	// default state before anything is stored
	state, err := store.GetSystemState()
	require.NoError(t, err)
	assert.False(t, state.Running)
	assert.Equal(t, ThreatLow, state.ThreatLevel)

	require.NoError(t, store.SetSystemRunning(true))
	require.NoError(t, store.SetThreatLevel(ThreatHigh))

	state, err = store.GetSystemState()
	require.NoError(t, err)
	assert.True(t, state.Running)
	assert.Equal(t, ThreatHigh, state.ThreatLevel)

	require.NoError(t, store.SetSystemRunning(false))
	state, err = store.GetSystemState()
	require.NoError(t, err)
	assert.False(t, state.Running)
	// threat level survives the running flip
	assert.Equal(t, ThreatHigh, state.ThreatLevel)
}
