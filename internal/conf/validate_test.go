// validate_test.go: tests for settings validation.
package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.WebServer.Enabled = true
	s.WebServer.Port = "8000"
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "mallwatch.db"
	s.Detector.ModelPath = "model/best_float32.tflite"
	s.Detector.InputSize = 640
	s.Detector.Threshold = 0.5
	s.Detector.IoU = 0.45
	s.Realtime.Alerts.FlushDelay = 12
	s.Realtime.Alerts.DedupInterval = 30
	s.Realtime.Alerts.SnapshotLimit = 3
	s.Realtime.Cameras.FrameInterval = 200
	s.Security.AdminEmail = "admin@example.com"
	s.Security.SessionTTL = 720
	s.Security.BcryptCost = 10
	return s
}

func TestValidateSettingsAcceptsDefaults(t *testing.T) {
	assert.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettingsNil(t *testing.T) {
	assert.Error(t, ValidateSettings(nil))
}

func TestValidateSettingsRejectsBadPort(t *testing.T) {
	s := validSettings()
	s.WebServer.Port = "notaport"
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid web server port")
}

func TestValidateSettingsRequiresOneDatabase(t *testing.T) {
	s := validSettings()
	s.Output.SQLite.Enabled = false
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one database output")

	s = validSettings()
	s.Output.MySQL.Enabled = true
	err = ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only one database output")
}

func TestValidateSettingsDetectorBounds(t *testing.T) {
	s := validSettings()
	s.Detector.Threshold = 0.01
	assert.Error(t, ValidateSettings(s))

	s = validSettings()
	s.Detector.IoU = 1.5
	assert.Error(t, ValidateSettings(s))

	s = validSettings()
	s.Detector.ModelPath = ""
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettingsMQTTBroker(t *testing.T) {
	s := validSettings()
	s.Realtime.MQTT.Enabled = true
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MQTT broker")

	s.Realtime.MQTT.Broker = "tcp://localhost:1883"
	assert.NoError(t, ValidateSettings(s))
}

func TestValidateSettingsAggregatesErrors(t *testing.T) {
	s := validSettings()
	s.Detector.ModelPath = ""
	s.Security.AdminEmail = ""

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}
