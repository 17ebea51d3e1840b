// validate.go: validation of loaded settings.
package conf

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError holds all validation failures for a settings struct.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks the loaded settings for invalid or inconsistent values.
func ValidateSettings(settings *Settings) error {
	if settings == nil {
		return errors.New("settings is nil")
	}

	ve := ValidationError{}

	validateWebServerSettings(settings, &ve)
	validateOutputSettings(settings, &ve)
	validateDetectorSettings(settings, &ve)
	validateRealtimeSettings(settings, &ve)
	validateSecuritySettings(settings, &ve)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *Settings, ve *ValidationError) {
	if !settings.WebServer.Enabled {
		return
	}
	port, err := strconv.Atoi(settings.WebServer.Port)
	if err != nil || port < 1 || port > 65535 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("invalid web server port: %q", settings.WebServer.Port))
	}
}

func validateOutputSettings(settings *Settings, ve *ValidationError) {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		ve.Errors = append(ve.Errors, "only one database output can be enabled at a time")
	}
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		ve.Errors = append(ve.Errors, "at least one database output must be enabled")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		ve.Errors = append(ve.Errors, "SQLite database path must not be empty")
	}
	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Host == "" || settings.Output.MySQL.Database == "" {
			ve.Errors = append(ve.Errors, "MySQL host and database must not be empty")
		}
	}
}

func validateDetectorSettings(settings *Settings, ve *ValidationError) {
	d := &settings.Detector
	if d.ModelPath == "" {
		ve.Errors = append(ve.Errors, "detector model path must not be empty")
	}
	if d.InputSize <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("detector input size must be positive, got %d", d.InputSize))
	}
	if d.Threshold < 0.1 || d.Threshold > 1.0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("detector threshold must be between 0.1 and 1.0, got %.2f", d.Threshold))
	}
	if d.IoU <= 0 || d.IoU >= 1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("detector IoU threshold must be between 0 and 1, got %.2f", d.IoU))
	}
	if d.Threads < 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("detector thread count must not be negative, got %d", d.Threads))
	}
}

func validateRealtimeSettings(settings *Settings, ve *ValidationError) {
	a := &settings.Realtime.Alerts
	if a.FlushDelay <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("alert flush delay must be positive, got %d", a.FlushDelay))
	}
	if a.DedupInterval < 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("alert dedup interval must not be negative, got %d", a.DedupInterval))
	}
	if a.SnapshotLimit <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("snapshot alert limit must be positive, got %d", a.SnapshotLimit))
	}
	if settings.Realtime.Cameras.FrameInterval <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("camera frame interval must be positive, got %d", settings.Realtime.Cameras.FrameInterval))
	}
	if settings.Realtime.MQTT.Enabled && settings.Realtime.MQTT.Broker == "" {
		ve.Errors = append(ve.Errors, "MQTT broker must not be empty when MQTT is enabled")
	}
}

func validateSecuritySettings(settings *Settings, ve *ValidationError) {
	s := &settings.Security
	if s.AdminEmail == "" {
		ve.Errors = append(ve.Errors, "bootstrap admin email must not be empty")
	}
	if s.SessionTTL <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("session TTL must be positive, got %d", s.SessionTTL))
	}
	if s.BcryptCost < 4 || s.BcryptCost > 31 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("bcrypt cost must be between 4 and 31, got %d", s.BcryptCost))
	}
}
