// config.go: settings struct and functions to load and save the application configuration.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// Log rotation types for file loggers.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig contains settings for a rotated log file.
type LogConfig struct {
	Enabled  bool         // true to enable file logging
	Path     string       // path to log file
	Rotation RotationType // rotation type: daily, weekly or size
	MaxSize  int64        // max log size in bytes for size rotation
}

// MainSettings contains top level application settings.
type MainSettings struct {
	Name string    // node name, used to identify this installation
	Log  LogConfig // main log file settings
}

// WebServerSettings contains settings for the HTTP server.
type WebServerSettings struct {
	Enabled        bool     // true to enable the web server
	Port           string   // port to listen on
	Debug          bool     // true to enable debug mode
	AllowedOrigins []string // CORS allowed origins, "*" to allow all
	Log            LogConfig
}

// SQLiteSettings contains settings for the SQLite database output.
type SQLiteSettings struct {
	Enabled bool   // true to enable SQLite output
	Path    string // path to the SQLite database file
}

// MySQLSettings contains settings for the MySQL database output.
type MySQLSettings struct {
	Enabled  bool   // true to enable MySQL output
	Username string // MySQL username
	Password string // MySQL password
	Database string // MySQL database name
	Host     string // MySQL host
	Port     string // MySQL port
}

// OutputSettings contains database output settings.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// DetectorSettings contains settings for the YOLO object detector.
type DetectorSettings struct {
	ModelPath string  // path to the TensorFlow Lite model file
	LabelPath string  // path to the class label file
	InputSize int     // model input width/height in pixels, square input assumed
	Threshold float64 // confidence threshold for detections, 0.1 to 1.0
	IoU       float64 // IoU threshold for non-maximum suppression
	Threads   int     // number of CPU threads for inference, 0 for all cores
}

// CameraSettings contains settings for camera capture workers.
type CameraSettings struct {
	Sources       []string // default camera source URLs used when the store has no cameras
	FrameInterval int      // milliseconds between processed frames per camera
	ReadBackoff   int      // milliseconds to wait after a failed frame read
	FeedPlacehold string   // path to placeholder JPEG served when a feed is unavailable
}

// AlertSettings controls detection flushing and alert deduplication.
type AlertSettings struct {
	FlushDelay    int // seconds a pending detection is held before it is flushed
	DedupInterval int // minimum seconds between alerts for the same camera and label
	ThreatHold    int // seconds the system threat level is held at high after the last high detection
	SnapshotLimit int // number of recent alerts included in the dashboard snapshot
}

// MQTTSettings contains settings for MQTT alert publishing.
type MQTTSettings struct {
	Enabled  bool   // true to enable MQTT alert publishing
	Broker   string // MQTT broker URL, e.g. tcp://localhost:1883
	Topic    string // topic to publish alerts to
	Username string // MQTT username
	Password string // MQTT password
}

// RealtimeSettings contains settings for the realtime surveillance pipeline.
type RealtimeSettings struct {
	Cameras CameraSettings
	Alerts  AlertSettings
	MQTT    MQTTSettings
	Log     LogConfig
}

// SecuritySettings contains settings for authentication.
type SecuritySettings struct {
	AdminEmail    string // bootstrap admin email, created on startup if missing
	AdminPassword string // bootstrap admin password
	SessionTTL    int    // bearer token lifetime in minutes
	BcryptCost    int    // bcrypt hash cost for stored passwords
}

// Settings contains all application settings.
type Settings struct {
	Debug bool // true to enable debug behavior globally

	Main      MainSettings
	WebServer WebServerSettings
	Output    OutputSettings
	Detector  DetectorSettings
	Realtime  RealtimeSettings
	Security  SecuritySettings

	Version   string `yaml:"-"` // build version, injected at link time
	BuildDate string `yaml:"-"` // build date, injected at link time
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings struct.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Defaults are defined in defaults.go
	setDefaultConfig()

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first default config path.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveSettings saves the current settings to the configuration file.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	settingsCopy := *settingsInstance

	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	log.Printf("Settings saved successfully to %s", configPath)
	return nil
}

// SaveYAMLConfig writes the settings to the YAML configuration file atomically.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary config file: %w", err)
	}
	tmpName := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error writing temporary config file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error closing temporary config file: %w", err)
	}

	if err := os.Rename(tmpName, configPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}
