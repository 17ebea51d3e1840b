// interfaces.go: interface and shared GORM implementation for database operations.
package datastore

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
)

// Interface abstracts the underlying database implementation and defines the
// operations used by the pipeline and the API.
type Interface interface {
	Open() error
	Close() error

	// detections
	SaveDetection(detection *Detection) error
	GetDetection(id uint) (Detection, error)
	UpdateDetectionStatus(id uint, status string) error
	GetRecentDetections(limit int) ([]Detection, error)

	// alerts
	SaveAlert(alert *Alert) error
	AlertsSince(since time.Time, limit int) ([]Alert, error)

	// cameras
	ListCameras() ([]Camera, error)
	GetCamera(cameraID string) (Camera, error)
	AddCamera(name, source string) (Camera, error)
	SetCameraActive(cameraID string, active bool) error
	ActiveCameraCount() (int64, error)

	// users
	CreateUser(user *User) error
	GetUser(uid string) (User, error)
	GetUserByEmail(email string) (User, error)
	SetUserLanguage(uid, language string) error
	EnsureDefaultAdmin(name, email, passwordHash string) (User, error)

	// system state
	SetSystemRunning(running bool) error
	SetThreatLevel(level string) error
	GetSystemState() (SystemState, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a new datastore instance based on the configured output.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&User{}, &Camera{}, &Detection{}, &Alert{}, &SystemState{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// SaveDetection stores a detection record.
func (ds *DataStore) SaveDetection(detection *Detection) error {
	if detection.Status == "" {
		detection.Status = StatusPending
	}
	if err := ds.DB.Create(detection).Error; err != nil {
		return fmt.Errorf("saving detection: %w", err)
	}
	return nil
}

// GetDetection retrieves a detection by its ID.
func (ds *DataStore) GetDetection(id uint) (Detection, error) {
	var detection Detection
	if err := ds.DB.First(&detection, id).Error; err != nil {
		return Detection{}, fmt.Errorf("getting detection with ID %d: %w", id, err)
	}
	return detection, nil
}

// UpdateDetectionStatus sets the review status of a detection.
func (ds *DataStore) UpdateDetectionStatus(id uint, status string) error {
	result := ds.DB.Model(&Detection{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("updating detection %d status: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("updating detection %d status: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// GetRecentDetections returns the most recent detections, newest first.
func (ds *DataStore) GetRecentDetections(limit int) ([]Detection, error) {
	var detections []Detection
	err := ds.DB.Order("detected_at DESC").Limit(limit).Find(&detections).Error
	if err != nil {
		return nil, fmt.Errorf("getting recent detections: %w", err)
	}
	return detections, nil
}

// SaveAlert stores an alert feed entry.
func (ds *DataStore) SaveAlert(alert *Alert) error {
	if err := ds.DB.Create(alert).Error; err != nil {
		return fmt.Errorf("saving alert: %w", err)
	}
	return nil
}

// AlertsSince returns alerts created at or after the given time, newest
// first, capped at limit.
func (ds *DataStore) AlertsSince(since time.Time, limit int) ([]Alert, error) {
	var alerts []Alert
	err := ds.DB.Where("created_at >= ?", since).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("getting alerts since %s: %w", since.Format(time.RFC3339), err)
	}
	return alerts, nil
}

// ListCameras returns all registered cameras.
func (ds *DataStore) ListCameras() ([]Camera, error) {
	var cameras []Camera
	if err := ds.DB.Order("id").Find(&cameras).Error; err != nil {
		return nil, fmt.Errorf("listing cameras: %w", err)
	}
	return cameras, nil
}

// GetCamera retrieves a camera by its external ID or name.
func (ds *DataStore) GetCamera(cameraID string) (Camera, error) {
	var camera Camera
	err := ds.DB.Where("camera_id = ? OR name = ?", cameraID, cameraID).First(&camera).Error
	if err != nil {
		return Camera{}, fmt.Errorf("getting camera %q: %w", cameraID, err)
	}
	return camera, nil
}

// AddCamera registers a new camera and returns it.
func (ds *DataStore) AddCamera(name, source string) (Camera, error) {
	camera := Camera{
		CameraID: uuid.NewString(),
		Name:     name,
		Source:   source,
		Active:   true,
	}
	if err := ds.DB.Create(&camera).Error; err != nil {
		return Camera{}, fmt.Errorf("adding camera %q: %w", name, err)
	}
	return camera, nil
}

// SetCameraActive flips the active flag of a camera.
func (ds *DataStore) SetCameraActive(cameraID string, active bool) error {
	result := ds.DB.Model(&Camera{}).Where("camera_id = ?", cameraID).Update("active", active)
	if result.Error != nil {
		return fmt.Errorf("updating camera %q active flag: %w", cameraID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("updating camera %q active flag: %w", cameraID, gorm.ErrRecordNotFound)
	}
	return nil
}

// ActiveCameraCount returns the number of cameras marked active.
func (ds *DataStore) ActiveCameraCount() (int64, error) {
	var count int64
	if err := ds.DB.Model(&Camera{}).Where("active = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting active cameras: %w", err)
	}
	return count, nil
}

// CreateUser stores a new user account. The UID is generated when empty.
func (ds *DataStore) CreateUser(user *User) error {
	if user.UID == "" {
		user.UID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = RolePersonnel
	}
	if user.Language == "" {
		user.Language = "english"
	}
	if err := ds.DB.Create(user).Error; err != nil {
		return fmt.Errorf("creating user %q: %w", user.Email, err)
	}
	return nil
}

// GetUser retrieves a user by UID.
func (ds *DataStore) GetUser(uid string) (User, error) {
	var user User
	if err := ds.DB.Where("uid = ?", uid).First(&user).Error; err != nil {
		return User{}, fmt.Errorf("getting user %q: %w", uid, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (ds *DataStore) GetUserByEmail(email string) (User, error) {
	var user User
	if err := ds.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return User{}, fmt.Errorf("getting user by email %q: %w", email, err)
	}
	return user, nil
}

// SetUserLanguage updates a user's language preference.
func (ds *DataStore) SetUserLanguage(uid, language string) error {
	result := ds.DB.Model(&User{}).Where("uid = ?", uid).Update("language", language)
	if result.Error != nil {
		return fmt.Errorf("updating language for user %q: %w", uid, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("updating language for user %q: %w", uid, gorm.ErrRecordNotFound)
	}
	return nil
}

// EnsureDefaultAdmin creates the bootstrap admin account if no user exists
// with the given email. An existing account is always promoted to admin.
func (ds *DataStore) EnsureDefaultAdmin(name, email, passwordHash string) (User, error) {
	var user User
	err := ds.DB.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		if user.Role != RoleAdmin {
			if err := ds.DB.Model(&user).Update("role", RoleAdmin).Error; err != nil {
				return User{}, fmt.Errorf("promoting default admin: %w", err)
			}
			user.Role = RoleAdmin
		}
		return user, nil
	case Is(err, gorm.ErrRecordNotFound):
		user = User{
			UID:          uuid.NewString(),
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Role:         RoleAdmin,
			Language:     "english",
		}
		if err := ds.DB.Create(&user).Error; err != nil {
			return User{}, fmt.Errorf("creating default admin: %w", err)
		}
		return user, nil
	default:
		return User{}, fmt.Errorf("looking up default admin: %w", err)
	}
}

// SetSystemRunning updates the singleton system running flag.
func (ds *DataStore) SetSystemRunning(running bool) error {
	return ds.upsertSystemState(func(state *SystemState) {
		state.Running = running
	})
}

// SetThreatLevel updates the singleton system threat level.
func (ds *DataStore) SetThreatLevel(level string) error {
	return ds.upsertSystemState(func(state *SystemState) {
		state.ThreatLevel = level
	})
}

// GetSystemState returns the singleton system state, defaulting to a stopped
// low-threat state when none has been stored yet.
func (ds *DataStore) GetSystemState() (SystemState, error) {
	var state SystemState
	err := ds.DB.First(&state).Error
	if err != nil {
		if Is(err, gorm.ErrRecordNotFound) {
			return SystemState{Running: false, ThreatLevel: ThreatLow}, nil
		}
		return SystemState{}, fmt.Errorf("getting system state: %w", err)
	}
	return state, nil
}

func (ds *DataStore) upsertSystemState(update func(*SystemState)) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var state SystemState
		err := tx.First(&state).Error
		if err != nil && !Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("loading system state: %w", err)
		}
		if Is(err, gorm.ErrRecordNotFound) {
			state = SystemState{ThreatLevel: ThreatLow}
		}
		update(&state)
		state.UpdatedAt = time.Now()
		if err := tx.Save(&state).Error; err != nil {
			return fmt.Errorf("saving system state: %w", err)
		}
		return nil
	})
}
