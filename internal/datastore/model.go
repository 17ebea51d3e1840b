// model.go: data model for the surveillance system.
package datastore

import "time"

// Detection threat levels.
const (
	ThreatLow  = "low"
	ThreatHigh = "high"
)

// Detection review statuses.
const (
	StatusPending   = "pending"
	StatusVerified  = "verified"
	StatusDismissed = "dismissed"
)

// User roles.
const (
	RoleAdmin     = "admin"
	RolePersonnel = "personnel"
)

// User represents a dashboard user account.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	UID          string `gorm:"uniqueIndex;not null"` // stable external identifier
	Name         string
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"` // bcrypt hash, never serialized
	Role         string `gorm:"type:varchar(20);index"`
	Language     string `gorm:"type:varchar(20)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Camera represents a registered camera and its capture source.
type Camera struct {
	ID        uint   `gorm:"primaryKey"`
	CameraID  string `gorm:"uniqueIndex;not null"` // stable external identifier
	Name      string `gorm:"index"`
	Source    string // source URL or device index
	Active    bool   `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Detection represents a single flushed detection event.
type Detection struct {
	ID          uint   `gorm:"primaryKey"`
	CameraID    string `gorm:"index:idx_detections_camera;index:idx_detections_camera_label"`
	Label       string `gorm:"index:idx_detections_label;index:idx_detections_camera_label"`
	Confidence  float64
	ThreatLevel string `gorm:"type:varchar(10);index"`
	Status      string `gorm:"type:varchar(20);index"` // pending, verified or dismissed
	X1          int
	Y1          int
	X2          int
	Y2          int
	FramePath   string // path to the saved annotated frame, if any
	DetectedAt  time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Alert represents an entry in the rolling "alerts today" feed shown on the
// dashboard.
type Alert struct {
	ID          uint   `gorm:"primaryKey"`
	Label       string `gorm:"index"`
	CameraID    string `gorm:"index"`
	Confidence  float64
	ThreatLevel string    `gorm:"type:varchar(10)"`
	CreatedAt   time.Time `gorm:"index"`
}

// SystemState holds the singleton running/threat state of the pipeline.
type SystemState struct {
	ID          uint   `gorm:"primaryKey"`
	Running     bool
	ThreatLevel string `gorm:"type:varchar(10)"`
	UpdatedAt   time.Time
}

// DashboardSnapshot is the JSON shape returned by the status endpoint.
type DashboardSnapshot struct {
	Status        bool    `json:"status"`
	ThreatLevel   string  `json:"threatLevel"`
	CamerasActive int64   `json:"camerasActive"`
	AlertsToday   []Alert `json:"alertsToday"`
}
