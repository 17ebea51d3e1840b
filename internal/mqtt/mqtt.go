// Package mqtt provides an abstraction for MQTT client functionality.
package mqtt

import (
	"context"
	"time"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
)

// Client defines the interface for the surveillance MQTT output.
type Client interface {
	// Connect attempts to establish a connection to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends a message to the given topic.
	Publish(ctx context.Context, topic, payload string) error

	// IsConnected reports whether the client is currently connected.
	IsConnected() bool

	// Disconnect closes the connection to the broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
}

// NewClient creates a new MQTT client from application settings.
func NewClient(settings *conf.Settings) Client {
	clientID := settings.Main.Name
	if clientID == "" {
		clientID = "mallwatch"
	}

	return &client{
		config: Config{
			Broker:            settings.Realtime.MQTT.Broker,
			ClientID:          clientID,
			Username:          settings.Realtime.MQTT.Username,
			Password:          settings.Realtime.MQTT.Password,
			ReconnectCooldown: 5 * time.Second,
			ConnectTimeout:    30 * time.Second,
			PublishTimeout:    10 * time.Second,
		},
	}
}
