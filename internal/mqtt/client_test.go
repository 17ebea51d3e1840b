// client_test.go: tests for MQTT client behavior that does not need a broker.
package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorakor/mall-surveillance-system/internal/conf"
)

func mqttSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.Main.Name = "mallwatch-test"
	settings.Realtime.MQTT.Broker = "tcp://127.0.0.1:1883"
	settings.Realtime.MQTT.Topic = "mallwatch/alerts"
	return settings
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(mqttSettings())
	require.NotNil(t, c)
	assert.False(t, c.IsConnected())

	impl, ok := c.(*client)
	require.True(t, ok)
	assert.Equal(t, "mallwatch-test", impl.config.ClientID)
	assert.Equal(t, 5*time.Second, impl.config.ReconnectCooldown)
}

func TestNewClientFallbackClientID(t *testing.T) {
	settings := mqttSettings()
	settings.Main.Name = ""

	impl := NewClient(settings).(*client)
	assert.Equal(t, "mallwatch", impl.config.ClientID)
}

func TestConnectCooldown(t *testing.T) {
	impl := NewClient(mqttSettings()).(*client)
	impl.lastConnAttempt = time.Now()

	err := impl.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection attempt too recent")
}

func TestConnectInvalidBroker(t *testing.T) {
	settings := mqttSettings()
	settings.Realtime.MQTT.Broker = "tcp://no-such-host.invalid:1883"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := NewClient(settings).Connect(ctx)
	assert.Error(t, err)
}

func TestPublishWithoutConnection(t *testing.T) {
	c := NewClient(mqttSettings())

	err := c.Publish(context.Background(), "mallwatch/alerts", `{"label":"weapons"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}
