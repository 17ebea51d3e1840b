// client.go: paho-based implementation of the MQTT client interface.
package mqtt

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/victorakor/mall-surveillance-system/internal/errors"
	"github.com/victorakor/mall-surveillance-system/internal/logging"
)

// client implements the Client interface.
type client struct {
	config          Config
	internalClient  pahomqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	logger          *slog.Logger
}

// Connect attempts to establish a connection to the MQTT broker. Connection
// attempts are rate limited by the reconnect cooldown so a flapping broker
// cannot trigger a reconnect storm.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.logger == nil {
		c.logger = logging.ForService("mqtt")
	}

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", since).
			Component("mqtt").
			Category(errors.CategoryMQTTConnect).
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnect).
			Context("broker", c.config.Broker).
			Build()
	}

	// resolve the hostname first so DNS failures surface immediately
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Component("mqtt").
				Category(errors.CategoryMQTTConnect).
				Context("host", host).
				Build()
		}
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = pahomqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return errors.Newf("connection timeout").
			Component("mqtt").
			Category(errors.CategoryMQTTConnect).
			Context("broker", c.config.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnect).
			Context("broker", c.config.Broker).
			Build()
	}

	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	token := c.internalClient.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		return errors.Newf("publish timeout").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	return nil
}

// IsConnected returns true if the client is currently connected.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(250)
	}
}

func (c *client) onConnect(_ pahomqtt.Client) {
	if c.logger != nil {
		c.logger.Info("Connected to MQTT broker", "broker", c.config.Broker)
	}
}

func (c *client) onConnectionLost(_ pahomqtt.Client, err error) {
	if c.logger != nil {
		c.logger.Warn("Lost connection to MQTT broker", "broker", c.config.Broker, "error", err)
	}
}
