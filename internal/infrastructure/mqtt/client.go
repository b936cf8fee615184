package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/smarthome-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang for publishing registry events.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	connected bool
	connMu    sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is satisfied by logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament for offline detection
//  3. Connects with a timeout
//  4. Publishes a retained online status
//
// Parameters:
//   - cfg: MQTT configuration
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrConnectionFailed if the broker is unreachable within the timeout
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		topics: NewTopics(cfg.TopicPrefix),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.setConnected(true)
		c.publishStatus("online", "")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		if logger := c.getLogger(); logger != nil {
			logger.Warn("mqtt connection lost", "error", err)
		}
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Info("mqtt reconnecting")
		}
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnect handler runs asynchronously.
	c.setConnected(true)

	return c, nil
}

func (c *Client) setConnected(v bool) {
	c.connMu.Lock()
	c.connected = v
	c.connMu.Unlock()
}

func (c *Client) publishStatus(status, reason string) pahomqtt.Token {
	payload := buildStatusPayload(status, c.cfg.Broker.ClientID, reason)
	return c.client.Publish(c.topics.SystemStatus(), byte(c.cfg.QoS), true, payload)
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// Close publishes a graceful offline status and disconnects.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus("offline", "graceful_shutdown").WaitTimeout(defaultPublishTimeout)
	}

	c.client.Disconnect(defaultDisconnectQuiesce)
	c.setConnected(false)

	return nil
}

// HealthCheck reports ErrNotConnected while the broker connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected returns the last known connection state.
func (c *Client) IsConnected() bool {
	if c == nil || c.client == nil {
		return false
	}
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// SetLogger sets a logger for connection events.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
