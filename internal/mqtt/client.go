package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("mqtt client stopped")

type Config struct {
	Broker   string
	Port     int
	ClientID string
	Username string
	Password string

	// WillTopic receives WillPayload when the connection drops uncleanly.
	WillTopic   string
	WillPayload string

	// OnConnect runs after every successful connect and reconnect.
	OnConnect func()
}

// Client publishes retained QoS 1 messages to the Home Assistant broker.
type Client struct {
	client paho.Client
	cfg    Config
	logger *zap.Logger

	publishTimeout time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	c := &Client{
		cfg:            cfg,
		logger:         logger,
		publishTimeout: 5 * time.Second,
		stopCh:         make(chan struct{}),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.WillTopic != "" {
		opts.SetWill(cfg.WillTopic, cfg.WillPayload, 1, true)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})

	c.client = paho.NewClient(opts)
	return c
}

// Connect waits for the initial connection. It returns early when ctx is done
// or the client is disconnected.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return ErrStopped
	default:
	}

	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return ErrStopped
		default:
		}
	}
}

// Publish sends a retained message. A nil payload clears the retained message
// on the topic.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	if payload == nil {
		payload = []byte{}
	}

	token := c.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(c.publishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	c.logger.Debug("Published message",
		zap.String("topic", topic),
		zap.Int("size", len(payload)))
	return nil
}

// IsConnected reports whether the connection is up. It is false while paho is
// reconnecting.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// handleConnect runs on the paho connect goroutine. The broker may have
// published the last will since the previous connection, so the hook has to
// run every time.
func (c *Client) handleConnect() {
	c.logger.Info("MQTT connected",
		zap.String("broker", c.cfg.Broker),
		zap.Int("port", c.cfg.Port))

	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect()
	}
}

// Disconnect stops the client. Safe to call more than once.
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })

	if c.client != nil {
		c.client.Disconnect(250)
	}

	c.logger.Info("MQTT disconnected")
}
