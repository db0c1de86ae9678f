package events

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/muurk/smartlock/internal/logging"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultRetryInterval     = 5 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second
)

// Errors returned by the MQTT publisher.
var (
	ErrConnectionFailed = errors.New("mqtt connection failed")
	ErrPublishTimeout   = errors.New("mqtt publish timed out")
)

// MQTTConfig configures the MQTT publisher.
type MQTTConfig struct {
	Broker      string // host:port
	TLS         bool
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte

	// ConnectTimeout bounds the initial connection (default 10s).
	ConnectTimeout time.Duration
	// RetryInterval is the wait between connection attempts (default 5s).
	RetryInterval time.Duration
}

func (c MQTTConfig) withDefaults() MQTTConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	return c
}

// Topics builds topic names for one controller.
type Topics struct {
	Prefix   string
	ClientID string
}

// State is the retained lock state topic.
func (t Topics) State() string {
	return fmt.Sprintf("%s/%s/state", t.Prefix, t.ClientID)
}

// Status is the online/offline topic used for the LWT.
func (t Topics) Status() string {
	return fmt.Sprintf("%s/%s/status", t.Prefix, t.ClientID)
}

// MQTTPublisher publishes events with paho.
type MQTTPublisher struct {
	client pahomqtt.Client
	cfg    MQTTConfig
	topics Topics
	log    *zap.Logger
}

func buildClientOptions(cfg MQTTConfig, topics Topics) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s", scheme, cfg.Broker))
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(cfg.RetryInterval)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	// Broker marks us offline if we vanish without a clean disconnect.
	opts.SetWill(topics.Status(), "offline", cfg.QoS, true)

	return opts
}

// NewMQTTPublisher connects to the broker and announces the controller online.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	p := newMQTTPublisher(cfg)
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func newMQTTPublisher(cfg MQTTConfig) *MQTTPublisher {
	cfg = cfg.withDefaults()
	topics := Topics{Prefix: cfg.TopicPrefix, ClientID: cfg.ClientID}
	opts := buildClientOptions(cfg, topics)

	p := &MQTTPublisher{
		cfg:    cfg,
		topics: topics,
		log:    logging.For(logging.ComponentEvents),
	}

	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		p.log.Info("MQTT connected", zap.String("broker", cfg.Broker))
		c.Publish(topics.Status(), cfg.QoS, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		p.log.Warn("MQTT connection lost", zap.Error(err))
	})

	p.client = pahomqtt.NewClient(opts)
	return p
}

// connect waits for the first connection. On failure the client is
// disconnected so paho stops retrying in the background.
func (p *MQTTPublisher) connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.cfg.ConnectTimeout) {
		p.client.Disconnect(0)
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, p.cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		p.client.Disconnect(0)
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// PublishState implements Publisher.
func (p *MQTTPublisher) PublishState(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode lock event: %w", err)
	}

	token := p.client.Publish(p.topics.State(), p.cfg.QoS, true, payload)

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(defaultPublishTimeout):
		return ErrPublishTimeout
	}
}

// Close publishes a clean offline status and disconnects.
func (p *MQTTPublisher) Close() error {
	if p.client.IsConnected() {
		token := p.client.Publish(p.topics.Status(), p.cfg.QoS, true, "offline")
		token.WaitTimeout(defaultPublishTimeout)
	}
	p.client.Disconnect(defaultDisconnectQuiesce)
	return nil
}
