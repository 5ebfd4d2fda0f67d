package mqtt

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/rs/zerolog"

	"github.com/prevairwatch/prevairwatch/internal/device"
)

// DefaultDiscoveryPrefix is the Home Assistant discovery prefix.
const DefaultDiscoveryPrefix = "homeassistant"

// topicRoot prefixes every state and availability topic.
const topicRoot = "prevair"

// ErrNotStarted is returned by operations that need a broker connection.
var ErrNotStarted = errors.New("mqtt publisher not started")

// Config holds the broker connection settings.
type Config struct {
	// Broker is the broker URL, e.g. mqtt://localhost:1883 or mqtts://host:8883.
	Broker   string
	Username string
	Password string

	// DeviceName names the HA device and the topic subtree.
	DeviceName string

	// DiscoveryPrefix defaults to DefaultDiscoveryPrefix.
	DiscoveryPrefix string
}

// DeviceSource lists the devices to announce on (re-)connect.
type DeviceSource interface {
	List(ctx context.Context) ([]*device.Device, error)
}

// connection is the subset of the autopaho connection manager used to publish.
type connection interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
}

// Publisher mirrors devices to Home Assistant. It implements device.Publisher.
type Publisher struct {
	cfg        Config
	instanceID string
	info       DeviceInfo
	source     DeviceSource
	logger     zerolog.Logger

	mu   sync.Mutex
	conn connection
	cm   *autopaho.ConnectionManager
}

var _ device.Publisher = (*Publisher)(nil)

// New creates a Publisher but does not connect. Call [Publisher.Start] to
// connect.
func New(cfg Config, instanceID, version string, source DeviceSource, logger zerolog.Logger) *Publisher {
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	return &Publisher{
		cfg:        cfg,
		instanceID: instanceID,
		info:       NewDeviceInfo(instanceID, cfg.DeviceName, version),
		source:     source,
		logger:     logger.With().Str("component", "mqtt").Logger(),
	}
}

// Start connects to the broker. It returns once the connection manager is
// running; autopaho keeps reconnecting in the background until ctx is
// cancelled.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   p.availabilityTopic(),
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info().Str("broker", p.cfg.Broker).Msg("mqtt connected to broker")
			p.announce(ctx, cm)
		},
		OnConnectError: func(err error) {
			p.logger.Warn().Err(err).Msg("mqtt connection error")
		},
		ClientConfig: paho.ClientConfig{
			ClientID: "prevairwatch-" + p.cfg.DeviceName,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	p.mu.Lock()
	p.cm = cm
	p.conn = cm
	p.mu.Unlock()

	return nil
}

// AwaitConnection blocks until the broker connection is up or ctx expires.
func (p *Publisher) AwaitConnection(ctx context.Context) error {
	p.mu.Lock()
	cm := p.cm
	p.mu.Unlock()

	if cm == nil {
		return ErrNotStarted
	}
	return cm.AwaitConnection(ctx)
}

// Stop publishes "offline" and disconnects.
func (p *Publisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	cm := p.cm
	p.mu.Unlock()

	if cm == nil {
		return nil
	}
	p.publishAvailability(ctx, cm, "offline")
	return cm.Disconnect(ctx)
}

// PublishDevice publishes the discovery config, state and attributes of a
// device. Before Start it is a no-op: the device is announced on connect.
func (p *Publisher) PublishDevice(ctx context.Context, d *device.Device) error {
	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	if conn == nil {
		return nil
	}

	var errs []error
	for _, msg := range p.deviceMessages(d) {
		if _, err := conn.Publish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", msg.Topic, err))
		}
	}
	return errors.Join(errs...)
}

// --- Topic helpers ---

func (p *Publisher) baseTopic() string {
	return topicRoot + "/" + p.cfg.DeviceName
}

func (p *Publisher) availabilityTopic() string {
	return p.baseTopic() + "/availability"
}

func (p *Publisher) stateTopic(entity string) string {
	return p.baseTopic() + "/" + entity + "/state"
}

func (p *Publisher) attributesTopic(entity string) string {
	return p.baseTopic() + "/" + entity + "/attributes"
}

func (p *Publisher) discoveryTopic(entity string) string {
	return p.cfg.DiscoveryPrefix + "/sensor/" + p.cfg.DeviceName + "/" + entity + "/config"
}

// --- Payloads ---

func (p *Publisher) sensorConfig(d *device.Device) SensorConfig {
	entity := EntityID(d)
	cfg := SensorConfig{
		Name:                d.Name,
		UniqueID:            p.instanceID + "_" + entity,
		StateTopic:          p.stateTopic(entity),
		AvailabilityTopic:   p.availabilityTopic(),
		JsonAttributesTopic: p.attributesTopic(entity),
		Device:              p.info,
		Icon:                iconFor(d),
		EnabledByDefault:    d.Used,
	}
	if d.Kind == device.KindCustom {
		cfg.UnitOfMeasurement = d.UnitLabel
		cfg.StateClass = "measurement"
	}
	return cfg
}

// deviceMessages returns the retained discovery, state and attributes
// messages of a device. The state is omitted until the device has a value.
func (p *Publisher) deviceMessages(d *device.Device) []*paho.Publish {
	entity := EntityID(d)
	msgs := make([]*paho.Publish, 0, 3)

	if payload, err := json.Marshal(p.sensorConfig(d)); err != nil {
		p.logger.Error().Err(err).Str("entity", entity).Msg("mqtt marshal discovery payload")
	} else {
		msgs = append(msgs, &paho.Publish{Topic: p.discoveryTopic(entity), Payload: payload, QoS: 1, Retain: true})
	}

	if !d.HasValue() {
		return msgs
	}

	msgs = append(msgs, &paho.Publish{Topic: p.stateTopic(entity), Payload: []byte(d.Value), QoS: 0, Retain: true})

	if payload, err := json.Marshal(attributesFor(d)); err != nil {
		p.logger.Error().Err(err).Str("entity", entity).Msg("mqtt marshal attributes payload")
	} else {
		msgs = append(msgs, &paho.Publish{Topic: p.attributesTopic(entity), Payload: payload, QoS: 0, Retain: true})
	}

	return msgs
}

// announce publishes availability and every known device after a (re-)connect.
func (p *Publisher) announce(ctx context.Context, conn connection) {
	p.publishAvailability(ctx, conn, "online")

	if p.source == nil {
		return
	}

	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	devices, err := p.source.List(listCtx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("mqtt list devices for discovery")
		return
	}

	for _, d := range devices {
		for _, msg := range p.deviceMessages(d) {
			if _, err := conn.Publish(ctx, msg); err != nil {
				p.logger.Warn().Err(err).Str("topic", msg.Topic).Msg("mqtt discovery publish failed")
			}
		}
	}
	p.logger.Debug().Int("devices", len(devices)).Msg("mqtt discovery published")
}

func (p *Publisher) publishAvailability(ctx context.Context, conn connection, status string) {
	if _, err := conn.Publish(ctx, &paho.Publish{
		Topic:   p.availabilityTopic(),
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		p.logger.Warn().Err(err).Str("status", status).Msg("mqtt availability publish failed")
		return
	}
	p.logger.Info().Str("status", status).Msg("mqtt availability published")
}
