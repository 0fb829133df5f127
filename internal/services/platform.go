package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bobby-s-dev/aviationweather/internal/models"
	"github.com/bobby-s-dev/aviationweather/internal/sensor"
	"go.uber.org/zap"
)

// Publisher delivers retained messages to Home Assistant. An empty payload
// clears the retained message.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// SensorPlatform announces the sensors of a station through MQTT discovery and
// keeps their state topics current.
type SensorPlatform struct {
	topics    sensor.Topics
	publisher Publisher
	logger    *zap.Logger
}

func NewSensorPlatform(topics sensor.Topics, publisher Publisher, logger *zap.Logger) *SensorPlatform {
	return &SensorPlatform{
		topics:    topics,
		publisher: publisher,
		logger:    logger,
	}
}

// Announce marks the service online. It runs on every broker connect since an
// unclean disconnect leaves the retained last will behind.
func (p *SensorPlatform) Announce() error {
	if err := p.publisher.Publish(p.topics.Bridge(), []byte(sensor.PayloadOnline)); err != nil {
		return fmt.Errorf("publish service availability: %w", err)
	}
	p.logger.Info("Service availability published", zap.String("topic", p.topics.Bridge()))
	return nil
}

// Withdraw marks the service offline before a clean shutdown.
func (p *SensorPlatform) Withdraw() error {
	if err := p.publisher.Publish(p.topics.Bridge(), []byte(sensor.PayloadOffline)); err != nil {
		return fmt.Errorf("publish service availability: %w", err)
	}
	return nil
}

// PlatformEntry tracks the sensors of one forwarded config entry.
type PlatformEntry struct {
	platform *SensorPlatform
	icao     string
	entities []*sensor.Entity

	mu    sync.Mutex
	units map[string]string
}

// Forward builds the station's sensors and publishes their discovery configs.
func (p *SensorPlatform) Forward(entry *models.ConfigEntry, source sensor.DataSource) (*PlatformEntry, error) {
	pe := &PlatformEntry{
		platform: p,
		icao:     entry.ICAO(),
		entities: sensor.SetupEntry(entry.ICAO(), source),
		units:    make(map[string]string),
	}

	for _, e := range pe.entities {
		if err := p.publishDiscovery(e); err != nil {
			return nil, err
		}
		pe.units[e.Key()] = e.UnitOfMeasurement()
	}

	p.logger.Info("Sensors forwarded",
		zap.String("entry_id", entry.EntryID),
		zap.String("station", pe.icao),
		zap.Int("sensors", len(pe.entities)))

	return pe, nil
}

// Update publishes every sensor state. A sensor whose unit changed with the
// source report gets its discovery config republished first.
func (pe *PlatformEntry) Update(available bool) {
	p := pe.platform

	if !available {
		pe.publishAvailability(sensor.PayloadOffline)
		return
	}

	pe.mu.Lock()
	defer pe.mu.Unlock()

	for _, e := range pe.entities {
		unit := e.UnitOfMeasurement()
		if unit != pe.units[e.Key()] {
			p.logger.Info("Sensor unit changed",
				zap.String("entity_id", e.EntityID()),
				zap.String("from", pe.units[e.Key()]),
				zap.String("to", unit))
			if err := p.publishDiscovery(e); err != nil {
				p.logger.Warn("Failed to republish discovery config",
					zap.String("entity_id", e.EntityID()),
					zap.Error(err))
				continue
			}
			pe.units[e.Key()] = unit
		}

		if err := p.publisher.Publish(p.topics.State(e), []byte(e.State())); err != nil {
			p.logger.Warn("Failed to publish sensor state",
				zap.String("entity_id", e.EntityID()),
				zap.Error(err))
		}
	}

	pe.publishAvailability(sensor.PayloadOnline)
}

func (pe *PlatformEntry) Unload() {
	pe.publishAvailability(sensor.PayloadOffline)
}

func (pe *PlatformEntry) Entities() []*sensor.Entity {
	return pe.entities
}

func (pe *PlatformEntry) publishAvailability(payload string) {
	p := pe.platform
	if err := p.publisher.Publish(p.topics.Availability(pe.icao), []byte(payload)); err != nil {
		p.logger.Warn("Failed to publish availability",
			zap.String("station", pe.icao),
			zap.String("payload", payload),
			zap.Error(err))
	}
}

func (p *SensorPlatform) publishDiscovery(e *sensor.Entity) error {
	payload, err := json.Marshal(e.DiscoveryConfig(p.topics))
	if err != nil {
		return fmt.Errorf("marshal discovery config for %s: %w", e.EntityID(), err)
	}
	if err := p.publisher.Publish(p.topics.Discovery(e), payload); err != nil {
		return fmt.Errorf("publish discovery config for %s: %w", e.EntityID(), err)
	}
	return nil
}

// Remove clears the retained discovery, state and availability topics of a
// station so Home Assistant drops its entities and device.
func (p *SensorPlatform) Remove(icao string) error {
	var firstErr error
	for _, e := range sensor.SetupEntry(icao, nil) {
		for _, topic := range []string{p.topics.Discovery(e), p.topics.State(e)} {
			if err := p.publisher.Publish(topic, nil); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("clear %s: %w", topic, err)
			}
		}
	}
	if err := p.publisher.Publish(p.topics.Availability(icao), nil); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("clear availability: %w", err)
	}
	return firstErr
}
