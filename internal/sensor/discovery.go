package sensor

import (
	"fmt"
	"strings"

	"github.com/bobby-s-dev/aviationweather/internal/models"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics lays out the MQTT topics for stations and their sensors.
type Topics struct {
	DiscoveryPrefix string
	StatePrefix     string
}

func (t Topics) Discovery(e *Entity) string {
	return fmt.Sprintf("%s/sensor/%s_%s/%s/config",
		t.DiscoveryPrefix, models.Domain, strings.ToLower(e.icao), e.desc.Key)
}

func (t Topics) State(e *Entity) string {
	return fmt.Sprintf("%s/%s/%s/state", t.StatePrefix, strings.ToLower(e.icao), e.desc.Key)
}

func (t Topics) Availability(icao string) string {
	return fmt.Sprintf("%s/%s/availability", t.StatePrefix, strings.ToLower(icao))
}

// Bridge is the availability topic of the service itself. It carries the MQTT
// last will.
func (t Topics) Bridge() string {
	return t.StatePrefix + "/status"
}

type Availability struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

// DiscoveryConfig is the Home Assistant MQTT discovery payload for one sensor.
type DiscoveryConfig struct {
	Name              string         `json:"name"`
	UniqueID          string         `json:"unique_id"`
	ObjectID          string         `json:"object_id"`
	StateTopic        string         `json:"state_topic"`
	Availability      []Availability `json:"availability"`
	AvailabilityMode  string         `json:"availability_mode"`
	DeviceClass       string         `json:"device_class,omitempty"`
	StateClass        string         `json:"state_class,omitempty"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
	Icon              string         `json:"icon,omitempty"`
	Device            DeviceInfo     `json:"device"`
}

func (e *Entity) DiscoveryConfig(t Topics) DiscoveryConfig {
	return DiscoveryConfig{
		Name:       e.Name(),
		UniqueID:   e.UniqueID(),
		ObjectID:   e.ObjectID(),
		StateTopic: t.State(e),
		// Both the station and the service must be online
		Availability: []Availability{
			{Topic: t.Availability(e.icao), PayloadAvailable: PayloadOnline, PayloadNotAvailable: PayloadOffline},
			{Topic: t.Bridge(), PayloadAvailable: PayloadOnline, PayloadNotAvailable: PayloadOffline},
		},
		AvailabilityMode:  "all",
		DeviceClass:       e.DeviceClass(),
		StateClass:        e.StateClass(),
		UnitOfMeasurement: e.UnitOfMeasurement(),
		Icon:              e.desc.Icon,
		Device:            e.DeviceInfo(),
	}
}
