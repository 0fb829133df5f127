package sensor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bobby-s-dev/aviationweather/internal/models"
)

const (
	Manufacturer     = "AVWX"
	EntryTypeService = "service"

	// PayloadNone is the state payload Home Assistant reads as an unknown value
	PayloadNone = "None"
)

// DataSource is the read side of a coordinator.
type DataSource interface {
	Data() *models.Report
	Units() *models.Units
	LastUpdateSuccess() bool
}

type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model,omitempty"`
	EntryType    string   `json:"-"`
}

// Entity is one sensor projected out of a station's cached report.
type Entity struct {
	icao   string
	desc   Description
	source DataSource
}

// SetupEntry builds the sensors for one station.
func SetupEntry(icao string, source DataSource) []*Entity {
	entities := make([]*Entity, 0, len(Descriptions))
	for _, desc := range Descriptions {
		entities = append(entities, &Entity{icao: icao, desc: desc, source: source})
	}
	return entities
}

func (e *Entity) Key() string { return e.desc.Key }

func (e *Entity) Name() string { return e.desc.Name }

func (e *Entity) ICAO() string { return e.icao }

func (e *Entity) DeviceClass() string { return e.desc.DeviceClass }

func (e *Entity) StateClass() string { return e.desc.StateClass }

func (e *Entity) ObjectID() string {
	return fmt.Sprintf("%s_%s_%s", models.Domain, strings.ToLower(e.icao), e.desc.Key)
}

func (e *Entity) UniqueID() string {
	return e.ObjectID()
}

func (e *Entity) EntityID() string {
	return "sensor." + e.ObjectID()
}

func (e *Entity) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifiers:  []string{models.Domain + "_" + e.icao},
		Name:         e.icao,
		Manufacturer: Manufacturer,
		Model:        "METAR",
		EntryType:    EntryTypeService,
	}
}

// Available follows the coordinator: a failed refresh makes every sensor of the
// station unavailable.
func (e *Entity) Available() bool {
	return e.source.LastUpdateSuccess() && e.source.Data() != nil
}

// NativeValue returns the sensor's current value or nil when the report, the
// field or its value is absent.
func (e *Entity) NativeValue() any {
	report := e.source.Data()
	if report == nil {
		return nil
	}
	return e.desc.Value(report)
}

func (e *Entity) UnitOfMeasurement() string {
	if e.desc.UnitFor != nil {
		return e.desc.UnitFor(e.source.Units())
	}
	return e.desc.Unit
}

// State renders the native value as a state payload.
func (e *Entity) State() string {
	return FormatState(e.NativeValue())
}

func (e *Entity) Snapshot() models.SensorState {
	return models.SensorState{
		EntityID:          e.EntityID(),
		UniqueID:          e.UniqueID(),
		Name:              e.Name(),
		State:             e.State(),
		DeviceClass:       e.DeviceClass(),
		StateClass:        e.StateClass(),
		UnitOfMeasurement: e.UnitOfMeasurement(),
		Available:         e.Available(),
	}
}

func FormatState(value any) string {
	switch v := value.(type) {
	case nil:
		return PayloadNone
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
