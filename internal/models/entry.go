package models

import (
	"time"
)

const (
	Domain     = "aviationweather"
	ConfICAOID = "icao_id"

	SourceUser   = "user"
	SourceImport = "import"

	StateLoaded     = "loaded"
	StateSetupRetry = "setup_retry"
	StateNotLoaded  = "not_loaded"
)

// ConfigEntry is one configured station.
type ConfigEntry struct {
	EntryID   string            `json:"entry_id"`
	Domain    string            `json:"domain"`
	Title     string            `json:"title"`
	UniqueID  string            `json:"unique_id"`
	Data      map[string]string `json:"data"`
	Version   int               `json:"version"`
	Source    string            `json:"source"`
	State     string            `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
}

// ICAO returns the station identifier stored in the entry data.
func (e *ConfigEntry) ICAO() string {
	return e.Data[ConfICAOID]
}

type CoordinatorStatus struct {
	Name              string    `json:"name"`
	Station           string    `json:"station"`
	LastUpdateSuccess bool      `json:"last_update_success"`
	LastUpdate        time.Time `json:"last_update"`
	LastError         string    `json:"last_error,omitempty"`
	UpdateInterval    string    `json:"update_interval"`
	SuccessCount      int       `json:"success_count"`
	FailureCount      int       `json:"failure_count"`
}

type SensorState struct {
	EntityID          string `json:"entity_id"`
	UniqueID          string `json:"unique_id"`
	Name              string `json:"name"`
	State             string `json:"state"`
	DeviceClass       string `json:"device_class,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	Available         bool   `json:"available"`
}
