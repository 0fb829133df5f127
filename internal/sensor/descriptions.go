package sensor

import (
	"github.com/bobby-s-dev/aviationweather/internal/models"
)

// Home Assistant device classes, state classes and units used by the sensors.
const (
	DeviceClassTimestamp           = "timestamp"
	DeviceClassAtmosphericPressure = "atmospheric_pressure"
	DeviceClassTemperature         = "temperature"
	DeviceClassDistance            = "distance"
	DeviceClassWindSpeed           = "wind_speed"
	DeviceClassWindDirection       = "wind_direction"

	StateClassMeasurement      = "measurement"
	StateClassMeasurementAngle = "measurement_angle"

	UnitHectopascal = "hPa"
	UnitCelsius     = "°C"
	UnitMeters      = "m"
	UnitMiles       = "mi"
	UnitKnots       = "kn"
	UnitDegree      = "°"
)

type Description struct {
	Key         string
	Name        string
	Icon        string
	DeviceClass string
	StateClass  string
	Unit        string

	// UnitFor overrides Unit from the units the source report uses.
	UnitFor func(units *models.Units) string
	Value   func(report *models.Report) any
}

var Descriptions = []Description{
	{
		Key:   "raw",
		Name:  "raw",
		Icon:  "mdi:text-box-outline",
		Value: func(r *models.Report) any { return stringValue(r.Raw) },
	},
	{
		Key:         "time",
		Name:        "time",
		DeviceClass: DeviceClassTimestamp,
		Value: func(r *models.Report) any {
			if r.Time == nil || r.Time.Time == nil {
				return nil
			}
			return *r.Time.Time
		},
	},
	{
		Key:         "altimeter",
		Name:        "altimeter",
		DeviceClass: DeviceClassAtmosphericPressure,
		StateClass:  StateClassMeasurement,
		Unit:        UnitHectopascal,
		UnitFor:     altimeterUnit,
		Value:       func(r *models.Report) any { return numberValue(r.Altimeter) },
	},
	{
		Key:         "temperature",
		Name:        "temperature",
		DeviceClass: DeviceClassTemperature,
		StateClass:  StateClassMeasurement,
		Unit:        UnitCelsius,
		Value:       func(r *models.Report) any { return numberValue(r.Temperature) },
	},
	{
		Key:         "dewpoint",
		Name:        "dewpoint",
		DeviceClass: DeviceClassTemperature,
		StateClass:  StateClassMeasurement,
		Unit:        UnitCelsius,
		Value:       func(r *models.Report) any { return numberValue(r.Dewpoint) },
	},
	{
		Key:   "flight_rules",
		Name:  "flight rules",
		Icon:  "mdi:airplane",
		Value: func(r *models.Report) any { return stringValue(r.FlightRules) },
	},
	{
		Key:         "visibility",
		Name:        "visibility",
		DeviceClass: DeviceClassDistance,
		StateClass:  StateClassMeasurement,
		Unit:        UnitMeters,
		UnitFor:     visibilityUnit,
		Value:       func(r *models.Report) any { return numberValue(r.Visibility) },
	},
	{
		Key:         "wind_speed",
		Name:        "wind speed",
		DeviceClass: DeviceClassWindSpeed,
		StateClass:  StateClassMeasurement,
		Unit:        UnitKnots,
		Value:       func(r *models.Report) any { return numberValue(r.WindSpeed) },
	},
	{
		Key:         "wind_direction",
		Name:        "wind direction",
		DeviceClass: DeviceClassWindDirection,
		StateClass:  StateClassMeasurementAngle,
		Unit:        UnitDegree,
		Value:       func(r *models.Report) any { return numberValue(r.WindDirection) },
	},
}

func altimeterUnit(units *models.Units) string {
	if units == nil || units.Altimeter == "" {
		return UnitHectopascal
	}
	return units.Altimeter
}

func visibilityUnit(units *models.Units) string {
	if units == nil || units.Visibility == "" || units.Visibility == "m" {
		return UnitMeters
	}
	return UnitMiles
}

func numberValue(n *models.Number) any {
	if n == nil || n.Value == nil {
		return nil
	}
	return *n.Value
}

func stringValue(s string) any {
	if s == "" {
		return nil
	}
	return s
}
