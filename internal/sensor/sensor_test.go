package sensor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bobby-s-dev/aviationweather/internal/models"
)

type fakeSource struct {
	report *models.Report
	units  *models.Units
	ok     bool
}

func (f *fakeSource) Data() *models.Report    { return f.report }
func (f *fakeSource) Units() *models.Units    { return f.units }
func (f *fakeSource) LastUpdateSuccess() bool { return f.ok }

func entityByKey(t *testing.T, entities []*Entity, key string) *Entity {
	t.Helper()
	for _, e := range entities {
		if e.Key() == key {
			return e
		}
	}
	t.Fatalf("no sensor with key %q", key)
	return nil
}

func fullReport() *models.Report {
	obs := time.Date(2024, 6, 12, 16, 51, 0, 0, time.UTC)
	return &models.Report{
		Station:       "KJFK",
		Raw:           "KJFK 121651Z 20011KT 10SM FEW250 26/12 A2989",
		Time:          &models.Timestamp{Repr: "121651Z", Time: &obs},
		Altimeter:     models.Float("A2989", 29.89),
		Temperature:   models.Float("26", 26),
		Dewpoint:      models.Float("M02", -2),
		WindSpeed:     models.Float("00", 0),
		WindDirection: models.Float("200", 200),
		Visibility:    models.Float("10", 10),
		FlightRules:   "VFR",
	}
}

func TestSetupEntry_Identifiers(t *testing.T) {
	entities := SetupEntry("KJFK", &fakeSource{})
	if len(entities) != 9 {
		t.Fatalf("len(entities) = %d, want 9", len(entities))
	}

	e := entityByKey(t, entities, "wind_speed")
	if e.UniqueID() != "aviationweather_kjfk_wind_speed" {
		t.Errorf("UniqueID = %q", e.UniqueID())
	}
	if e.EntityID() != "sensor.aviationweather_kjfk_wind_speed" {
		t.Errorf("EntityID = %q", e.EntityID())
	}
	if e.Name() != "wind speed" {
		t.Errorf("Name = %q", e.Name())
	}

	dev := e.DeviceInfo()
	if dev.Name != "KJFK" || dev.Manufacturer != "AVWX" || dev.EntryType != "service" {
		t.Errorf("DeviceInfo = %+v", dev)
	}
	if len(dev.Identifiers) != 1 || dev.Identifiers[0] != "aviationweather_KJFK" {
		t.Errorf("Identifiers = %v", dev.Identifiers)
	}
}

func TestNativeValue(t *testing.T) {
	src := &fakeSource{report: fullReport(), units: &models.Units{Altimeter: "inHg", Visibility: "sm"}, ok: true}
	entities := SetupEntry("KJFK", src)

	tests := []struct {
		key  string
		want string
	}{
		{key: "raw", want: "KJFK 121651Z 20011KT 10SM FEW250 26/12 A2989"},
		{key: "time", want: "2024-06-12T16:51:00Z"},
		{key: "altimeter", want: "29.89"},
		{key: "temperature", want: "26"},
		{key: "dewpoint", want: "-2"},
		{key: "flight_rules", want: "VFR"},
		{key: "visibility", want: "10"},
		{key: "wind_speed", want: "0"},
		{key: "wind_direction", want: "200"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := entityByKey(t, entities, tt.key).State(); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNativeValue_Absent(t *testing.T) {
	src := &fakeSource{report: &models.Report{
		Station:       "KJFK",
		WindDirection: &models.Number{Repr: "VRB"},
	}, ok: true}

	for _, e := range SetupEntry("KJFK", src) {
		if v := e.NativeValue(); v != nil {
			t.Errorf("%s NativeValue() = %v, want nil", e.Key(), v)
		}
		if e.State() != PayloadNone {
			t.Errorf("%s State() = %q, want %q", e.Key(), e.State(), PayloadNone)
		}
	}
}

func TestNativeValue_NoReport(t *testing.T) {
	for _, e := range SetupEntry("KJFK", &fakeSource{}) {
		if v := e.NativeValue(); v != nil {
			t.Errorf("%s NativeValue() = %v, want nil", e.Key(), v)
		}
		if e.Available() {
			t.Errorf("%s Available() = true without a report", e.Key())
		}
	}
}

func TestUnitOfMeasurement(t *testing.T) {
	tests := []struct {
		name      string
		units     *models.Units
		altimeter string
		vis       string
	}{
		{name: "no units", units: nil, altimeter: "hPa", vis: "m"},
		{name: "empty units", units: &models.Units{}, altimeter: "hPa", vis: "m"},
		{name: "metric", units: &models.Units{Altimeter: "hPa", Visibility: "m"}, altimeter: "hPa", vis: "m"},
		{name: "us", units: &models.Units{Altimeter: "inHg", Visibility: "sm"}, altimeter: "inHg", vis: "mi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := SetupEntry("KJFK", &fakeSource{report: fullReport(), units: tt.units, ok: true})
			if got := entityByKey(t, entities, "altimeter").UnitOfMeasurement(); got != tt.altimeter {
				t.Errorf("altimeter unit = %q, want %q", got, tt.altimeter)
			}
			if got := entityByKey(t, entities, "visibility").UnitOfMeasurement(); got != tt.vis {
				t.Errorf("visibility unit = %q, want %q", got, tt.vis)
			}
			if got := entityByKey(t, entities, "temperature").UnitOfMeasurement(); got != UnitCelsius {
				t.Errorf("temperature unit = %q", got)
			}
		})
	}
}

func TestDiscoveryConfig(t *testing.T) {
	topics := Topics{DiscoveryPrefix: "homeassistant", StatePrefix: "aviationweather"}
	src := &fakeSource{report: fullReport(), ok: true}
	e := entityByKey(t, SetupEntry("KJFK", src), "wind_direction")

	if got := topics.Discovery(e); got != "homeassistant/sensor/aviationweather_kjfk/wind_direction/config" {
		t.Errorf("Discovery topic = %q", got)
	}

	payload, err := json.Marshal(e.DiscoveryConfig(topics))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := map[string]string{
		"unique_id":           "aviationweather_kjfk_wind_direction",
		"state_topic":         "aviationweather/kjfk/wind_direction/state",
		"device_class":        "wind_direction",
		"state_class":         "measurement_angle",
		"unit_of_measurement": "°",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %q", k, got[k], v)
		}
	}
	avail := got["availability"].([]any)
	if len(avail) != 2 {
		t.Fatalf("availability = %v, want station and bridge topics", avail)
	}
	if topic := avail[0].(map[string]any)["topic"]; topic != "aviationweather/kjfk/availability" {
		t.Errorf("station availability topic = %v", topic)
	}
	if topic := avail[1].(map[string]any)["topic"]; topic != "aviationweather/status" {
		t.Errorf("bridge availability topic = %v", topic)
	}
	if got["availability_mode"] != "all" {
		t.Errorf("availability_mode = %v, want all", got["availability_mode"])
	}
	if _, ok := got["device"].(map[string]any)["entry_type"]; ok {
		t.Error("device payload must not carry entry_type")
	}
}

func TestDiscoveryConfig_OmitsEmptyClasses(t *testing.T) {
	topics := Topics{DiscoveryPrefix: "homeassistant", StatePrefix: "aviationweather"}
	e := entityByKey(t, SetupEntry("EGLL", &fakeSource{}), "raw")

	payload, _ := json.Marshal(e.DiscoveryConfig(topics))
	var got map[string]any
	json.Unmarshal(payload, &got)

	for _, k := range []string{"device_class", "state_class", "unit_of_measurement"} {
		if _, ok := got[k]; ok {
			t.Errorf("%s present in raw sensor config", k)
		}
	}
}
