package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

const egllPayload = `{
	"meta": {"timestamp": "2024-06-12T17:01:12Z"},
	"raw": "EGLL 121650Z 24012KT 9999 SCT035 18/09 Q1015",
	"station": "EGLL",
	"time": {"repr": "121650Z", "dt": "2024-06-12T16:50:00Z"},
	"altimeter": {"repr": "Q1015", "value": 1015, "spoken": "one zero one five"},
	"temperature": {"repr": "18", "value": 18},
	"dewpoint": {"repr": "09", "value": 9},
	"wind_speed": {"repr": "12", "value": 12},
	"wind_direction": {"repr": "240", "value": 240},
	"wind_gust": null,
	"visibility": {"repr": "9999", "value": 9999},
	"flight_rules": "VFR",
	"units": {"accumulation": "in", "altimeter": "hPa", "altitude": "ft", "temperature": "C", "visibility": "m", "wind_speed": "kt"}
}`

func TestAvwxClient_Update(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metar/EGLL" {
			t.Errorf("path = %q, want /metar/EGLL", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		w.Write([]byte(egllPayload))
	}))
	defer srv.Close()

	c := NewAvwxClient("secret", srv.URL, testConfig(), zap.NewNop())
	report, units, err := c.Update(context.Background(), "EGLL")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if auth != "BEARER secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if report.Altimeter == nil || *report.Altimeter.Value != 1015 || report.Altimeter.Repr != "Q1015" {
		t.Errorf("Altimeter = %+v", report.Altimeter)
	}
	if report.Time == nil || report.Time.Time == nil || report.Time.Time.Hour() != 16 {
		t.Errorf("Time = %+v", report.Time)
	}
	if report.WindGust != nil {
		t.Errorf("WindGust = %+v, want nil", report.WindGust)
	}
	if units == nil || units.Visibility != "m" || units.Altimeter != "hPa" {
		t.Errorf("units = %+v", units)
	}
	if report.Source != "avwx" {
		t.Errorf("Source = %q", report.Source)
	}
}

func TestAvwxClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "XXXX is not a valid ICAO station ident"}`))
	}))
	defer srv.Close()

	c := NewAvwxClient("secret", srv.URL, testConfig(), zap.NewNop())
	_, _, err := c.Update(context.Background(), "XXXX")
	if err == nil {
		t.Fatal("Update() error = nil, want error")
	}
}

func TestAvwxClient_EmptyRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"station": "KJFK"}`))
	}))
	defer srv.Close()

	c := NewAvwxClient("secret", srv.URL, testConfig(), zap.NewNop())
	if _, _, err := c.Update(context.Background(), "KJFK"); !errors.Is(err, ErrNoReport) {
		t.Fatalf("error = %v, want ErrNoReport", err)
	}
}
