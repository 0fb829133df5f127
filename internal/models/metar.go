package models

import (
	"time"
)

// Number is a single decoded report value together with the text it came from.
type Number struct {
	Repr  string   `json:"repr"`
	Value *float64 `json:"value"`
}

type Timestamp struct {
	Repr string     `json:"repr"`
	Time *time.Time `json:"dt"`
}

// Report is the decoded METAR observation for one station. Any field may be nil
// when the source report does not carry it.
type Report struct {
	Station       string     `json:"station"`
	Raw           string     `json:"raw"`
	Time          *Timestamp `json:"time"`
	Altimeter     *Number    `json:"altimeter"`
	Temperature   *Number    `json:"temperature"`
	Dewpoint      *Number    `json:"dewpoint"`
	WindSpeed     *Number    `json:"wind_speed"`
	WindDirection *Number    `json:"wind_direction"`
	WindGust      *Number    `json:"wind_gust,omitempty"`
	Visibility    *Number    `json:"visibility"`
	FlightRules   string     `json:"flight_rules"`
	Source        string     `json:"source"`
}

// Units describes the measurement units actually used by the source report.
type Units struct {
	Altimeter   string `json:"altimeter"`
	Visibility  string `json:"visibility"`
	Temperature string `json:"temperature"`
	WindSpeed   string `json:"wind_speed"`
}

// Float returns a *Number holding v.
func Float(repr string, v float64) *Number {
	return &Number{Repr: repr, Value: &v}
}
