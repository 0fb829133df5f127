package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bobby-s-dev/aviationweather/internal/models"
	"go.uber.org/zap"
)

const DefaultAviationWeatherURL = "https://aviationweather.gov/api/data"

// AviationWeatherClient reads decoded METARs from the aviationweather.gov data API.
// It needs no API key.
type AviationWeatherClient struct {
	*BaseClient
	baseURL string
}

type AviationWeatherMetar struct {
	IcaoID     string          `json:"icaoId"`
	ObsTime    int64           `json:"obsTime"`
	ReportTime string          `json:"reportTime"`
	Temp       *float64        `json:"temp"`
	Dewp       *float64        `json:"dewp"`
	Wdir       json.RawMessage `json:"wdir"`
	Wspd       *float64        `json:"wspd"`
	Wgst       *float64        `json:"wgst"`
	Visib      json.RawMessage `json:"visib"`
	Altim      *float64        `json:"altim"`
	RawOb      string          `json:"rawOb"`
	FltCat     string          `json:"fltCat"`
}

func NewAviationWeatherClient(baseURL string, config ClientConfig, logger *zap.Logger) *AviationWeatherClient {
	if baseURL == "" {
		baseURL = DefaultAviationWeatherURL
	}
	return &AviationWeatherClient{
		BaseClient: NewBaseClient("aviationweather", config, logger),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *AviationWeatherClient) Update(ctx context.Context, icao string) (*models.Report, *models.Units, error) {
	if icao == "" {
		return nil, nil, ErrStationRequired
	}

	q := url.Values{}
	q.Set("ids", icao)
	q.Set("format", "json")
	endpoint := fmt.Sprintf("%s/metar?%s", c.baseURL, q.Encode())

	data, err := c.Get(ctx, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch METAR for %s: %w", icao, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", icao, ErrNoReport)
	}

	var response []AviationWeatherMetar
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response) == 0 {
		return nil, nil, fmt.Errorf("%s: %w", icao, ErrNoReport)
	}

	// The API lists the most recent observation first
	report := response[0].toReport()
	units := &models.Units{
		Altimeter:   "hPa",
		Visibility:  "sm",
		Temperature: "C",
		WindSpeed:   "kt",
	}

	return report, units, nil
}

func (m AviationWeatherMetar) toReport() *models.Report {
	report := &models.Report{
		Station:       m.IcaoID,
		Raw:           m.RawOb,
		Temperature:   pointerNumber(m.Temp),
		Dewpoint:      pointerNumber(m.Dewp),
		WindDirection: flexibleNumber(m.Wdir),
		WindSpeed:     pointerNumber(m.Wspd),
		WindGust:      pointerNumber(m.Wgst),
		Visibility:    flexibleNumber(m.Visib),
		Altimeter:     pointerNumber(m.Altim),
		FlightRules:   m.FltCat,
		Source:        "aviationweather",
	}

	if m.ObsTime > 0 {
		t := time.Unix(m.ObsTime, 0).UTC()
		report.Time = &models.Timestamp{Repr: t.Format("021504Z"), Time: &t}
	} else if m.ReportTime != "" {
		if t, err := time.Parse(time.RFC3339, m.ReportTime); err == nil {
			t = t.UTC()
			report.Time = &models.Timestamp{Repr: t.Format("021504Z"), Time: &t}
		}
	}

	return report
}

func pointerNumber(v *float64) *models.Number {
	if v == nil {
		return nil
	}
	return models.Float(formatFloat(*v), *v)
}

// flexibleNumber decodes fields the API sends either as a number or as a string
// such as "VRB" or "10+". Non-numeric strings keep their repr with a nil value.
func flexibleNumber(raw json.RawMessage) *models.Number {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil || s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "+"), 64)
		if err != nil {
			return &models.Number{Repr: s}
		}
		return models.Float(s, v)
	}

	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil
	}
	return models.Float(formatFloat(v), v)
}
