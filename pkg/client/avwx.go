package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bobby-s-dev/aviationweather/internal/models"
	"go.uber.org/zap"
)

const DefaultAvwxURL = "https://avwx.rest/api"

// AvwxClient reads parsed METARs from the AVWX REST API. Units pass through
// from the report.
type AvwxClient struct {
	*BaseClient
	token   string
	baseURL string
}

type AvwxMetarResponse struct {
	Raw           string            `json:"raw"`
	Station       string            `json:"station"`
	Time          *models.Timestamp `json:"time"`
	Altimeter     *models.Number    `json:"altimeter"`
	Temperature   *models.Number    `json:"temperature"`
	Dewpoint      *models.Number    `json:"dewpoint"`
	WindSpeed     *models.Number    `json:"wind_speed"`
	WindDirection *models.Number    `json:"wind_direction"`
	WindGust      *models.Number    `json:"wind_gust"`
	Visibility    *models.Number    `json:"visibility"`
	FlightRules   string            `json:"flight_rules"`
	Units         *AvwxUnits        `json:"units"`
	Error         string            `json:"error"`
}

type AvwxUnits struct {
	Accumulation string `json:"accumulation"`
	Altimeter    string `json:"altimeter"`
	Altitude     string `json:"altitude"`
	Temperature  string `json:"temperature"`
	Visibility   string `json:"visibility"`
	WindSpeed    string `json:"wind_speed"`
}

func NewAvwxClient(token, baseURL string, config ClientConfig, logger *zap.Logger) *AvwxClient {
	if baseURL == "" {
		baseURL = DefaultAvwxURL
	}
	return &AvwxClient{
		BaseClient: NewBaseClient("avwx", config, logger),
		token:      token,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *AvwxClient) Update(ctx context.Context, icao string) (*models.Report, *models.Units, error) {
	if icao == "" {
		return nil, nil, ErrStationRequired
	}

	endpoint := fmt.Sprintf("%s/metar/%s", c.baseURL, url.PathEscape(icao))
	header := http.Header{}
	header.Set("Authorization", "BEARER "+c.token)

	data, err := c.Get(ctx, endpoint, header)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch METAR for %s: %w", icao, err)
	}

	var response AvwxMetarResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if response.Error != "" {
		return nil, nil, fmt.Errorf("avwx: %s", response.Error)
	}
	if response.Raw == "" {
		return nil, nil, fmt.Errorf("%s: %w", icao, ErrNoReport)
	}

	report := &models.Report{
		Station:       response.Station,
		Raw:           response.Raw,
		Time:          response.Time,
		Altimeter:     response.Altimeter,
		Temperature:   response.Temperature,
		Dewpoint:      response.Dewpoint,
		WindSpeed:     response.WindSpeed,
		WindDirection: response.WindDirection,
		WindGust:      response.WindGust,
		Visibility:    response.Visibility,
		FlightRules:   response.FlightRules,
		Source:        "avwx",
	}

	var units *models.Units
	if response.Units != nil {
		units = &models.Units{
			Altimeter:   response.Units.Altimeter,
			Visibility:  response.Units.Visibility,
			Temperature: response.Units.Temperature,
			WindSpeed:   response.Units.WindSpeed,
		}
	}

	return report, units, nil
}
