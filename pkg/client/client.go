package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bobby-s-dev/aviationweather/internal/models"
)

var (
	ErrNoReport        = errors.New("no METAR report available")
	ErrStationRequired = errors.New("station identifier is required")
)

// MetarClient fetches and decodes the latest report for a station.
type MetarClient interface {
	Update(ctx context.Context, icao string) (*models.Report, *models.Units, error)
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
