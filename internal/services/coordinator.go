package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobby-s-dev/aviationweather/internal/models"
	"github.com/bobby-s-dev/aviationweather/pkg/client"
	"go.uber.org/zap"
)

// Coordinator owns the cached report of one station and refreshes it through
// the METAR client. Listeners run after every refresh, successful or not.
type Coordinator struct {
	name     string
	icao     string
	client   client.MetarClient
	interval time.Duration
	logger   *zap.Logger

	refreshing atomic.Bool

	mu                sync.RWMutex
	data              *models.Report
	units             *models.Units
	lastUpdateSuccess bool
	lastUpdate        time.Time
	lastErr           error
	successCount      int
	failureCount      int
	listeners         map[int]func()
	nextListener      int
}

func NewCoordinator(name, icao string, c client.MetarClient, interval time.Duration, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		name:      name,
		icao:      icao,
		client:    c,
		interval:  interval,
		logger:    logger.With(zap.String("coordinator", name), zap.String("station", icao)),
		listeners: make(map[int]func()),
	}
}

// FirstRefresh runs the initial refresh of a config entry. A failure means the
// entry is not ready yet.
func (c *Coordinator) FirstRefresh(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("config entry not ready: %w", err)
	}
	return nil
}

// Refresh replaces the cached report with the client's latest one. A call made
// while another refresh is in flight returns immediately.
func (c *Coordinator) Refresh(ctx context.Context) error {
	if !c.refreshing.CompareAndSwap(false, true) {
		c.logger.Debug("Refresh already in progress, skipping")
		return nil
	}
	defer c.refreshing.Store(false)

	startTime := time.Now()
	report, units, err := c.client.Update(ctx, c.icao)

	c.mu.Lock()
	c.lastUpdate = time.Now()
	if err != nil {
		c.lastUpdateSuccess = false
		c.lastErr = err
		c.failureCount++
	} else {
		c.data = report
		c.units = units
		c.lastUpdateSuccess = true
		c.lastErr = nil
		c.successCount++
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("Error fetching data",
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err))
	} else {
		c.logger.Debug("Finished fetching data",
			zap.Duration("duration", time.Since(startTime)))
	}

	c.notify()
	return err
}

// AddListener registers fn to run after each refresh and returns a func that
// removes it.
func (c *Coordinator) AddListener(fn func()) func() {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) notify() {
	c.mu.RLock()
	listeners := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}

func (c *Coordinator) Data() *models.Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data
}

func (c *Coordinator) Units() *models.Units {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.units
}

func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdateSuccess
}

func (c *Coordinator) ICAO() string {
	return c.icao
}

func (c *Coordinator) Status() models.CoordinatorStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := models.CoordinatorStatus{
		Name:              c.name,
		Station:           c.icao,
		LastUpdateSuccess: c.lastUpdateSuccess,
		LastUpdate:        c.lastUpdate,
		UpdateInterval:    c.interval.String(),
		SuccessCount:      c.successCount,
		FailureCount:      c.failureCount,
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}
	return status
}
