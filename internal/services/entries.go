package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bobby-s-dev/aviationweather/internal/flow"
	"github.com/bobby-s-dev/aviationweather/internal/models"
	"github.com/bobby-s-dev/aviationweather/internal/scheduler"
	"github.com/bobby-s-dev/aviationweather/pkg/client"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEntryNotFound     = errors.New("config entry not found")
	ErrAlreadyConfigured = errors.New("station already configured")
)

type JobScheduler interface {
	Add(entryID string, r scheduler.Refresher) error
	Remove(entryID string)
}

// EntryManager sets up, unloads and removes config entries. Each loaded entry
// has one coordinator and, once its first refresh succeeded, a forwarded
// sensor platform.
type EntryManager struct {
	client    client.MetarClient
	interval  time.Duration
	platform  *SensorPlatform
	scheduler JobScheduler
	logger    *zap.Logger

	mu      sync.RWMutex
	entries map[string]*models.ConfigEntry
	loaded  map[string]*loadedEntry
}

type loadedEntry struct {
	coordinator    *Coordinator
	removeListener func()

	mu       sync.Mutex
	platform *PlatformEntry
	unloaded bool
}

// stop detaches the entry from its coordinator and marks its sensors offline.
func (le *loadedEntry) stop() {
	le.removeListener()

	le.mu.Lock()
	le.unloaded = true
	if le.platform != nil {
		le.platform.Unload()
	}
	le.mu.Unlock()
}

func NewEntryManager(c client.MetarClient, interval time.Duration, platform *SensorPlatform, jobs JobScheduler, logger *zap.Logger) *EntryManager {
	return &EntryManager{
		client:    c,
		interval:  interval,
		platform:  platform,
		scheduler: jobs,
		logger:    logger,
		entries:   make(map[string]*models.ConfigEntry),
		loaded:    make(map[string]*loadedEntry),
	}
}

func (m *EntryManager) HasUniqueID(uniqueID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.UniqueID == uniqueID {
			return true
		}
	}
	return false
}

// CreateEntry stores the entry produced by a config flow and sets it up. An
// entry whose first refresh fails is kept in the setup_retry state and picked
// up by the next successful scheduled refresh.
func (m *EntryManager) CreateEntry(ctx context.Context, res flow.Result, source string) (models.ConfigEntry, error) {
	if res.Type != flow.ResultTypeCreateEntry {
		return models.ConfigEntry{}, fmt.Errorf("flow result %q does not create an entry", res.Type)
	}

	entry := &models.ConfigEntry{
		EntryID:   uuid.NewString(),
		Domain:    models.Domain,
		Title:     res.Title,
		UniqueID:  res.UniqueID,
		Data:      res.Data,
		Version:   res.Version,
		Source:    source,
		State:     models.StateNotLoaded,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	for _, e := range m.entries {
		if e.UniqueID == entry.UniqueID {
			m.mu.Unlock()
			return models.ConfigEntry{}, ErrAlreadyConfigured
		}
	}
	m.entries[entry.EntryID] = entry
	m.mu.Unlock()

	m.logger.Info("Config entry created",
		zap.String("entry_id", entry.EntryID),
		zap.String("title", entry.Title),
		zap.String("source", source))

	if err := m.SetupEntry(ctx, entry.EntryID); err != nil {
		m.logger.Warn("Config entry setup failed, will retry on next refresh",
			zap.String("entry_id", entry.EntryID),
			zap.Error(err))
	}

	return m.Entry(entry.EntryID)
}

// SetupEntry creates the entry's coordinator, performs the first refresh and
// schedules the periodic ones.
func (m *EntryManager) SetupEntry(ctx context.Context, entryID string) error {
	m.mu.Lock()
	entry, ok := m.entries[entryID]
	if !ok {
		m.mu.Unlock()
		return ErrEntryNotFound
	}
	if _, loaded := m.loaded[entryID]; loaded {
		m.mu.Unlock()
		return fmt.Errorf("config entry %s is already set up", entryID)
	}

	coordinator := NewCoordinator(entry.Title, entry.ICAO(), m.client, m.interval, m.logger)
	le := &loadedEntry{coordinator: coordinator}
	le.removeListener = coordinator.AddListener(func() {
		m.handleUpdate(entry, le)
	})
	m.loaded[entryID] = le
	m.mu.Unlock()

	refreshErr := coordinator.FirstRefresh(ctx)
	if refreshErr != nil {
		m.setState(entry, models.StateSetupRetry)
	}

	if err := m.scheduler.Add(entryID, coordinator); err != nil {
		m.mu.Lock()
		delete(m.loaded, entryID)
		m.mu.Unlock()
		le.stop()
		m.setState(entry, models.StateNotLoaded)
		return fmt.Errorf("schedule config entry: %w", err)
	}

	return refreshErr
}

// handleUpdate runs after every coordinator refresh.
func (m *EntryManager) handleUpdate(entry *models.ConfigEntry, le *loadedEntry) {
	le.mu.Lock()
	defer le.mu.Unlock()

	// A refresh in flight during unload still notifies its listeners
	if le.unloaded {
		return
	}

	success := le.coordinator.LastUpdateSuccess()

	if le.platform == nil {
		if !success {
			return
		}
		pe, err := m.platform.Forward(entry, le.coordinator)
		if err != nil {
			m.logger.Error("Failed to forward config entry to sensor platform",
				zap.String("entry_id", entry.EntryID),
				zap.Error(err))
			return
		}
		le.platform = pe
		m.setState(entry, models.StateLoaded)
	}

	le.platform.Update(success)
}

// UnloadEntry stops refreshing the entry and marks its sensors unavailable.
func (m *EntryManager) UnloadEntry(entryID string) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[entryID]
	if !ok {
		m.mu.Unlock()
		return false, ErrEntryNotFound
	}
	le, loaded := m.loaded[entryID]
	delete(m.loaded, entryID)
	m.mu.Unlock()

	if !loaded {
		return true, nil
	}

	m.scheduler.Remove(entryID)
	le.stop()

	m.setState(entry, models.StateNotLoaded)
	m.logger.Info("Config entry unloaded", zap.String("entry_id", entryID))
	return true, nil
}

// RemoveEntry unloads and deletes the entry. Cleanup failures are logged and
// never returned.
func (m *EntryManager) RemoveEntry(entryID string) error {
	m.mu.RLock()
	entry, ok := m.entries[entryID]
	m.mu.RUnlock()
	if !ok {
		return ErrEntryNotFound
	}

	if _, err := m.UnloadEntry(entryID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.entries, entryID)
	m.mu.Unlock()

	m.cleanup(entry)

	m.logger.Info("Config entry removed",
		zap.String("entry_id", entryID),
		zap.String("station", entry.ICAO()))
	return nil
}

func (m *EntryManager) cleanup(entry *models.ConfigEntry) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Error removing entry", zap.Any("panic", r))
		}
	}()

	if err := m.platform.Remove(entry.ICAO()); err != nil {
		m.logger.Error("Error removing entry", zap.Error(err))
	}
}

// Refresh runs an immediate refresh of a loaded entry.
func (m *EntryManager) Refresh(ctx context.Context, entryID string) error {
	le, err := m.loadedEntry(entryID)
	if err != nil {
		return err
	}
	return le.coordinator.Refresh(ctx)
}

// Shutdown unloads every entry.
func (m *EntryManager) Shutdown() {
	for _, e := range m.Entries() {
		if _, err := m.UnloadEntry(e.EntryID); err != nil {
			m.logger.Warn("Failed to unload entry",
				zap.String("entry_id", e.EntryID),
				zap.Error(err))
		}
	}
}

func (m *EntryManager) Entries() []models.ConfigEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]models.ConfigEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries
}

func (m *EntryManager) Entry(entryID string) (models.ConfigEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[entryID]
	if !ok {
		return models.ConfigEntry{}, ErrEntryNotFound
	}
	return *e, nil
}

func (m *EntryManager) Coordinator(entryID string) (*Coordinator, error) {
	le, err := m.loadedEntry(entryID)
	if err != nil {
		return nil, err
	}
	return le.coordinator, nil
}

// Sensors returns the current sensor states of an entry. Entries that were
// never forwarded have no sensors yet.
func (m *EntryManager) Sensors(entryID string) ([]models.SensorState, error) {
	le, err := m.loadedEntry(entryID)
	if err != nil {
		return nil, err
	}

	le.mu.Lock()
	defer le.mu.Unlock()

	if le.platform == nil {
		return []models.SensorState{}, nil
	}
	states := make([]models.SensorState, 0, len(le.platform.Entities()))
	for _, e := range le.platform.Entities() {
		states = append(states, e.Snapshot())
	}
	return states, nil
}

func (m *EntryManager) loadedEntry(entryID string) (*loadedEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.entries[entryID]; !ok {
		return nil, ErrEntryNotFound
	}
	le, ok := m.loaded[entryID]
	if !ok {
		return nil, fmt.Errorf("config entry %s is not loaded", entryID)
	}
	return le, nil
}

func (m *EntryManager) setState(entry *models.ConfigEntry, state string) {
	m.mu.Lock()
	entry.State = state
	m.mu.Unlock()
}

// ImportStations runs the import step of the config flow for each station.
// Stations that are already configured are skipped.
func (m *EntryManager) ImportStations(ctx context.Context, icaos []string) {
	f := flow.New(m)
	for _, icao := range icaos {
		res := f.StepImport(map[string]string{models.ConfICAOID: icao})
		if res.Type != flow.ResultTypeCreateEntry {
			m.logger.Info("Station import skipped",
				zap.String("station", icao),
				zap.String("reason", res.Reason))
			continue
		}
		if _, err := m.CreateEntry(ctx, res, models.SourceImport); err != nil {
			m.logger.Warn("Station import failed",
				zap.String("station", icao),
				zap.Error(err))
		}
	}
}
