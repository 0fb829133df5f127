package services

import (
	"context"
	"errors"
	"sync"

	"github.com/bobby-s-dev/aviationweather/internal/models"
	"github.com/bobby-s-dev/aviationweather/internal/scheduler"
)

type mockClient struct {
	mu     sync.Mutex
	report *models.Report
	units  *models.Units
	err    error
	calls  int
	block  chan struct{}
}

func (m *mockClient) Update(ctx context.Context, icao string) (*models.Report, *models.Units, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.report, m.units, nil
}

func (m *mockClient) set(report *models.Report, units *models.Units, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.report, m.units, m.err = report, units, err
}

type message struct {
	topic   string
	payload string
}

type mockPublisher struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (p *mockPublisher) Publish(topic string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, message{topic: topic, payload: string(payload)})
	return nil
}

// last returns the most recent payload published to topic.
func (p *mockPublisher) last(topic string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.messages) - 1; i >= 0; i-- {
		if p.messages[i].topic == topic {
			return p.messages[i].payload, true
		}
	}
	return "", false
}

func (p *mockPublisher) count(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.messages {
		if m.topic == topic {
			n++
		}
	}
	return n
}

type mockScheduler struct {
	mu   sync.Mutex
	jobs map[string]scheduler.Refresher
	err  error
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{jobs: make(map[string]scheduler.Refresher)}
}

func (s *mockScheduler) Add(entryID string, r scheduler.Refresher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs[entryID] = r
	return nil
}

func (s *mockScheduler) Remove(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, entryID)
}

func (s *mockScheduler) has(entryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[entryID]
	return ok
}

var errUpstream = errors.New("upstream unavailable")

func sampleReport() *models.Report {
	return &models.Report{
		Station:       "KJFK",
		Raw:           "KJFK 121651Z 20011KT 10SM FEW250 26/12 A2989",
		Altimeter:     models.Float("A2989", 29.89),
		Temperature:   models.Float("26", 26),
		Dewpoint:      models.Float("12", 12),
		WindSpeed:     models.Float("11", 11),
		WindDirection: models.Float("200", 200),
		Visibility:    models.Float("10", 10),
		FlightRules:   "VFR",
	}
}
