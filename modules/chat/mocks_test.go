package chat

import (
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func newMockLogger() types.Logger {
	return &mockLogger{}
}

// manualScheduler fires callbacks only when the test calls FireAll.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{d: d, f: f}
	s.timers = append(s.timers, timer)
	return timer
}

// FireAll runs every pending callback, including ones already stopped when
// includeStopped is set, which models a timer that fired while being replaced.
func (s *manualScheduler) FireAll(includeStopped bool) {
	s.mu.Lock()
	var due []*manualTimer
	for _, timer := range s.timers {
		if timer.fired || (timer.stopped && !includeStopped) {
			continue
		}
		timer.fired = true
		due = append(due, timer)
	}
	s.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
}

// Pending returns the number of timers that can still fire.
func (s *manualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, timer := range s.timers {
		if !timer.fired && !timer.stopped {
			n++
		}
	}
	return n
}

// recordingTransport captures delivered effects.
type recordingTransport struct {
	mu      sync.Mutex
	batches [][]Effect
}

func (t *recordingTransport) Deliver(effects []Effect) {
	t.mu.Lock()
	defer t.mu.Unlock()
	batch := make([]Effect, len(effects))
	copy(batch, effects)
	t.batches = append(t.batches, batch)
}

func (t *recordingTransport) All() []Effect {
	t.mu.Lock()
	defer t.mu.Unlock()
	var all []Effect
	for _, batch := range t.batches {
		all = append(all, batch...)
	}
	return all
}

func (t *recordingTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.batches = nil
}

// recordingPublisher captures published payloads.
type recordingPublisher struct {
	mu       sync.Mutex
	payloads []any
	err      error
}

func (p *recordingPublisher) Publish(payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return p.err
}

func (p *recordingPublisher) Payloads() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.payloads...)
}

func eventNames(effects []Effect) []string {
	names := make([]string, 0, len(effects))
	for _, e := range effects {
		if e.Kind == EffectSend {
			names = append(names, e.Event)
		}
	}
	return names
}
