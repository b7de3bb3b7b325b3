package connectivity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultProbeInterval = 5 * time.Second
	probeTimeout         = 3 * time.Second
)

// ProbeFunc checks whether the backing store is reachable.
type ProbeFunc func(ctx context.Context) error

// Monitor is the server's connectivity Signal: the backing store counts as the network,
// and it is considered online while probes succeed.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	logger   *zap.Logger

	notifyMu sync.Mutex

	mu        sync.Mutex
	online    bool
	listeners map[int]func(bool)
	nextID    int
}

var _ Signal = (*Monitor)(nil)

// NewMonitor creates a Monitor that assumes it is online until a probe fails.
func NewMonitor(probe ProbeFunc, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		probe:     probe,
		interval:  interval,
		logger:    logger,
		online:    true,
		listeners: map[int]func(bool){},
	}
}

// Run probes immediately and then on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.Check(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Check runs one probe and reports its outcome.
func (m *Monitor) Check(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := m.probe(probeCtx)
	if err != nil && ctx.Err() != nil {
		// Shutting down; not a connectivity change.
		return m.Online()
	}
	if err != nil {
		m.logger.Debug("Connectivity probe failed", zap.Error(err))
	}
	online := err == nil
	m.Report(online)
	return online
}

// Report records the current connectivity and notifies subscribers if it changed.
func (m *Monitor) Report(online bool) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	if online {
		m.logger.Info("Backing store reachable again")
	} else {
		m.logger.Warn("Backing store unreachable, going offline")
	}
	for _, fn := range listeners {
		fn(online)
	}
}

// Online reports the last known connectivity.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers fn for connectivity edges.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}
