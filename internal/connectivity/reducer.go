package connectivity

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/metrics"
)

// Signal is the host's connectivity signal: readable on demand, with edge notifications.
type Signal interface {
	Online() bool
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// ReducerConfig contains the optional settings of a Reducer.
type ReducerConfig struct {
	Clock     Clock
	SyncDelay time.Duration
	HideDelay time.Duration
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Reducer turns connectivity edges into indicator states:
//
//	offline -> {Offline, visible}, kept until the next edge
//	online  -> {Syncing, visible}, then {Online, visible} after SyncDelay,
//	           then {Online, hidden} after a further HideDelay
//
// Every edge cancels the timers of the previous one.
type Reducer struct {
	signal    Signal
	clock     Clock
	syncDelay time.Duration
	hideDelay time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics

	// notifyMu is held from a transition until its listeners return, so
	// listeners observe transitions one at a time and in order.
	notifyMu sync.Mutex

	mu          sync.Mutex
	state       State
	generation  uint64
	timers      []Timer
	listeners   map[int]func(State)
	nextID      int
	unsubscribe func()
	started     bool
	stopped     bool
}

// NewReducer creates a Reducer in InitialState. Call Start to begin evaluating signal.
func NewReducer(signal Signal, cfg ReducerConfig) *Reducer {
	r := &Reducer{
		signal:    signal,
		clock:     cfg.Clock,
		syncDelay: cfg.SyncDelay,
		hideDelay: cfg.HideDelay,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		state:     InitialState,
		listeners: map[int]func(State){},
	}
	if r.clock == nil {
		r.clock = SystemClock
	}
	if r.syncDelay <= 0 {
		r.syncDelay = DefaultSyncDelay
	}
	if r.hideDelay <= 0 {
		r.hideDelay = DefaultHideDelay
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Start evaluates the current signal and follows its edges until Stop.
func (r *Reducer) Start() {
	r.mu.Lock()
	if r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	unsubscribe := r.signal.Subscribe(r.handle)
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		unsubscribe()
		return
	}
	r.unsubscribe = unsubscribe
	r.mu.Unlock()

	r.evaluate()
}

// Stop cancels pending timers and stops following the signal. The state is frozen.
func (r *Reducer) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.generation++
	r.stopTimersLocked()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// State returns the current indicator state.
func (r *Reducer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers fn for every later transition. The returned func unregisters it.
// fn must not call Start.
func (r *Reducer) Subscribe(fn func(State)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

func (r *Reducer) handle(online bool) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.applyLocked(online)
}

// evaluate applies the signal's current value. It is read under notifyMu so an edge
// delivered concurrently is applied after it, never overwritten by it.
func (r *Reducer) evaluate() {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.applyLocked(r.signal.Online())
}

// applyLocked must be called with notifyMu held.
func (r *Reducer) applyLocked(online bool) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.generation++
	gen := r.generation
	r.stopTimersLocked()

	next := State{Status: Offline, Visible: true}
	if online {
		next = State{Status: Syncing, Visible: true}
		r.timers = append(r.timers, r.clock.AfterFunc(r.syncDelay, func() {
			r.fire(gen, State{Status: Online, Visible: true}, true)
		}))
	}
	listeners := r.setLocked(next)
	r.mu.Unlock()

	r.logger.Debug("Connectivity signal", zap.Bool("online", online), zap.Stringer("status", next.Status))
	notify(listeners, next)
}

// fire applies a timed transition unless a newer edge or Stop has superseded it.
func (r *Reducer) fire(gen uint64, next State, scheduleHide bool) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()

	r.mu.Lock()
	if r.stopped || gen != r.generation {
		r.mu.Unlock()
		return
	}
	if scheduleHide {
		r.timers = append(r.timers, r.clock.AfterFunc(r.hideDelay, func() {
			r.fire(gen, State{Status: Online, Visible: false}, false)
		}))
	}
	listeners := r.setLocked(next)
	r.mu.Unlock()

	notify(listeners, next)
}

func (r *Reducer) setLocked(next State) []func(State) {
	r.state = next
	r.metrics.SetConnectivity(next.Status.String(), Offline.String(), Syncing.String(), Online.String())
	listeners := make([]func(State), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func (r *Reducer) stopTimersLocked() {
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
}

func notify(listeners []func(State), s State) {
	for _, fn := range listeners {
		fn(s)
	}
}
