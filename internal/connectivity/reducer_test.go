package connectivity

import (
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/metrics"
)

// manualClock fires callbacks only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// Advance moves time forward, firing due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at < c.timers[j].at })
		var due *manualTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= target {
				due = t
				break
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		due.fired = true
		c.now = due.at
		c.mu.Unlock()
		due.fn()
	}
}

func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// fakeSignal is a Signal driven by the test.
type fakeSignal struct {
	mu        sync.Mutex
	online    bool
	listeners map[int]func(bool)
	nextID    int
}

func newFakeSignal(online bool) *fakeSignal {
	return &fakeSignal{online: online, listeners: map[int]func(bool){}}
}

func (s *fakeSignal) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *fakeSignal) Subscribe(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *fakeSignal) Set(online bool) {
	s.mu.Lock()
	s.online = online
	fns := make([]func(bool), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(online)
	}
}

func (s *fakeSignal) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// edgeDuringReadSignal delivers an offline edge while the first Online call is in flight.
type edgeDuringReadSignal struct {
	*fakeSignal
	once sync.Once
}

func (s *edgeDuringReadSignal) Online() bool {
	online := s.fakeSignal.Online()
	s.once.Do(func() {
		delivered := make(chan struct{})
		go func() {
			s.Set(false)
			close(delivered)
		}()
		select {
		case <-delivered:
		case <-time.After(50 * time.Millisecond):
		}
	})
	return online
}

func newTestReducer(signal Signal, clock Clock) *Reducer {
	return NewReducer(signal, ReducerConfig{Clock: clock})
}

func TestReducer_InitialState(t *testing.T) {
	r := newTestReducer(newFakeSignal(true), &manualClock{})
	assert.Equal(t, State{Status: Online, Visible: false}, r.State())
}

func TestReducer_OfflineNeverAutoHides(t *testing.T) {
	clock := &manualClock{}
	r := newTestReducer(newFakeSignal(false), clock)
	r.Start()
	defer r.Stop()

	assert.Equal(t, State{Status: Offline, Visible: true}, r.State())
	clock.Advance(time.Hour)
	assert.Equal(t, State{Status: Offline, Visible: true}, r.State())
	assert.Equal(t, 0, clock.Pending())
}

func TestReducer_OnlineTransitions(t *testing.T) {
	clock := &manualClock{}
	r := newTestReducer(newFakeSignal(true), clock)
	r.Start()
	defer r.Stop()

	assert.Equal(t, State{Status: Syncing, Visible: true}, r.State())

	clock.Advance(999 * time.Millisecond)
	assert.Equal(t, State{Status: Syncing, Visible: true}, r.State())

	clock.Advance(time.Millisecond)
	assert.Equal(t, State{Status: Online, Visible: true}, r.State())

	clock.Advance(1199 * time.Millisecond)
	assert.Equal(t, State{Status: Online, Visible: true}, r.State())

	clock.Advance(time.Millisecond)
	assert.Equal(t, State{Status: Online, Visible: false}, r.State())
	assert.Equal(t, 0, clock.Pending())
}

func TestReducer_EdgeDuringStartIsNotOverwritten(t *testing.T) {
	clock := &manualClock{}
	r := newTestReducer(&edgeDuringReadSignal{fakeSignal: newFakeSignal(true)}, clock)
	r.Start()
	defer r.Stop()

	assert.Eventually(t, func() bool {
		return r.State() == State{Status: Offline, Visible: true}
	}, time.Second, 5*time.Millisecond)

	clock.Advance(5 * time.Second)
	assert.Equal(t, State{Status: Offline, Visible: true}, r.State())
}

func TestReducer_OfflineCancelsPendingOnlineTimers(t *testing.T) {
	clock := &manualClock{}
	signal := newFakeSignal(true)
	r := newTestReducer(signal, clock)
	r.Start()
	defer r.Stop()

	clock.Advance(500 * time.Millisecond)
	signal.Set(false)
	assert.Equal(t, State{Status: Offline, Visible: true}, r.State())

	clock.Advance(5 * time.Second)
	assert.Equal(t, State{Status: Offline, Visible: true}, r.State())
}

func TestReducer_FlappingRestartsSyncDelay(t *testing.T) {
	clock := &manualClock{}
	signal := newFakeSignal(true)
	r := newTestReducer(signal, clock)
	r.Start()
	defer r.Stop()

	clock.Advance(1500 * time.Millisecond) // online, hide pending
	signal.Set(false)
	signal.Set(true)
	assert.Equal(t, State{Status: Syncing, Visible: true}, r.State())

	clock.Advance(900 * time.Millisecond)
	assert.Equal(t, Syncing, r.State().Status, "stale hide timer must not fire")

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, State{Status: Online, Visible: true}, r.State())
}

func TestReducer_StopCancelsTimersAndUnsubscribes(t *testing.T) {
	clock := &manualClock{}
	signal := newFakeSignal(true)
	r := newTestReducer(signal, clock)
	r.Start()
	require.Equal(t, 1, signal.Listeners())

	r.Stop()
	assert.Equal(t, 0, signal.Listeners())
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Minute)
	signal.Set(false)
	assert.Equal(t, State{Status: Syncing, Visible: true}, r.State())

	r.Stop()
}

func TestReducer_ListenersSeeEveryTransitionInOrder(t *testing.T) {
	clock := &manualClock{}
	signal := newFakeSignal(false)
	r := newTestReducer(signal, clock)

	var got []State
	unsubscribe := r.Subscribe(func(s State) { got = append(got, s) })
	r.Start()
	defer r.Stop()

	signal.Set(true)
	clock.Advance(3 * time.Second)
	unsubscribe()
	signal.Set(false)

	assert.Equal(t, []State{
		{Status: Offline, Visible: true},
		{Status: Syncing, Visible: true},
		{Status: Online, Visible: true},
		{Status: Online, Visible: false},
	}, got)
}

func TestReducer_CustomDelaysAndMetrics(t *testing.T) {
	clock := &manualClock{}
	reg := prometheus.NewRegistry()
	r := NewReducer(newFakeSignal(true), ReducerConfig{
		Clock:     clock,
		SyncDelay: 10 * time.Millisecond,
		HideDelay: 20 * time.Millisecond,
		Metrics:   metrics.New(reg),
	})
	r.Start()
	defer r.Stop()

	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, State{Status: Online, Visible: true}, r.State())
	clock.Advance(20 * time.Millisecond)
	assert.False(t, r.State().Visible)

	families, err := reg.Gather()
	require.NoError(t, err)
	var values map[string]float64
	for _, f := range families {
		if f.GetName() != "nordictrip_connectivity_status" {
			continue
		}
		values = map[string]float64{}
		for _, m := range f.GetMetric() {
			values[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"offline": 0, "syncing": 0, "online": 1}, values)
}

func TestState_JSON(t *testing.T) {
	b, err := json.Marshal(State{Status: Syncing, Visible: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"syncing","visible":true}`, string(b))

	var s State
	require.NoError(t, json.Unmarshal([]byte(`{"status":"offline","visible":true}`), &s))
	assert.Equal(t, State{Status: Offline, Visible: true}, s)

	assert.Error(t, json.Unmarshal([]byte(`{"status":"lost"}`), &s))
}
