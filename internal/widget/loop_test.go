package widget

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/logging"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/render"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

type fakeCache struct {
	mu     sync.Mutex
	coords weather.Coordinates
	ok     bool
}

func (c *fakeCache) Read(context.Context) (weather.Coordinates, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coords, c.ok, nil
}

func (c *fakeCache) set(coords weather.Coordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coords, c.ok = coords, true
}

type fakeRefresher struct {
	calls  int32
	onCall func()
}

func (r *fakeRefresher) Refresh(context.Context) {
	atomic.AddInt32(&r.calls, 1)
	if r.onCall != nil {
		r.onCall()
	}
}

type stubProvider struct {
	mu      sync.Mutex
	reading weather.Reading
	err     error
	panics  bool
	calls   int
	coords  []weather.Coordinates
	started chan struct{}
	release chan struct{}
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(_ context.Context, coords weather.Coordinates) (weather.Reading, error) {
	p.mu.Lock()
	p.calls++
	p.coords = append(p.coords, coords)
	started, release := p.started, p.release
	p.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if p.panics {
		panic("provider exploded")
	}
	return p.reading, p.err
}

func (p *stubProvider) fetched() []weather.Coordinates {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]weather.Coordinates(nil), p.coords...)
}

// fakeAlarm fails Arm when a trigger is already pending, so any missing
// Cancel shows up as an error count.
type fakeAlarm struct {
	mu         sync.Mutex
	pending    map[InstanceID]func()
	arms       map[InstanceID]int
	cancelAlls int
	doubleArms int
}

func newFakeAlarm() *fakeAlarm {
	return &fakeAlarm{
		pending: make(map[InstanceID]func()),
		arms:    make(map[InstanceID]int),
	}
}

func (a *fakeAlarm) Arm(id InstanceID, fire func()) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.pending[id]; ok {
		a.doubleArms++
		return errors.New("already armed")
	}
	a.pending[id] = fire
	a.arms[id]++
	return nil
}

func (a *fakeAlarm) Cancel(id InstanceID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, id)
	return nil
}

func (a *fakeAlarm) CancelAll() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = make(map[InstanceID]func())
	a.cancelAlls++
	return nil
}

func (a *fakeAlarm) fire(id InstanceID) bool {
	a.mu.Lock()
	fire, ok := a.pending[id]
	delete(a.pending, id)
	a.mu.Unlock()
	if ok {
		fire()
	}
	return ok
}

func (a *fakeAlarm) stats(id InstanceID) (pending bool, arms int, doubles int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, pending = a.pending[id]
	return pending, a.arms[id], a.doubleArms
}

type fakeLabeler struct {
	label string
	err   error
}

func (l fakeLabeler) Label(context.Context, weather.Coordinates) (string, error) {
	return l.label, l.err
}

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) count(msg string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), `"msg":"`+msg+`"`)
}

type harness struct {
	logs      *logBuffer
	cache     *fakeCache
	refresher *fakeRefresher
	provider  *stubProvider
	surface   *MemorySurface
	alarm     *fakeAlarm
	loop      *Loop
}

func newHarness(t *testing.T, labeler PlaceLabeler) *harness {
	t.Helper()
	h := &harness{
		logs:      &logBuffer{},
		cache:     &fakeCache{},
		refresher: &fakeRefresher{},
		provider: &stubProvider{reading: weather.Reading{
			ProviderName: "stub",
			TemperatureC: 21.6,
			Description:  "light rain",
		}},
		surface: NewMemorySurface(),
		alarm:   newFakeAlarm(),
	}

	loop, err := NewLoop(Deps{
		Cache:     h.cache,
		Refresher: h.refresher,
		Fetcher:   weather.NewFetcher(h.provider, nil),
		Labeler:   labeler,
		Surface:   h.surface,
		Alarm:     h.alarm,
		Logger:    logging.NewWithWriter(h.logs, "widget-test", "debug"),
	})
	require.NoError(t, err)
	t.Cleanup(loop.Close)
	h.loop = loop
	return h
}

func TestCycleRendersWeather(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.set(weather.Coordinates{Latitude: 40.0, Longitude: -73.0})

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	h.loop.Wait()

	st, ok := h.surface.State(1)
	require.True(t, ok)
	require.Equal(t, "22°C", st.TemperatureText)
	require.Equal(t, "Light Rain", st.Description)
	require.Equal(t, 1, st.Pushes)
	require.Equal(t, render.UnitScale, st.Temperature.Segments[1].RelativeScale)

	require.Equal(t, []weather.Coordinates{{Latitude: 40, Longitude: -73}}, h.provider.fetched())
	require.Equal(t, int32(1), atomic.LoadInt32(&h.refresher.calls))

	pending, arms, doubles := h.alarm.stats(1)
	require.True(t, pending)
	require.Equal(t, 1, arms)
	require.Zero(t, doubles)
}

func TestCycleWithoutLocationStillRearms(t *testing.T) {
	h := newHarness(t, nil)

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	h.loop.Wait()

	require.Empty(t, h.provider.fetched())

	st, ok := h.surface.State(1)
	require.True(t, ok)
	require.Equal(t, 1, st.Pushes)
	require.Empty(t, st.TemperatureText)
	require.Empty(t, st.Description)

	pending, arms, _ := h.alarm.stats(1)
	require.True(t, pending)
	require.Equal(t, 1, arms)
}

func TestCycleFetchFailureKeepsPriorText(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.set(weather.Coordinates{Latitude: 40.0, Longitude: -73.0})

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	h.loop.Wait()

	h.provider.mu.Lock()
	h.provider.err = &weather.FetchError{Provider: "stub", StatusCode: 401, Body: `{"cod":401}`}
	h.provider.mu.Unlock()

	require.True(t, h.alarm.fire(1))
	h.loop.Wait()

	st, ok := h.surface.State(1)
	require.True(t, ok)
	require.Equal(t, 2, st.Pushes)
	require.Equal(t, "22°C", st.TemperatureText)
	require.Equal(t, "Light Rain", st.Description)

	pending, arms, doubles := h.alarm.stats(1)
	require.True(t, pending)
	require.Equal(t, 2, arms)
	require.Zero(t, doubles)
}

func TestRefreshOnlyAffectsNextCycle(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.set(weather.Coordinates{Latitude: 40.0, Longitude: -73.0})
	h.refresher.onCall = func() {
		h.cache.set(weather.Coordinates{Latitude: 41.0, Longitude: -74.0})
	}

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	h.loop.Wait()
	require.True(t, h.alarm.fire(1))
	h.loop.Wait()

	require.Equal(t, []weather.Coordinates{
		{Latitude: 40, Longitude: -73},
		{Latitude: 41, Longitude: -74},
	}, h.provider.fetched())
}

func TestTriggerJoinsRunningCycle(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.set(weather.Coordinates{Latitude: 40.0, Longitude: -73.0})
	h.provider.started = make(chan struct{}, 1)
	h.provider.release = make(chan struct{})

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	<-h.provider.started

	h.loop.OnOptionsChanged(context.Background(), 1)
	time.Sleep(50 * time.Millisecond)
	close(h.provider.release)
	h.loop.Wait()

	require.Len(t, h.provider.fetched(), 1)
	_, arms, doubles := h.alarm.stats(1)
	require.Equal(t, 1, arms)
	require.Zero(t, doubles)

	// Only the trigger that joined reports it.
	require.Equal(t, 1, h.logs.count("trigger joined running cycle"))
	require.Equal(t, 1, h.logs.count("update cycle started"))
}

func TestBatchUpdatesEveryInstance(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.set(weather.Coordinates{Latitude: 40.0, Longitude: -73.0})

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1, 2, 3})
	h.loop.Wait()

	for _, id := range []InstanceID{1, 2, 3} {
		st, ok := h.surface.State(id)
		require.True(t, ok, "instance %d", id)
		require.Equal(t, "22°C", st.TemperatureText)

		pending, arms, _ := h.alarm.stats(id)
		require.True(t, pending)
		require.Equal(t, 1, arms)
	}
	require.Equal(t, 3, h.loop.Active())
}

func TestCyclePanicIsContained(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.set(weather.Coordinates{Latitude: 40.0, Longitude: -73.0})
	h.provider.panics = true

	require.NotPanics(t, func() {
		h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{9})
		h.loop.Wait()
	})

	st, ok := h.surface.State(9)
	require.True(t, ok)
	require.Equal(t, 1, st.Pushes)
	pending, _, _ := h.alarm.stats(9)
	require.True(t, pending)
}

func TestRemovedInstancesStopRearming(t *testing.T) {
	h := newHarness(t, nil)
	h.cache.set(weather.Coordinates{Latitude: 40.0, Longitude: -73.0})

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	h.loop.Wait()

	h.loop.OnAllInstancesRemoved(context.Background())
	require.Zero(t, h.loop.Active())
	pending, _, _ := h.alarm.stats(1)
	require.False(t, pending)
	require.Equal(t, 1, h.alarm.cancelAlls)

	// A stale alarm firing after removal does nothing.
	h.loop.fire(1)
	h.loop.Wait()
	require.Len(t, h.provider.fetched(), 1)
}

func TestPlaceLabelIsRendered(t *testing.T) {
	h := newHarness(t, fakeLabeler{label: "New York"})
	h.cache.set(weather.Coordinates{Latitude: 40.7, Longitude: -74.0})

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	h.loop.Wait()

	st, _ := h.surface.State(1)
	require.Equal(t, "New York", st.Place)
}

func TestPlaceLabelFailureIsIgnored(t *testing.T) {
	h := newHarness(t, fakeLabeler{err: errors.New("quota exceeded")})
	h.cache.set(weather.Coordinates{Latitude: 40.7, Longitude: -74.0})

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	h.loop.Wait()

	st, _ := h.surface.State(1)
	require.Equal(t, "22°C", st.TemperatureText)
	require.Empty(t, st.Place)
}

func TestClosedLoopIgnoresTriggers(t *testing.T) {
	h := newHarness(t, nil)
	h.loop.Close()

	h.loop.OnPlacementBatchUpdate(context.Background(), []InstanceID{1})
	h.loop.Wait()

	_, ok := h.surface.State(1)
	require.False(t, ok)
}

func TestNewLoopRequiresDeps(t *testing.T) {
	_, err := NewLoop(Deps{})
	require.Error(t, err)
}
