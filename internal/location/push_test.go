package location

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

type fixRecorder struct {
	mu    sync.Mutex
	fixes []weather.Coordinates
}

func (r *fixRecorder) record(c weather.Coordinates) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixes = append(r.fixes, c)
}

func (r *fixRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fixes)
}

func TestPushProviderAnswersOnce(t *testing.T) {
	p := NewPushProvider()
	rec := &fixRecorder{}

	require.NoError(t, p.RequestOneFix(context.Background(), DefaultFixRequest(), rec.record))
	require.Equal(t, 1, p.Pending())

	require.Equal(t, 1, p.Deliver(weather.Coordinates{Latitude: 40, Longitude: -73}))
	require.Equal(t, 0, p.Deliver(weather.Coordinates{Latitude: 41, Longitude: -73}))
	require.Equal(t, 1, rec.count())
	require.Equal(t, 0, p.Pending())
}

func TestPushProviderGatesJitter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPushProvider()
	p.nowFunc = func() time.Time { return now }

	// First fix is always accepted.
	p.Deliver(weather.Coordinates{Latitude: 40, Longitude: -73})

	rec := &fixRecorder{}
	require.NoError(t, p.RequestOneFix(context.Background(), DefaultFixRequest(), rec.record))

	// Too soon.
	now = now.Add(time.Second)
	require.Equal(t, 0, p.Deliver(weather.Coordinates{Latitude: 40.01, Longitude: -73}))

	// Late enough but only ~1m away.
	now = now.Add(5 * time.Second)
	require.Equal(t, 0, p.Deliver(weather.Coordinates{Latitude: 40.00001, Longitude: -73}))

	// Late enough and ~1.1km away.
	require.Equal(t, 1, p.Deliver(weather.Coordinates{Latitude: 40.01, Longitude: -73}))
	require.Equal(t, 1, rec.count())
}

func TestPushProviderDropsExpiredRequests(t *testing.T) {
	p := NewPushProvider()
	rec := &fixRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.RequestOneFix(ctx, DefaultFixRequest(), rec.record))
	cancel()

	require.Eventually(t, func() bool { return p.Pending() == 0 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, p.Deliver(weather.Coordinates{Latitude: 1, Longitude: 1}))
	require.Equal(t, 0, rec.count())
}

func TestPushProviderRejectsDoneContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, NewPushProvider().RequestOneFix(ctx, DefaultFixRequest(), func(weather.Coordinates) {}))
}

func TestDistance(t *testing.T) {
	paris := weather.Coordinates{Latitude: 48.8566, Longitude: 2.3522}
	london := weather.Coordinates{Latitude: 51.5074, Longitude: -0.1278}

	require.InDelta(t, 343500, Distance(paris, london), 1500)
	require.Zero(t, Distance(paris, paris))
}
