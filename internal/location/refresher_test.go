package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/store"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

type deniedProvider struct{ calls int }

func (p *deniedProvider) RequestOneFix(context.Context, FixRequest, func(weather.Coordinates)) error {
	p.calls++
	return ErrPermissionDenied
}

type recordingProvider struct {
	req FixRequest
}

func (p *recordingProvider) RequestOneFix(_ context.Context, req FixRequest, _ func(weather.Coordinates)) error {
	p.req = req
	return nil
}

func TestRefresherWritesFixToCache(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := NewCache(store.NewMemoryStore("location_preference"))
	slot := NewSlot(cache, nil)
	go slot.Run(ctx)

	r := NewRefresher(NewStaticProvider(weather.Coordinates{Latitude: 40, Longitude: -73}), slot, DefaultFixRequest(), time.Second, nil)
	r.Refresh(ctx)

	require.Eventually(t, func() bool {
		coords, ok, _ := cache.Read(context.Background())
		return ok && coords == weather.Coordinates{Latitude: 40, Longitude: -73}
	}, time.Second, 5*time.Millisecond)
}

func TestRefresherDoesNotWaitForFix(t *testing.T) {
	push := NewPushProvider()
	cache := NewCache(store.NewMemoryStore("location_preference"))
	r := NewRefresher(push, NewSlot(cache, nil), DefaultFixRequest(), time.Minute, nil)

	done := make(chan struct{})
	go func() {
		r.Refresh(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Refresh blocked waiting for a fix")
	}
	require.Equal(t, 1, push.Pending())
}

func TestRefresherSkipsPermissionDenied(t *testing.T) {
	p := &deniedProvider{}
	r := NewRefresher(p, NewSlot(NewCache(store.NewMemoryStore("")), nil), DefaultFixRequest(), 0, nil)

	r.Refresh(context.Background())
	require.Equal(t, 1, p.calls)
}

func TestRefresherUsesConfiguredRequest(t *testing.T) {
	p := &recordingProvider{}
	r := NewRefresher(p, NewSlot(NewCache(store.NewMemoryStore("")), nil), DefaultFixRequest(), 0, nil)

	r.Refresh(context.Background())
	require.Equal(t, "gps", p.req.Provider)
	require.Equal(t, 2*time.Second, p.req.MinInterval)
	require.Equal(t, 10.0, p.req.MinDisplacementM)
}
