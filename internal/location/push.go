package location

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

const earthRadiusM = 6371000.0

// PushProvider answers fix requests with positions the device pushes in.
type PushProvider struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]pendingFix

	last    weather.Coordinates
	lastAt  time.Time
	hasFix  bool
	nowFunc func() time.Time
}

type pendingFix struct {
	req      FixRequest
	callback func(weather.Coordinates)
	stop     func() bool
}

// NewPushProvider creates an empty PushProvider.
func NewPushProvider() *PushProvider {
	return &PushProvider{
		pending: make(map[uint64]pendingFix),
		nowFunc: time.Now,
	}
}

// RequestOneFix registers callback until the next accepted fix or until ctx ends.
func (p *PushProvider) RequestOneFix(ctx context.Context, req FixRequest, callback func(weather.Coordinates)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	stop := context.AfterFunc(ctx, func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	})
	p.pending[id] = pendingFix{req: req, callback: callback, stop: stop}
	return nil
}

// Deliver offers a fix from the device and reports how many requests it answered.
// A request accepts the fix when no fix was accepted before, or when both its
// minimum interval has elapsed and the position moved at least its minimum
// displacement since the last accepted fix.
func (p *PushProvider) Deliver(coords weather.Coordinates) int {
	now := p.nowFunc()

	p.mu.Lock()
	var answered []pendingFix
	for id, pf := range p.pending {
		if !p.accepts(pf.req, coords, now) {
			continue
		}
		answered = append(answered, pf)
		delete(p.pending, id)
	}
	if len(answered) > 0 || !p.hasFix {
		p.last, p.lastAt, p.hasFix = coords, now, true
	}
	p.mu.Unlock()

	n := 0
	for _, pf := range answered {
		if !pf.stop() {
			// ctx ended concurrently; the request is already gone.
			continue
		}
		pf.callback(coords)
		n++
	}
	return n
}

// Pending reports how many requests are waiting for a fix.
func (p *PushProvider) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *PushProvider) accepts(req FixRequest, coords weather.Coordinates, now time.Time) bool {
	if !p.hasFix {
		return true
	}
	if now.Sub(p.lastAt) < req.MinInterval {
		return false
	}
	return Distance(p.last, coords) >= req.MinDisplacementM
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b weather.Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}
