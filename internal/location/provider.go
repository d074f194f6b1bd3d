package location

import (
	"context"
	"errors"
	"time"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

var (
	// ErrPermissionDenied means the platform refused location access.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrProviderUnavailable means no location source can answer.
	ErrProviderUnavailable = errors.New("location provider unavailable")
)

// FixRequest describes one location request.
type FixRequest struct {
	Provider         string
	MinInterval      time.Duration
	MinDisplacementM float64
}

// DefaultFixRequest mirrors the widget's GPS request: 2s and 10m.
func DefaultFixRequest() FixRequest {
	return FixRequest{
		Provider:         "gps",
		MinInterval:      2 * time.Second,
		MinDisplacementM: 10,
	}
}

// Provider is a source of location fixes. RequestOneFix must return promptly;
// callback is invoked at most once, later, from any goroutine, and never after
// ctx is done.
type Provider interface {
	RequestOneFix(ctx context.Context, req FixRequest, callback func(weather.Coordinates)) error
}

// StaticProvider answers every request with the same fix.
type StaticProvider struct {
	coords weather.Coordinates
}

// NewStaticProvider returns a Provider that always reports coords.
func NewStaticProvider(coords weather.Coordinates) *StaticProvider {
	return &StaticProvider{coords: coords}
}

func (p *StaticProvider) RequestOneFix(ctx context.Context, _ FixRequest, callback func(weather.Coordinates)) error {
	go func() {
		if ctx.Err() == nil {
			callback(p.coords)
		}
	}()
	return nil
}
