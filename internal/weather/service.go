package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Fetcher turns a single provider call into a display-ready Snapshot.
type Fetcher struct {
	provider Provider
	logger   *slog.Logger
}

// NewFetcher creates a new Fetcher.
func NewFetcher(provider Provider, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		provider: provider,
		logger:   logger,
	}
}

// Fetch issues exactly one provider call for coords. There is no retry and no
// response caching; every failure is returned to the caller untouched.
func (f *Fetcher) Fetch(ctx context.Context, coords Coordinates) (Snapshot, error) {
	if f.provider == nil {
		return Snapshot{}, fmt.Errorf("fetch %s: %w", coords.Key(), ErrNotConfigured)
	}

	f.logger.Debug("fetching weather", "provider", f.provider.Name(), "coords", coords.Key())

	r, err := f.provider.Fetch(ctx, coords)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch %s from %s: %w", coords.Key(), f.provider.Name(), err)
	}

	ts := r.Timestamp.UTC()
	if r.Timestamp.IsZero() {
		ts = time.Now().UTC()
	}

	return Snapshot{
		Provider:     r.ProviderName,
		Timestamp:    ts,
		TemperatureC: RoundTemperature(r.TemperatureC),
		Description:  CapitalizeWords(r.Description),
	}, nil
}
