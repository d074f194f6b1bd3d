package location

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

// Refresher asks the provider for one fresh fix and feeds it into the Slot.
// It never waits for the fix: a fix only affects the next cycle's cache read.
type Refresher struct {
	provider Provider
	slot     *Slot
	req      FixRequest
	timeout  time.Duration
	logger   *slog.Logger
}

// NewRefresher creates a Refresher. timeout bounds how long a request stays
// pending at the provider; zero means one minute.
func NewRefresher(provider Provider, slot *Slot, req FixRequest, timeout time.Duration, logger *slog.Logger) *Refresher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		provider: provider,
		slot:     slot,
		req:      req,
		timeout:  timeout,
		logger:   logger,
	}
}

// Refresh fires one fix request and returns immediately. Failures are logged
// and otherwise ignored; the cache simply is not updated.
func (r *Refresher) Refresh(ctx context.Context) {
	if r.provider == nil {
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)

	err := r.provider.RequestOneFix(reqCtx, r.req, func(c weather.Coordinates) {
		defer cancel()
		r.logger.Debug("got location fix", "provider", r.req.Provider, "coords", c.Key())
		r.slot.Post(c)
	})
	if err == nil {
		return
	}

	cancel()
	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrProviderUnavailable):
		r.logger.Debug("location refresh skipped", "provider", r.req.Provider, "error", err)
	default:
		r.logger.Warn("location refresh failed", "provider", r.req.Provider, "error", err)
	}
}
