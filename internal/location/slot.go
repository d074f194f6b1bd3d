package location

import (
	"context"
	"log/slog"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

// Slot is a last-write-wins mailbox between location callbacks and the cache.
// Post never blocks; if a fix is still waiting to be written it is replaced.
type Slot struct {
	updates chan weather.Coordinates
	cache   *Cache
	logger  *slog.Logger
}

// NewSlot creates a Slot draining into cache. Call Run to start the writer.
func NewSlot(cache *Cache, logger *slog.Logger) *Slot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Slot{
		updates: make(chan weather.Coordinates, 1),
		cache:   cache,
		logger:  logger,
	}
}

// Post offers a fresh fix.
func (s *Slot) Post(coords weather.Coordinates) {
	for {
		select {
		case s.updates <- coords:
			return
		default:
		}
		// Drop the stale pending fix and try again.
		select {
		case <-s.updates:
		default:
		}
	}
}

// Run writes posted fixes to the cache until ctx is done.
func (s *Slot) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case coords := <-s.updates:
			if err := s.cache.Write(ctx, coords); err != nil {
				s.logger.Error("failed to store location fix", "coords", coords.Key(), "error", err)
				continue
			}
			s.logger.Debug("stored location fix", "coords", coords.Key())
		}
	}
}
