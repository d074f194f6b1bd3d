// Package widget runs the update cycle of every placed widget instance.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/render"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

// CoordinateReader reads the last known position.
type CoordinateReader interface {
	Read(ctx context.Context) (weather.Coordinates, bool, error)
}

// LocationRefresher requests a new fix without waiting for it.
type LocationRefresher interface {
	Refresh(ctx context.Context)
}

// WeatherFetcher performs one weather lookup.
type WeatherFetcher interface {
	Fetch(ctx context.Context, coords weather.Coordinates) (weather.Snapshot, error)
}

// PlaceLabeler names the place at a position.
type PlaceLabeler interface {
	Label(ctx context.Context, coords weather.Coordinates) (string, error)
}

// Deps are the collaborators of a Loop. Labeler and Refresher are optional.
type Deps struct {
	Cache     CoordinateReader
	Refresher LocationRefresher
	Fetcher   WeatherFetcher
	Labeler   PlaceLabeler
	Surface   Surface
	Alarm     Alarm
	Logger    *slog.Logger
}

// Loop is the update loop. It implements Host.
type Loop struct {
	deps   Deps
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// flights joins a trigger with the cycle already running for the same instance.
	flights singleflight.Group

	mu     sync.Mutex
	active map[InstanceID]struct{}
	closed bool
}

var _ Host = (*Loop)(nil)

// NewLoop creates a Loop. Cycles run until Close is called.
func NewLoop(deps Deps) (*Loop, error) {
	if deps.Cache == nil || deps.Fetcher == nil || deps.Surface == nil || deps.Alarm == nil {
		return nil, errors.New("widget: cache, fetcher, surface and alarm are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		deps:   deps,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[InstanceID]struct{}),
	}, nil
}

// OnPlacementBatchUpdate updates every instance of the batch, one after another.
func (l *Loop) OnPlacementBatchUpdate(_ context.Context, ids []InstanceID) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	for _, id := range ids {
		l.active[id] = struct{}{}
	}
	l.mu.Unlock()

	l.dispatch(ids)
}

// OnOptionsChanged updates a single instance.
func (l *Loop) OnOptionsChanged(ctx context.Context, id InstanceID) {
	l.logger.Debug("widget options changed", "instance", id)
	l.OnPlacementBatchUpdate(ctx, []InstanceID{id})
}

// OnAllInstancesRemoved cancels every pending trigger. Cycles still in
// flight finish rendering but no longer re-arm.
func (l *Loop) OnAllInstancesRemoved(_ context.Context) {
	l.mu.Lock()
	l.active = make(map[InstanceID]struct{})
	l.mu.Unlock()

	if err := l.deps.Alarm.CancelAll(); err != nil {
		l.logger.Error("failed to cancel widget alarms", "error", err)
	}
	l.logger.Info("all widget instances removed")
}

// Active returns the number of instances that keep re-arming.
func (l *Loop) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// Close stops accepting triggers, cancels in-flight cycles and waits for them.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}

// Wait blocks until every dispatched batch has finished.
func (l *Loop) Wait() {
	l.wg.Wait()
}

func (l *Loop) dispatch(ids []InstanceID) {
	if len(ids) == 0 {
		return
	}
	batch := append([]InstanceID(nil), ids...)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		for _, id := range batch {
			if l.ctx.Err() != nil {
				return
			}
			ran := false
			l.flights.Do(id.String(), func() (interface{}, error) {
				ran = true
				l.runCycle(id)
				return nil, nil
			})
			if !ran {
				l.logger.Debug("trigger joined running cycle", "instance", id)
			}
		}
	}()
}

// runCycle executes one cycle for id. Nothing escapes it: errors are logged and
// panics recovered, and the render and reschedule steps always run.
func (l *Loop) runCycle(id InstanceID) {
	ctx := l.ctx
	logger := l.logger.With("instance", id, "cycle", uuid.NewString())

	var views render.Views
	defer func() {
		if r := recover(); r != nil {
			logger.Error("update cycle panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
		l.renderAndReschedule(ctx, logger, id, views)
	}()

	logger.Debug("update cycle started")
	views = l.update(ctx, logger)
}

// update reads the cache, fires a refresh and fetches. Coordinates are
// captured before the refresh so a fix arriving now only affects later cycles.
func (l *Loop) update(ctx context.Context, logger *slog.Logger) render.Views {
	coords, ok, err := l.deps.Cache.Read(ctx)
	if err != nil {
		logger.Warn("failed to read cached location", "error", err)
	}

	if l.deps.Refresher != nil {
		l.deps.Refresher.Refresh(ctx)
	}

	if !ok {
		logger.Info("no cached location; skipping weather fetch")
		return render.Views{}
	}

	snap, err := l.deps.Fetcher.Fetch(ctx, coords)
	if err != nil {
		attrs := []any{"coords", coords.Key(), "error", err}
		var fe *weather.FetchError
		if errors.As(err, &fe) {
			attrs = append(attrs, "status", fe.StatusCode, "body", fe.Body)
		}
		logger.Error("weather fetch failed", attrs...)
		return render.Views{}
	}

	logger.Info("weather fetched", "coords", coords.Key(), "temperatureC", snap.TemperatureC, "description", snap.Description)
	views := render.Snapshot(&snap)

	if l.deps.Labeler != nil {
		label, err := l.deps.Labeler.Label(ctx, coords)
		if err != nil {
			logger.Warn("place label unavailable", "coords", coords.Key(), "error", err)
		} else {
			views = views.WithPlace(label)
		}
	}
	return views
}

// fire handles an alarm. Alarms of removed instances are ignored.
func (l *Loop) fire(id InstanceID) {
	l.mu.Lock()
	_, active := l.active[id]
	l.mu.Unlock()
	if !active {
		return
	}
	l.dispatch([]InstanceID{id})
}

func (l *Loop) renderAndReschedule(ctx context.Context, logger *slog.Logger, id InstanceID, views render.Views) {
	if err := l.deps.Surface.Push(ctx, id, views); err != nil {
		logger.Error("failed to push widget views", "error", err)
	}

	if err := l.deps.Alarm.Cancel(id); err != nil {
		logger.Error("failed to cancel widget alarm", "error", err)
	}

	l.mu.Lock()
	_, active := l.active[id]
	closed := l.closed
	l.mu.Unlock()
	if !active || closed {
		logger.Debug("instance inactive; not re-arming")
		return
	}

	err := l.deps.Alarm.Arm(id, func() {
		l.fire(id)
	})
	if err != nil {
		logger.Error("failed to arm widget alarm", "error", err)
		return
	}
	logger.Debug("update cycle finished")
}
