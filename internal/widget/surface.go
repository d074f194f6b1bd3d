package widget

import (
	"context"
	"sync"
	"time"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/render"
)

// Surface receives the views of each cycle.
type Surface interface {
	Push(ctx context.Context, id InstanceID, views render.Views) error
}

// RenderState is what an instance currently displays.
type RenderState struct {
	Temperature render.StyledText `json:"temperature"`
	Description string            `json:"description"`
	Place       string            `json:"place,omitempty"`
	// TemperatureText is Temperature without styling.
	TemperatureText string    `json:"temperatureText"`
	UpdatedAt       time.Time `json:"updatedAt"`
	// Pushes counts every push, including the ones that changed nothing.
	Pushes int `json:"pushes"`
}

// MemorySurface keeps the displayed state of every instance in memory.
type MemorySurface struct {
	mu     sync.RWMutex
	states map[InstanceID]*RenderState
	now    func() time.Time
}

// NewMemorySurface creates an empty MemorySurface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{
		states: make(map[InstanceID]*RenderState),
		now:    time.Now,
	}
}

// Push applies views on top of what id displays.
func (s *MemorySurface) Push(_ context.Context, id InstanceID, views render.Views) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[id]
	if !ok {
		st = &RenderState{}
		s.states[id] = st
	}
	st.Pushes++

	if views.Empty() {
		return nil
	}
	if views.Temperature != nil {
		st.Temperature = *views.Temperature
		st.TemperatureText = views.Temperature.String()
	}
	if views.Description != nil {
		st.Description = *views.Description
	}
	if views.Place != nil {
		st.Place = *views.Place
	}
	st.UpdatedAt = s.now().UTC()
	return nil
}

// State returns a copy of what id displays.
func (s *MemorySurface) State(id InstanceID) (RenderState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[id]
	if !ok {
		return RenderState{}, false
	}
	return *st, true
}

// Reset forgets every instance.
func (s *MemorySurface) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = make(map[InstanceID]*RenderState)
}
