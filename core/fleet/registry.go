// Package fleet owns the drone records. The registry is sized once at
// construction; drones are never added or removed afterwards.
package fleet

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/model"
)

// SeedConfig controls the initial fleet layout.
type SeedConfig struct {
	Count  int
	Center geo.Point
	// Spread is the width of the square around Center in which drones spawn.
	Spread float64
	// MinBattery and MaxBattery bound the initial charge in percent.
	MinBattery float64
	MaxBattery float64
}

// Registry stores drones in insertion order.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	agents map[string]*model.Agent
}

// New builds a registry from explicit drones. Duplicate ids are rejected.
func New(agents ...model.Agent) (*Registry, error) {
	r := &Registry{agents: make(map[string]*model.Agent, len(agents))}
	for _, a := range agents {
		if a.ID == "" {
			return nil, fmt.Errorf("fleet: empty drone id: %w", model.ErrInvalidInput)
		}
		if _, ok := r.agents[a.ID]; ok {
			return nil, fmt.Errorf("fleet: duplicate drone id %s: %w", a.ID, model.ErrInvalidInput)
		}
		if a.Status == "" {
			a.Status = model.AgentIdle
		}
		if a.Home == (geo.Point{}) {
			a.Home = a.Position
		}
		c := a.Clone()
		r.agents[a.ID] = &c
		r.order = append(r.order, a.ID)
	}
	return r, nil
}

// Seed creates cfg.Count idle drones named drone-1..drone-N at random
// positions around cfg.Center.
func Seed(cfg SeedConfig, rng *rand.Rand) *Registry {
	now := time.Now()
	agents := make([]model.Agent, 0, cfg.Count)
	for i := 1; i <= cfg.Count; i++ {
		pos := geo.Jitter(cfg.Center, cfg.Spread, rng)
		agents = append(agents, model.Agent{
			ID:        fmt.Sprintf("drone-%d", i),
			Position:  pos,
			Home:      pos,
			Battery:   cfg.MinBattery + rng.Float64()*(cfg.MaxBattery-cfg.MinBattery),
			Status:    model.AgentIdle,
			UpdatedAt: now,
		})
	}
	r, _ := New(agents...)
	return r
}

// Len returns the fleet size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IDs returns drone ids in registry order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// List returns a snapshot of every drone in registry order.
func (r *Registry) List() []model.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.agents[id].Clone())
	}
	return out
}

// Get returns a copy of the drone with the given id.
func (r *Registry) Get(id string) (model.Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	if !ok {
		return model.Agent{}, fmt.Errorf("drone %s: %w", id, model.ErrNotFound)
	}
	return a.Clone(), nil
}

// Mutate applies fn to the drone under the registry write lock. Changes are
// discarded when fn returns an error.
func (r *Registry) Mutate(id string, fn func(*model.Agent) error) (model.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[id]
	if !ok {
		return model.Agent{}, fmt.Errorf("drone %s: %w", id, model.ErrNotFound)
	}
	work := a.Clone()
	if err := fn(&work); err != nil {
		return a.Clone(), err
	}
	work.ID = id
	*a = work
	return work.Clone(), nil
}
