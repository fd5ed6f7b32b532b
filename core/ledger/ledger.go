// Package ledger keeps every delivery request submitted during the process
// lifetime together with its status history. Requests are never removed.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/model"
)

const anonymous = "Anonymous"

// Ledger stores requests in creation order.
type Ledger struct {
	mu    sync.RWMutex
	order []string
	reqs  map[string]*model.Request
	now   func() time.Time
	newID func() string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		reqs:  make(map[string]*model.Request),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create records a new pending request. A nil or non-finite position is
// rejected with model.ErrInvalidInput and nothing is stored.
func (l *Ledger) Create(who model.Requester, pos *geo.Point, supplies []string) (model.Request, error) {
	if pos == nil || !pos.Valid() {
		return model.Request{}, fmt.Errorf("lat,lng required: %w", model.ErrInvalidInput)
	}
	if who.Name == "" {
		who.Name = anonymous
	}
	if supplies == nil {
		supplies = []string{}
	}
	req := &model.Request{
		ID:        l.newID(),
		Requester: who,
		Position:  *pos,
		Supplies:  append([]string{}, supplies...),
		Status:    model.RequestPending,
		CreatedAt: l.now(),
	}
	l.mu.Lock()
	l.reqs[req.ID] = req
	l.order = append(l.order, req.ID)
	l.mu.Unlock()
	return req.Clone(), nil
}

// List returns every request in creation order.
func (l *Ledger) List() []model.Request {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Request, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.reqs[id].Clone())
	}
	return out
}

// Len returns the number of requests recorded.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Get returns a copy of the request.
func (l *Ledger) Get(id string) (model.Request, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.reqs[id]
	if !ok {
		return model.Request{}, fmt.Errorf("request %s: %w", id, model.ErrNotFound)
	}
	return r.Clone(), nil
}

// MarkAssigned links the request to a drone. Only pending or queued requests
// can be assigned.
func (l *Ledger) MarkAssigned(id, agentID string) (model.Request, error) {
	return l.update(id, func(r *model.Request) error {
		if r.Status != model.RequestPending && r.Status != model.RequestQueued {
			return transition(r, model.RequestAssigned)
		}
		r.Status = model.RequestAssigned
		r.AssignedAgentID = agentID
		return nil
	})
}

// MarkQueued records that no drone was available.
func (l *Ledger) MarkQueued(id string) (model.Request, error) {
	return l.update(id, func(r *model.Request) error {
		if r.Status != model.RequestPending && r.Status != model.RequestQueued {
			return transition(r, model.RequestQueued)
		}
		r.Status = model.RequestQueued
		r.AssignedAgentID = ""
		return nil
	})
}

// MarkEnroute records that the linked drone has started flying.
func (l *Ledger) MarkEnroute(id, agentID string) (model.Request, error) {
	return l.update(id, func(r *model.Request) error {
		if r.Status == model.RequestEnroute && r.AssignedAgentID == agentID {
			return nil
		}
		if r.Status != model.RequestAssigned || r.AssignedAgentID != agentID {
			return transition(r, model.RequestEnroute)
		}
		r.Status = model.RequestEnroute
		return nil
	})
}

// Release puts an in-flight request back into the queue after its drone was
// commanded elsewhere.
func (l *Ledger) Release(id string) (model.Request, error) {
	return l.update(id, func(r *model.Request) error {
		if !r.InFlight() {
			return transition(r, model.RequestQueued)
		}
		r.Status = model.RequestQueued
		r.AssignedAgentID = ""
		return nil
	})
}

// MarkDelivered completes the request. It fails with
// model.ErrInvalidTransition unless the request is in flight with agentID.
// Delivering an already delivered request is a no-op.
func (l *Ledger) MarkDelivered(id, agentID string, at time.Time) (model.Request, error) {
	return l.update(id, func(r *model.Request) error {
		if r.Status == model.RequestDelivered {
			return nil
		}
		if !r.InFlight() || r.AssignedAgentID != agentID {
			return transition(r, model.RequestDelivered)
		}
		t := at
		r.Status = model.RequestDelivered
		r.DeliveredAt = &t
		r.DeliveredBy = agentID
		return nil
	})
}

func (l *Ledger) update(id string, fn func(*model.Request) error) (model.Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.reqs[id]
	if !ok {
		return model.Request{}, fmt.Errorf("request %s: %w", id, model.ErrNotFound)
	}
	if err := fn(r); err != nil {
		return r.Clone(), err
	}
	return r.Clone(), nil
}

func transition(r *model.Request, to model.RequestStatus) error {
	return fmt.Errorf("request %s %s -> %s (agent %q): %w", r.ID, r.Status, to, r.AssignedAgentID, model.ErrInvalidTransition)
}
