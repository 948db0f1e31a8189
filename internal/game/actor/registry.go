// Package actor tracks the combat state of every registered actor and ties
// that state's lifetime to its entity.
package actor

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatstate/internal/game/entity"
)

// ErrNotActor is returned when registering an entity that is not a live,
// controllable actor.
var ErrNotActor = errors.New("entity is not an actor")

// Registry maps live entities to their combat state, keyed by entity identity.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	actors map[uuid.UUID]*State
	logger *zap.Logger
}

// NewRegistry creates an empty Registry.
//
// Precondition: logger must be non-nil.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		actors: make(map[uuid.UUID]*State),
		logger: logger,
	}
}

// Register allocates combat state for h and subscribes to its destruction and
// death signals. Registering an entity that is already registered returns the
// existing state without subscribing again.
//
// Precondition: h must not be nil.
// Postcondition: Returns the registered State, or ErrNotActor (logged, no-op)
// when h is not an actor.
func (r *Registry) Register(h entity.Handle) (*State, error) {
	if !h.IsActor() {
		r.logger.Info("rejecting registration of non-actor entity",
			zap.String("entity", h.Name()),
			zap.Stringer("entity_id", h.ID()),
		)
		return nil, ErrNotActor
	}

	id := h.ID()
	r.mu.Lock()
	if existing, ok := r.actors[id]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	st := NewState(h)
	r.actors[id] = st
	r.mu.Unlock()

	var once sync.Once
	teardown := func(reason string) func() {
		return func() {
			once.Do(func() {
				if r.remove(id, st) {
					r.logger.Debug("actor torn down",
						zap.String("entity", h.Name()),
						zap.Stringer("entity_id", id),
						zap.String("reason", reason),
					)
				}
			})
		}
	}
	h.OnDestroy(teardown("destroyed"))
	if m, ok := h.(entity.Mortal); ok {
		m.OnDeath(teardown("died"))
	}

	r.logger.Debug("actor registered",
		zap.String("entity", h.Name()),
		zap.Stringer("entity_id", id),
	)
	return st, nil
}

// Unregister tears down h's combat state. Unknown entities are a no-op.
//
// Postcondition: Get(h) reports absent; every timer owned by the old state is
// cancelled. Returns whether a state was removed.
func (r *Registry) Unregister(h entity.Handle) bool {
	return r.UnregisterID(h.ID())
}

// UnregisterID tears down the state registered under id. Unknown ids are a no-op.
func (r *Registry) UnregisterID(id uuid.UUID) bool {
	r.mu.RLock()
	st, ok := r.actors[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return r.remove(id, st)
}

// remove deletes st from the registry if it is still the state stored under
// id, then closes it. A stale subscription from an earlier registration of
// the same entity therefore cannot tear down a newer state.
func (r *Registry) remove(id uuid.UUID, st *State) bool {
	r.mu.Lock()
	cur, ok := r.actors[id]
	if !ok || cur != st {
		r.mu.Unlock()
		return false
	}
	delete(r.actors, id)
	r.mu.Unlock()

	st.Close()
	return true
}

// Get returns the state for h.
//
// Postcondition: Returns (state, true) if registered, or (nil, false) otherwise.
func (r *Registry) Get(h entity.Handle) (*State, bool) {
	return r.GetByID(h.ID())
}

// GetByID returns the state registered under id.
func (r *Registry) GetByID(id uuid.UUID) (*State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.actors[id]
	return st, ok
}

// Len returns the number of registered actors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

// All returns a snapshot of every registered state.
func (r *Registry) All() []*State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*State, 0, len(r.actors))
	for _, st := range r.actors {
		out = append(out, st)
	}
	return out
}

// Close tears down every registered actor.
//
// Postcondition: Len() == 0 and no actor timer remains armed.
func (r *Registry) Close() {
	r.mu.Lock()
	states := r.actors
	r.actors = make(map[uuid.UUID]*State)
	r.mu.Unlock()

	for _, st := range states {
		st.Close()
	}
}
