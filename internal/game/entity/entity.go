// Package entity defines the handle the combat engines use to refer to a live
// world entity, plus Body, an in-process implementation.
package entity

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is the engine's view of a world entity.
//
// Invariant: ID is stable and unique for the lifetime of the entity; two
// entities may share a Name.
type Handle interface {
	// ID returns the entity's identity.
	ID() uuid.UUID
	// Name returns the display name.
	Name() string
	// IsActor reports whether the entity is a live, controllable actor.
	IsActor() bool
	// OnDestroy registers fn to be called once when the entity is destroyed.
	// If the entity is already destroyed fn is called immediately.
	OnDestroy(fn func())
}

// Mortal is a Handle that can also die while still existing.
type Mortal interface {
	Handle
	// OnDeath registers fn to be called once when the entity dies.
	// If the entity is already dead fn is called immediately.
	OnDeath(fn func())
}

// Body is a Mortal entity managed in process.
// All methods are safe for concurrent use.
type Body struct {
	id    uuid.UUID
	name  string
	actor bool

	mu        sync.Mutex
	destroyed bool
	dead      bool
	onDestroy []func()
	onDeath   []func()
}

// NewBody creates a Body with a fresh random identity.
//
// Precondition: name should be non-empty.
// Postcondition: Returns a live Body; IsActor reports actor.
func NewBody(name string, actor bool) *Body {
	return &Body{id: uuid.New(), name: name, actor: actor}
}

// ID returns the body's identity.
func (b *Body) ID() uuid.UUID { return b.id }

// Name returns the display name.
func (b *Body) Name() string { return b.name }

// IsActor reports whether the body is an actor that is neither dead nor destroyed.
func (b *Body) IsActor() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.actor && !b.destroyed && !b.dead
}

// Destroyed reports whether Destroy has been called.
func (b *Body) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// OnDestroy registers fn for the destruction signal.
func (b *Body) OnDestroy(fn func()) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		fn()
		return
	}
	b.onDestroy = append(b.onDestroy, fn)
	b.mu.Unlock()
}

// OnDeath registers fn for the death signal.
func (b *Body) OnDeath(fn func()) {
	b.mu.Lock()
	if b.dead {
		b.mu.Unlock()
		fn()
		return
	}
	b.onDeath = append(b.onDeath, fn)
	b.mu.Unlock()
}

// Destroy removes the body from the world and fires every destruction
// subscriber exactly once. Safe to call multiple times.
func (b *Body) Destroy() {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	subs := b.onDestroy
	b.onDestroy = nil
	b.onDeath = nil
	b.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Kill marks the body dead and fires every death subscriber exactly once.
// A destroyed body cannot die. Safe to call multiple times.
func (b *Body) Kill() {
	b.mu.Lock()
	if b.dead || b.destroyed {
		b.mu.Unlock()
		return
	}
	b.dead = true
	subs := b.onDeath
	b.onDeath = nil
	b.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
