package actor

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cory-johannsen/combatstate/internal/game/entity"
	"github.com/cory-johannsen/combatstate/internal/game/names"
)

// ErrUnknownActor is returned when an operation targets an entity that is not
// registered, or whose state has already been torn down.
var ErrUnknownActor = errors.New("unknown actor")

// ErrOrphanedSlot signals an invariant violation: a timer fired for a slot
// that is neither the current entry under its name nor cancelled.
var ErrOrphanedSlot = errors.New("orphaned slot")

// State is the mutable combat state of one registered actor.
//
// Every mutation happens under the state's mutex. Callbacks passed to the
// Put*/Update* methods run under that mutex and must not call back into the
// State or run user behavior; behaviors are invoked by the engines after the
// update returns.
type State struct {
	entity entity.Handle

	mu      sync.Mutex
	closed  bool
	effects map[string]*EffectSlot
	casts   map[string]*CastSlot
	attrs   map[string]float64
	weapon  string
	granted map[string]string // key → display name
}

// NewState allocates an empty State for h.
//
// Precondition: h must not be nil.
func NewState(h entity.Handle) *State {
	return &State{
		entity:  h,
		effects: make(map[string]*EffectSlot),
		casts:   make(map[string]*CastSlot),
		attrs:   make(map[string]float64),
		granted: make(map[string]string),
	}
}

// Entity returns the handle this state belongs to.
func (s *State) Entity() entity.Handle { return s.entity }

// ID returns the owning entity's identity.
func (s *State) ID() uuid.UUID { return s.entity.ID() }

// Name returns the owning entity's display name.
func (s *State) Name() string { return s.entity.Name() }

// Closed reports whether the state has been torn down.
func (s *State) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close cancels every timer owned by the state and marks it closed. All
// timers are stopped under one lock acquisition so no callback can observe a
// partially torn-down state. Safe to call multiple times.
//
// Postcondition: no effect or cast slot remains; every later mutation fails
// with ErrUnknownActor.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for key, e := range s.effects {
		e.cancel()
		delete(s.effects, key)
	}
	for key, c := range s.casts {
		c.cancel()
		delete(s.casts, key)
	}
}

// PutEffect installs a fresh slot for the effect name, cancelling any slot
// already active under the same name. arm is called under the lock with the
// new slot so that its timers are attached before any other mutator can see
// it.
//
// Postcondition: exactly one slot is stored under names.Key(name); returns
// the new slot and the cancelled slot it replaced, or nil.
func (s *State) PutEffect(name string, arm func(*EffectSlot)) (es, old *EffectSlot, err error) {
	key := names.Key(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrUnknownActor
	}
	old = s.effects[key]
	if old != nil {
		old.cancel()
	}
	es = &EffectSlot{slot: slot{name: name}}
	s.effects[key] = es
	arm(es)
	return es, old, nil
}

// UpdateEffect runs fn against the slot stored under name if it is want.
// When fn returns true the slot is cancelled and removed.
//
// Postcondition: returns (false, nil) when want has been superseded or
// removed; (false, ErrOrphanedSlot) when want is neither current nor
// cancelled; (false, ErrUnknownActor) when the state is closed.
func (s *State) UpdateEffect(name string, want *EffectSlot, fn func(*EffectSlot) (remove bool)) (bool, error) {
	key := names.Key(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrUnknownActor
	}
	cur, ok := s.effects[key]
	if !ok || cur != want {
		if !want.cancelled {
			want.cancel()
			return false, ErrOrphanedSlot
		}
		return false, nil
	}
	if fn(cur) {
		cur.cancel()
		delete(s.effects, key)
	}
	return true, nil
}

// RemoveEffect cancels and removes the slot stored under name.
//
// Postcondition: HasEffect(name) is false; returns whether a slot was removed.
func (s *State) RemoveEffect(name string) (bool, error) {
	es, err := s.TakeEffect(name)
	return es != nil, err
}

// TakeEffect is RemoveEffect returning the cancelled slot, or nil when no
// effect was active under name.
func (s *State) TakeEffect(name string) (*EffectSlot, error) {
	key := names.Key(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrUnknownActor
	}
	cur, ok := s.effects[key]
	if !ok {
		return nil, nil
	}
	cur.cancel()
	delete(s.effects, key)
	return cur, nil
}

// HasEffect reports whether an effect is active under name.
func (s *State) HasEffect(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.effects[names.Key(name)]
	return ok
}

// EffectTicks returns how many times the active effect under name has fired.
func (s *State) EffectTicks(name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.effects[names.Key(name)]
	if !ok {
		return 0, false
	}
	return e.Ticks, true
}

// Effects returns the sorted keys of all active effects.
func (s *State) Effects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.effects)
}

// BeginCast inserts a casting slot for the skill name unless one is already
// present. arm is called under the lock with the new slot.
//
// Postcondition: returns false without calling arm when the skill is not
// Ready.
func (s *State) BeginCast(name string, arm func(*CastSlot)) (*CastSlot, bool, error) {
	key := names.Key(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false, ErrUnknownActor
	}
	if _, busy := s.casts[key]; busy {
		return nil, false, nil
	}
	cs := &CastSlot{slot: slot{name: name}, Phase: PhaseCasting}
	s.casts[key] = cs
	arm(cs)
	return cs, true, nil
}

// UpdateCast runs fn against the slot stored under name. When want is non-nil
// the slot must be want; when want is nil whichever slot is current is used.
// When fn returns true the slot is cancelled and removed, returning the skill
// to Ready.
//
// Postcondition: returns (false, nil) when no matching slot exists.
func (s *State) UpdateCast(name string, want *CastSlot, fn func(*CastSlot) (remove bool)) (bool, error) {
	key := names.Key(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrUnknownActor
	}
	cur, ok := s.casts[key]
	if !ok || (want != nil && cur != want) {
		if want != nil && !want.cancelled {
			want.cancel()
			return false, ErrOrphanedSlot
		}
		return false, nil
	}
	if fn(cur) {
		cur.cancel()
		delete(s.casts, key)
	}
	return true, nil
}

// CastPhaseOf returns the phase of the skill under name, or false when the
// skill is Ready.
func (s *State) CastPhaseOf(name string) (CastPhase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.casts[names.Key(name)]
	if !ok {
		return 0, false
	}
	return c.Phase, true
}

// Cooldowns returns the sorted keys of every skill that is not Ready.
func (s *State) Cooldowns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.casts)
}

// Attr returns the named attribute, or zero if unset.
func (s *State) Attr(name string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attrs[names.Key(name)]
}

// SetAttr sets the named attribute.
func (s *State) SetAttr(name string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[names.Key(name)] = v
}

// AddAttr adds delta to the named attribute and returns the new value.
func (s *State) AddAttr(name string, delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := names.Key(name)
	s.attrs[key] += delta
	return s.attrs[key]
}

// Equip records weaponName as equipped and replaces the granted skill set
// with skillNames.
func (s *State) Equip(weaponName string, skillNames []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrUnknownActor
	}
	s.weapon = weaponName
	s.granted = make(map[string]string, len(skillNames))
	for _, n := range skillNames {
		s.granted[names.Key(n)] = n
	}
	return nil
}

// Weapon returns the equipped weapon name, or "" if none.
func (s *State) Weapon() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.weapon
}

// GrantedSkills returns the sorted keys of skills granted by the equipped weapon.
func (s *State) GrantedSkills() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.granted)
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
