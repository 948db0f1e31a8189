// Package effect defines status effects and runs their timed lifecycles on
// registered actors.
package effect

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/game/names"
)

// ErrUnknownEffect is returned when an effect name is not in the catalog.
var ErrUnknownEffect = errors.New("unknown status effect")

// Behavior is run against the target actor's current state.
type Behavior func(st *actor.State)

// Definition is the immutable, catalog-owned description of a status effect.
type Definition struct {
	// Name is the unique, case-insensitive key.
	Name string
	// Description is shown to players; informational only.
	Description string
	// Duration is the total active window. Duration is authoritative: the
	// effect removes itself when it elapses.
	Duration time.Duration
	// Tick is the periodic interval. Zero, or a tick longer than Duration,
	// means the effect fires once when Duration elapses.
	Tick time.Duration
	// Effect runs on every tick. nil is a pure marker effect.
	Effect Behavior
	// OnApply runs after each successful apply, including refreshes.
	OnApply Behavior
	// OnRemove runs when the effect ends by expiry or explicit removal, and
	// when a refresh replaces it (before the new OnApply), so apply and
	// remove hooks always pair. It does not run when the actor is torn down.
	// The hook of the definition the effect started with is used even if the
	// catalog entry has since changed.
	OnRemove Behavior
}

// Validate checks the definition's invariants.
//
// Postcondition: returns nil iff Name is non-empty, Duration > 0 and Tick >= 0.
func (d *Definition) Validate() error {
	var errs []string
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if d.Duration <= 0 {
		errs = append(errs, fmt.Sprintf("duration must be > 0, got %s", d.Duration))
	}
	if d.Tick < 0 {
		errs = append(errs, fmt.Sprintf("tick must be >= 0, got %s", d.Tick))
	}
	if len(errs) > 0 {
		return fmt.Errorf("status effect %q: %s", d.Name, strings.Join(errs, "; "))
	}
	return nil
}

// maxTicks is the number of periodic firings that fit in the window, or zero
// for a single firing at expiry.
func (d *Definition) maxTicks() int {
	if d.Tick <= 0 || d.Tick > d.Duration {
		return 0
	}
	return int(d.Duration / d.Tick)
}

// Catalog holds every known Definition keyed by lower-cased name.
// All methods are safe for concurrent use.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewCatalog creates an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]*Definition)}
}

// Register adds def, overwriting any existing entry with the same name.
//
// Precondition: def must not be nil.
// Postcondition: Get(def.Name) returns def, or an error is returned when def is invalid.
func (c *Catalog) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[names.Key(def.Name)] = def
	return nil
}

// RegisterAll registers every def, stopping at the first invalid one.
func (c *Catalog) RegisterAll(defs []*Definition) error {
	for _, d := range defs {
		if err := c.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// Remove deletes the definition for name. Running effects are unaffected.
//
// Postcondition: Get(name) reports absent; returns whether an entry was removed.
func (c *Catalog) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := names.Key(name)
	_, ok := c.defs[key]
	delete(c.defs, key)
	return ok
}

// Get returns the Definition for name, or (nil, false) if not found.
func (c *Catalog) Get(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[names.Key(name)]
	return d, ok
}

// Names returns every registered key in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.defs))
	for k := range c.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered definitions.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

// Record is the serialized form of a Definition. Behaviors are referenced by
// script hook name and bound at load time.
type Record struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Duration    time.Duration `yaml:"duration"`
	Tick        time.Duration `yaml:"tick"`
	OnApply     string        `yaml:"on_apply"`
	OnTick      string        `yaml:"on_tick"`
	OnRemove    string        `yaml:"on_remove"`
}

// LoadDirectory reads every *.yaml file in dir and parses each as a Record.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the records in file-name order, or an error if any
// file fails to parse.
func LoadDirectory(dir string) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading status effect dir %q: %w", dir, err)
	}
	var out []*Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var rec Record
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}
