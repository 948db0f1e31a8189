// Package skill defines castable skills and arbitrates casting and cooldowns
// for registered actors.
package skill

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

// ErrUnknownSkill is returned when a skill name is not in the catalog.
var ErrUnknownSkill = errors.New("unknown skill")

// Behavior is run against the caster's current state.
type Behavior func(st *actor.State)

// Definition is the immutable, catalog-owned description of a skill.
type Definition struct {
	Name        string
	Description string
	// CastTime is the delay between initiation and the cast behavior.
	CastTime time.Duration
	// Cooldown is the lockout before the skill may be cast again.
	Cooldown time.Duration
	// Cast runs once per successful cast when CastTime elapses.
	Cast Behavior
}

// Validate checks the definition's invariants.
//
// Postcondition: returns nil iff Name is non-empty and both durations are >= 0.
func (d *Definition) Validate() error {
	var errs []string
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if d.CastTime < 0 {
		errs = append(errs, fmt.Sprintf("cast_time must be >= 0, got %s", d.CastTime))
	}
	if d.Cooldown < 0 {
		errs = append(errs, fmt.Sprintf("cooldown must be >= 0, got %s", d.Cooldown))
	}
	if len(errs) > 0 {
		return fmt.Errorf("skill %q: %s", d.Name, strings.Join(errs, "; "))
	}
	return nil
}

// Catalog holds every known skill Definition keyed by lower-cased name.
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

// Remove deletes the definition for name. Casts already in flight finish.
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

// Record is the serialized form of a Definition.
type Record struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	CastTime    time.Duration `yaml:"cast_time"`
	Cooldown    time.Duration `yaml:"cooldown"`
	OnCast      string        `yaml:"on_cast"`
}

// LoadDirectory reads every *.yaml file in dir and parses each as a Record.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns the records in file-name order, or an error if any
// file fails to parse.
func LoadDirectory(dir string) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading skill dir %q: %w", dir, err)
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
