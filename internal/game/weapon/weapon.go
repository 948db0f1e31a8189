// Package weapon holds the static weapon records that grant skills to actors.
package weapon

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/combatstate/internal/game/names"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
)

// ErrUnknownWeapon is returned when a weapon name is not in the catalog.
var ErrUnknownWeapon = errors.New("unknown weapon")

// Definition is a pure data record; weapons have no runtime behavior.
type Definition struct {
	Name string
	// Model is the display model reference. Optional.
	Model string
	// Skills are granted to the wielder on equip. Optional.
	Skills []*skill.Definition
	// Projectile names the projectile prototype. Optional.
	Projectile string
}

// Validate checks the definition's invariants.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("weapon name must not be empty")
	}
	for i, s := range d.Skills {
		if s == nil {
			return fmt.Errorf("weapon %q: skill %d is nil", d.Name, i)
		}
	}
	return nil
}

// SkillNames returns the names of the granted skills in declaration order.
func (d *Definition) SkillNames() []string {
	out := make([]string, 0, len(d.Skills))
	for _, s := range d.Skills {
		out = append(out, s.Name)
	}
	return out
}

// Catalog holds every known weapon keyed by lower-cased name.
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

// Remove deletes the definition for name and reports whether it existed.
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

// Record is the serialized form of a Definition. Skills are referenced by
// name and resolved against the skill catalog at load time.
type Record struct {
	Name       string   `yaml:"name"`
	Model      string   `yaml:"model"`
	Skills     []string `yaml:"skills"`
	Projectile string   `yaml:"projectile"`
}

// Resolve builds a Definition from r, looking each skill up in skills.
//
// Postcondition: returns an error wrapping skill.ErrUnknownSkill when a
// referenced skill is not registered.
func (r *Record) Resolve(skills *skill.Catalog) (*Definition, error) {
	def := &Definition{Name: r.Name, Model: r.Model, Projectile: r.Projectile}
	for _, n := range r.Skills {
		s, ok := skills.Get(n)
		if !ok {
			return nil, fmt.Errorf("weapon %q grants %q: %w", r.Name, n, skill.ErrUnknownSkill)
		}
		def.Skills = append(def.Skills, s)
	}
	return def, nil
}

// LoadDirectory reads every *.yaml file in dir and parses each as a Record.
//
// Precondition: dir must be a readable directory.
func LoadDirectory(dir string) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading weapon dir %q: %w", dir, err)
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
