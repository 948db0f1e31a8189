// Package content loads effect, skill and weapon definitions from a Source
// into a combat engine and binds their behaviors to Lua hooks.
package content

import (
	"context"

	"github.com/cory-johannsen/combatstate/internal/game/effect"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/game/weapon"
)

// Source produces definition records from a backing store.
//
// Postcondition: each List method returns every record in the store, or a
// non-nil error.
type Source interface {
	ListEffects(ctx context.Context) ([]*effect.Record, error)
	ListSkills(ctx context.Context) ([]*skill.Record, error)
	ListWeapons(ctx context.Context) ([]*weapon.Record, error)
}

// DirSource reads records from YAML directories on disk.
type DirSource struct {
	EffectsDir string
	SkillsDir  string
	WeaponsDir string
}

// ListEffects parses every *.yaml file in EffectsDir.
func (d DirSource) ListEffects(ctx context.Context) ([]*effect.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return effect.LoadDirectory(d.EffectsDir)
}

// ListSkills parses every *.yaml file in SkillsDir.
func (d DirSource) ListSkills(ctx context.Context) ([]*skill.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return skill.LoadDirectory(d.SkillsDir)
}

// ListWeapons parses every *.yaml file in WeaponsDir.
func (d DirSource) ListWeapons(ctx context.Context) ([]*weapon.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return weapon.LoadDirectory(d.WeaponsDir)
}
