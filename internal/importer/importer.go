// Package importer copies effect, skill and weapon records from a content
// source into a persistent store after validating them as a set.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cory-johannsen/combatstate/internal/content"
	"github.com/cory-johannsen/combatstate/internal/game/effect"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/game/weapon"
)

// Result counts the records written by Run.
type Result struct {
	Effects int
	Skills  int
	Weapons int
}

// Importer orchestrates content import from a Source to a Sink.
type Importer struct {
	source content.Source
	sink   Sink
	out    io.Writer
}

// New constructs an Importer. Progress lines are written to out.
//
// Precondition: source, sink and out must be non-nil.
// Postcondition: returns a non-nil Importer.
func New(source content.Source, sink Sink, out io.Writer) *Importer {
	return &Importer{source: source, sink: sink, out: out}
}

// Run reads every record from the source, validates them, and upserts them
// into the sink. Skills are written before weapons so weapon grants always
// reference stored skills.
//
// Postcondition: nothing is written when any record is invalid.
func (imp *Importer) Run(ctx context.Context) (Result, error) {
	overall := time.Now()

	t0 := time.Now()
	effs, err := imp.source.ListEffects(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading status effects: %w", err)
	}
	skls, err := imp.source.ListSkills(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading skills: %w", err)
	}
	wpns, err := imp.source.ListWeapons(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading weapons: %w", err)
	}
	fmt.Fprintf(imp.out, "load    %d effect(s), %d skill(s), %d weapon(s) in %s\n",
		len(effs), len(skls), len(wpns), time.Since(t0).Round(time.Millisecond))

	if err := validate(effs, skls, wpns); err != nil {
		return Result{}, err
	}

	var res Result
	for _, r := range effs {
		if err := imp.sink.UpsertEffect(ctx, r); err != nil {
			return res, err
		}
		res.Effects++
	}
	for _, r := range skls {
		if err := imp.sink.UpsertSkill(ctx, r); err != nil {
			return res, err
		}
		res.Skills++
	}
	for _, r := range wpns {
		if err := imp.sink.UpsertWeapon(ctx, r); err != nil {
			return res, err
		}
		res.Weapons++
	}

	fmt.Fprintf(imp.out, "wrote   %d effect(s), %d skill(s), %d weapon(s)\n", res.Effects, res.Skills, res.Weapons)
	fmt.Fprintf(imp.out, "total   %s\n", time.Since(overall).Round(time.Millisecond))
	return res, nil
}

func validate(effs []*effect.Record, skls []*skill.Record, wpns []*weapon.Record) error {
	var errs []error
	for _, r := range effs {
		def := effect.Definition{Name: r.Name, Duration: r.Duration, Tick: r.Tick}
		if err := def.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	staged := skill.NewCatalog()
	for _, r := range skls {
		if err := staged.Register(&skill.Definition{Name: r.Name, CastTime: r.CastTime, Cooldown: r.Cooldown}); err != nil {
			errs = append(errs, err)
		}
	}
	for _, r := range wpns {
		def, err := r.Resolve(staged)
		if err == nil {
			err = def.Validate()
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid content: %w", errors.Join(errs...))
	}
	return nil
}
