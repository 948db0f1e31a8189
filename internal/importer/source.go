package importer

import (
	"context"

	"github.com/cory-johannsen/combatstate/internal/game/effect"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/game/weapon"
)

// Sink stores definition records, replacing any record with the same
// case-insensitive name. *postgres.CatalogRepository satisfies it.
type Sink interface {
	UpsertEffect(ctx context.Context, rec *effect.Record) error
	UpsertSkill(ctx context.Context, rec *skill.Record) error
	UpsertWeapon(ctx context.Context, rec *weapon.Record) error
}
