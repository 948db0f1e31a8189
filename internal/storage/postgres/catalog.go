package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/combatstate/internal/game/effect"
	"github.com/cory-johannsen/combatstate/internal/game/names"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/game/weapon"
)

// CatalogRepository persists definition records. Rows are keyed by the
// lower-cased name so lookups agree with the in-memory catalogs; the display
// name is stored alongside. Durations are stored in milliseconds.
type CatalogRepository struct {
	pool *Pool
}

// NewCatalogRepository creates a CatalogRepository backed by the given pool.
//
// Precondition: pool must be a valid, open connection pool.
func NewCatalogRepository(pool *Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func toMillis(d time.Duration) int64 { return d.Milliseconds() }

func fromMillis(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }

// ListEffects returns every status effect record ordered by key.
func (r *CatalogRepository) ListEffects(ctx context.Context) ([]*effect.Record, error) {
	rows, err := r.pool.DB().Query(ctx, `
		SELECT name, description, duration_ms, tick_ms, on_apply, on_tick, on_remove
		FROM status_effects ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("listing status effects: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*effect.Record, error) {
		var rec effect.Record
		var durMs, tickMs int64
		if err := row.Scan(&rec.Name, &rec.Description, &durMs, &tickMs, &rec.OnApply, &rec.OnTick, &rec.OnRemove); err != nil {
			return nil, err
		}
		rec.Duration, rec.Tick = fromMillis(durMs), fromMillis(tickMs)
		return &rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning status effects: %w", err)
	}
	return out, nil
}

// UpsertEffect inserts rec or replaces the row with the same key.
//
// Precondition: rec.Name must be non-empty and rec.Duration > 0.
func (r *CatalogRepository) UpsertEffect(ctx context.Context, rec *effect.Record) error {
	_, err := r.pool.DB().Exec(ctx, `
		INSERT INTO status_effects
			(name_key, name, description, duration_ms, tick_ms, on_apply, on_tick, on_remove)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (name_key) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			duration_ms = EXCLUDED.duration_ms,
			tick_ms = EXCLUDED.tick_ms,
			on_apply = EXCLUDED.on_apply,
			on_tick = EXCLUDED.on_tick,
			on_remove = EXCLUDED.on_remove,
			updated_at = NOW()`,
		names.Key(rec.Name), rec.Name, rec.Description,
		toMillis(rec.Duration), toMillis(rec.Tick),
		rec.OnApply, rec.OnTick, rec.OnRemove,
	)
	if err != nil {
		return fmt.Errorf("upserting status effect %q: %w", rec.Name, err)
	}
	return nil
}

// DeleteEffect removes the status effect row for name and reports whether it existed.
func (r *CatalogRepository) DeleteEffect(ctx context.Context, name string) (bool, error) {
	return r.delete(ctx, "status_effects", name)
}

// ListSkills returns every skill record ordered by key.
func (r *CatalogRepository) ListSkills(ctx context.Context) ([]*skill.Record, error) {
	rows, err := r.pool.DB().Query(ctx, `
		SELECT name, description, cast_time_ms, cooldown_ms, on_cast
		FROM skills ORDER BY name_key`)
	if err != nil {
		return nil, fmt.Errorf("listing skills: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*skill.Record, error) {
		var rec skill.Record
		var castMs, cdMs int64
		if err := row.Scan(&rec.Name, &rec.Description, &castMs, &cdMs, &rec.OnCast); err != nil {
			return nil, err
		}
		rec.CastTime, rec.Cooldown = fromMillis(castMs), fromMillis(cdMs)
		return &rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning skills: %w", err)
	}
	return out, nil
}

// UpsertSkill inserts rec or replaces the row with the same key.
func (r *CatalogRepository) UpsertSkill(ctx context.Context, rec *skill.Record) error {
	_, err := r.pool.DB().Exec(ctx, `
		INSERT INTO skills (name_key, name, description, cast_time_ms, cooldown_ms, on_cast)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (name_key) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			cast_time_ms = EXCLUDED.cast_time_ms,
			cooldown_ms = EXCLUDED.cooldown_ms,
			on_cast = EXCLUDED.on_cast,
			updated_at = NOW()`,
		names.Key(rec.Name), rec.Name, rec.Description,
		toMillis(rec.CastTime), toMillis(rec.Cooldown), rec.OnCast,
	)
	if err != nil {
		return fmt.Errorf("upserting skill %q: %w", rec.Name, err)
	}
	return nil
}

// DeleteSkill removes the skill row for name and reports whether it existed.
func (r *CatalogRepository) DeleteSkill(ctx context.Context, name string) (bool, error) {
	return r.delete(ctx, "skills", name)
}

// ListWeapons returns every weapon record, with granted skill names in
// declaration order, ordered by key.
func (r *CatalogRepository) ListWeapons(ctx context.Context) ([]*weapon.Record, error) {
	rows, err := r.pool.DB().Query(ctx, `
		SELECT w.name, w.model, w.projectile,
		       COALESCE(array_agg(ws.skill_name ORDER BY ws.position)
		                FILTER (WHERE ws.skill_name IS NOT NULL), '{}')
		FROM weapons w
		LEFT JOIN weapon_skills ws ON ws.weapon_key = w.name_key
		GROUP BY w.name_key, w.name, w.model, w.projectile
		ORDER BY w.name_key`)
	if err != nil {
		return nil, fmt.Errorf("listing weapons: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*weapon.Record, error) {
		var rec weapon.Record
		if err := row.Scan(&rec.Name, &rec.Model, &rec.Projectile, &rec.Skills); err != nil {
			return nil, err
		}
		return &rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning weapons: %w", err)
	}
	return out, nil
}

// UpsertWeapon inserts rec or replaces the row with the same key, replacing
// its granted skill list in the same transaction.
func (r *CatalogRepository) UpsertWeapon(ctx context.Context, rec *weapon.Record) error {
	key := names.Key(rec.Name)
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO weapons (name_key, name, model, projectile)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (name_key) DO UPDATE SET
				name = EXCLUDED.name,
				model = EXCLUDED.model,
				projectile = EXCLUDED.projectile,
				updated_at = NOW()`,
			key, rec.Name, rec.Model, rec.Projectile,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM weapon_skills WHERE weapon_key = $1`, key); err != nil {
			return err
		}
		for i, s := range rec.Skills {
			if _, err := tx.Exec(ctx, `
				INSERT INTO weapon_skills (weapon_key, position, skill_name) VALUES ($1,$2,$3)`,
				key, i, s,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upserting weapon %q: %w", rec.Name, err)
	}
	return nil
}

// DeleteWeapon removes the weapon row for name (and its skill grants) and
// reports whether it existed.
func (r *CatalogRepository) DeleteWeapon(ctx context.Context, name string) (bool, error) {
	return r.delete(ctx, "weapons", name)
}

// delete removes the row keyed by name from table. table is always one of the
// package's own constants, never caller input.
func (r *CatalogRepository) delete(ctx context.Context, table, name string) (bool, error) {
	tag, err := r.pool.DB().Exec(ctx, `DELETE FROM `+table+` WHERE name_key = $1`, names.Key(name))
	if err != nil {
		return false, fmt.Errorf("deleting %q from %s: %w", name, table, err)
	}
	return tag.RowsAffected() > 0, nil
}
