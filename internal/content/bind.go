package content

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/combatstate/internal/game/actor"
	"github.com/cory-johannsen/combatstate/internal/game/combat"
	"github.com/cory-johannsen/combatstate/internal/scripting"
)

// BindEngine points the scripting engine.* callbacks at eng. Actor ids
// arrive from Lua as strings.
//
// Precondition: m and eng must be non-nil; call before the first Load.
func BindEngine(m *scripting.Manager, eng *combat.Engine) {
	state := func(actorID string) (*actor.State, error) {
		id, err := parseID(actorID)
		if err != nil {
			return nil, err
		}
		st, ok := eng.Actors().GetByID(id)
		if !ok {
			return nil, fmt.Errorf("actor %s: %w", actorID, actor.ErrUnknownActor)
		}
		return st, nil
	}

	m.GetAttr = func(actorID, name string) (float64, error) {
		st, err := state(actorID)
		if err != nil {
			return 0, err
		}
		return st.Attr(name), nil
	}
	m.AddAttr = func(actorID, name string, delta float64) (float64, error) {
		st, err := state(actorID)
		if err != nil {
			return 0, err
		}
		return st.AddAttr(name, delta), nil
	}
	m.ApplyEffect = func(actorID, name string) error {
		id, err := parseID(actorID)
		if err != nil {
			return err
		}
		return eng.Effects().Apply(id, name)
	}
	m.RemoveEffect = func(actorID, name string) (bool, error) {
		id, err := parseID(actorID)
		if err != nil {
			return false, err
		}
		return eng.Effects().Remove(id, name)
	}
	m.CastSkill = func(actorID, name string) (string, error) {
		id, err := parseID(actorID)
		if err != nil {
			return "", err
		}
		out, err := eng.Skills().CastSkill(id, name)
		return out.String(), err
	}
}

func parseID(actorID string) (uuid.UUID, error) {
	id, err := uuid.Parse(actorID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing actor id %q: %w", actorID, err)
	}
	return id, nil
}
