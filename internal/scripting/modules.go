package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers the engine global and its sub-tables into L:
//
//	engine.log.debug|info|warn|error(msg)
//	engine.attr(actor_id, name) -> number | nil
//	engine.add_attr(actor_id, name, delta) -> number | nil
//	engine.apply_effect(actor_id, effect)
//	engine.remove_effect(actor_id, effect)
//	engine.cast_skill(actor_id, skill)
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	engine.RawSetString("log", m.logModule(L))
	L.SetFuncs(engine, map[string]lua.LGFunction{
		"attr":          m.luaAttr,
		"add_attr":      m.luaAddAttr,
		"apply_effect":  m.luaApplyEffect,
		"remove_effect": m.luaRemoveEffect,
		"cast_skill":    m.luaCastSkill,
	})
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	level := func(log func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			log(L.CheckString(1), zap.String("source", "lua"))
			return 0
		}
	}
	L.SetFuncs(t, map[string]lua.LGFunction{
		"debug": level(m.logger.Debug),
		"info":  level(m.logger.Info),
		"warn":  level(m.logger.Warn),
		"error": level(m.logger.Error),
	})
	return t
}

func (m *Manager) luaAttr(L *lua.LState) int {
	id, name := L.CheckString(1), L.CheckString(2)
	if m.GetAttr == nil {
		L.Push(lua.LNil)
		return 1
	}
	v, err := m.GetAttr(id, name)
	if err != nil {
		m.logger.Debug("engine.attr failed", zap.String("actor_id", id), zap.Error(err))
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (m *Manager) luaAddAttr(L *lua.LState) int {
	id, name, delta := L.CheckString(1), L.CheckString(2), float64(L.CheckNumber(3))
	if m.AddAttr == nil {
		L.Push(lua.LNil)
		return 1
	}
	v, err := m.AddAttr(id, name, delta)
	if err != nil {
		m.logger.Debug("engine.add_attr failed", zap.String("actor_id", id), zap.Error(err))
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (m *Manager) luaApplyEffect(L *lua.LState) int {
	id, effect := L.CheckString(1), L.CheckString(2)
	m.enqueue("apply_effect", func() {
		if m.ApplyEffect == nil {
			return
		}
		if err := m.ApplyEffect(id, effect); err != nil {
			m.logger.Debug("engine.apply_effect failed",
				zap.String("actor_id", id),
				zap.String("effect", effect),
				zap.Error(err),
			)
		}
	})
	return 0
}

func (m *Manager) luaRemoveEffect(L *lua.LState) int {
	id, effect := L.CheckString(1), L.CheckString(2)
	m.enqueue("remove_effect", func() {
		if m.RemoveEffect == nil {
			return
		}
		if _, err := m.RemoveEffect(id, effect); err != nil {
			m.logger.Debug("engine.remove_effect failed",
				zap.String("actor_id", id),
				zap.String("effect", effect),
				zap.Error(err),
			)
		}
	})
	return 0
}

func (m *Manager) luaCastSkill(L *lua.LState) int {
	id, skill := L.CheckString(1), L.CheckString(2)
	m.enqueue("cast_skill", func() {
		if m.CastSkill == nil {
			return
		}
		if _, err := m.CastSkill(id, skill); err != nil {
			m.logger.Debug("engine.cast_skill failed",
				zap.String("actor_id", id),
				zap.String("skill", skill),
				zap.Error(err),
			)
		}
	})
	return 0
}
