package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ActorInfo is a snapshot of an actor passed to Lua hooks as a table with
// fields id, name, effects, cooldowns and weapon.
type ActorInfo struct {
	ID        string
	Name      string
	Effects   []string
	Cooldowns []string
	Weapon    string
}

// Manager owns the sandboxed VM that behavior scripts run in and exposes
// hook dispatch.
//
// An LState is single-threaded, so every call into the VM is serialized by
// mu. engine.* calls that can re-enter a hook (apply_effect, remove_effect,
// cast_skill) are queued while a hook runs and executed after the VM is
// released, in call order.
type Manager struct {
	mu       sync.Mutex
	L        *lua.LState
	limit    int
	inHook   bool
	deferred []func()
	logger   *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	GetAttr      func(actorID, name string) (float64, error)
	AddAttr      func(actorID, name string, delta float64) (float64, error)
	ApplyEffect  func(actorID, effect string) error
	RemoveEffect func(actorID, effect string) (bool, error)
	CastSkill    func(actorID, skill string) (string, error)
}

// NewManager creates a Manager with no scripts loaded.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager; CallHook returns LNil until Load succeeds.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{logger: logger}
}

// Load creates a fresh sandboxed VM, registers the engine.* modules, then
// executes every *.lua file in scriptDir in lexicographic order. On success
// the new VM replaces the current one; on failure the current one is kept.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: returns an error on read or Lua load failure.
func (m *Manager) Load(scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState()
	m.RegisterModules(L)

	// Held across loading so top-level engine.* calls cannot interleave with
	// a running hook.
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range luaFiles {
		if err := withBudget(L, instLimit, func() error { return L.DoFile(path) }); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	if m.L != nil {
		m.L.Close()
	}
	m.L = L
	m.limit = instLimit
	m.logger.Info("scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// HasHook reports whether a global Lua function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return false
	}
	_, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// CallHook calls the named Lua global function. Returns (LNil, nil) if the
// hook is not defined or no VM is loaded. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never
// propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	return m.call(hook, func(*lua.LState) []lua.LValue { return args })
}

// CallActorHook calls hook with a table built from a as its only argument.
func (m *Manager) CallActorHook(hook string, a ActorInfo) (lua.LValue, error) {
	return m.call(hook, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{actorTable(L, a)}
	})
}

func (m *Manager) call(hook string, args func(*lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	if m.L == nil {
		m.mu.Unlock()
		m.logger.Info("scripting: no VM loaded", zap.String("hook", hook))
		return lua.LNil, nil
	}
	L := m.L
	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		m.mu.Unlock()
		return lua.LNil, nil
	}

	ret := lua.LValue(lua.LNil)
	m.inHook = true
	err := withBudget(L, m.limit, func() error {
		return L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    1,
			Protect: true,
		}, args(L)...)
	})
	if err == nil {
		ret = L.Get(-1)
		L.Pop(1)
	}
	m.inHook = false
	queued := m.deferred
	m.deferred = nil
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
	}
	for _, q := range queued {
		q()
	}
	return ret, nil
}

// enqueue records fn to run once the current hook returns. Calls made while
// a script file is loading are dropped.
// Caller must hold m.mu when a hook is running.
func (m *Manager) enqueue(what string, fn func()) {
	if !m.inHook {
		m.logger.Warn("scripting: engine call outside a hook ignored", zap.String("call", what))
		return
	}
	m.deferred = append(m.deferred, fn)
}

// Close releases the VM. CallHook returns LNil afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}

func actorTable(L *lua.LState, a ActorInfo) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(a.ID))
	t.RawSetString("name", lua.LString(a.Name))
	t.RawSetString("weapon", lua.LString(a.Weapon))
	t.RawSetString("effects", stringList(L, a.Effects))
	t.RawSetString("cooldowns", stringList(L, a.Cooldowns))
	return t
}

func stringList(L *lua.LState, ss []string) *lua.LTable {
	t := L.CreateTable(len(ss), 0)
	for _, s := range ss {
		t.Append(lua.LString(s))
	}
	return t
}
