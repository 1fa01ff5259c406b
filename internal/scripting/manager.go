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

// GlobalTable is the reserved key for shared gate scripts. Gate falls back to
// this VM when a spawn table has no scripts of its own.
const GlobalTable = "__global__"

// Manager owns one sandboxed LState per spawn table and dispatches gate hooks.
//
// A gate hook has the signature `function(group_id, progress) -> boolean`.
// Calls are serialized; an LState is never entered from two goroutines.
type Manager struct {
	mu        sync.Mutex
	states    map[string]*lua.LState
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager with the given per-call instruction limit.
//
// Precondition: logger must be non-nil.
func NewManager(logger *zap.Logger, instLimit int) *Manager {
	return &Manager{
		states:    make(map[string]*lua.LState),
		instLimit: instLimit,
		logger:    logger,
	}
}

// LoadTable creates a VM for tableID and executes every *.lua file in dir in
// lexicographic order. A previous VM for the same table is replaced.
//
// Postcondition: returns an error on read or Lua load failure; the manager is unchanged then.
func (m *Manager) LoadTable(tableID, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", dir, tableID, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	L := NewSandboxedState()
	for _, path := range files {
		release := Limit(L, m.instLimit)
		err := L.DoFile(path)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, tableID, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[tableID]; ok {
		old.Close()
	}
	m.states[tableID] = L
	m.mu.Unlock()
	return nil
}

// LoadGlobal loads the shared VM used as the fallback for every table.
func (m *Manager) LoadGlobal(dir string) error {
	return m.LoadTable(GlobalTable, dir)
}

// Gate calls hook(groupID, progress) in tableID's VM (or the global VM) and
// reports whether the group may produce an outcome.
//
// A missing VM or undefined hook passes. A Lua runtime error, including an
// exhausted instruction budget, fails the gate and is logged at Warn.
func (m *Manager) Gate(tableID, hook, groupID string, progress float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	L, ok := m.states[tableID]
	if !ok {
		L = m.states[GlobalTable]
	}
	if L == nil {
		m.logger.Warn("scripting: no VM for gate",
			zap.String("table", tableID),
			zap.String("hook", hook),
		)
		return true
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		m.logger.Warn("scripting: gate hook not defined",
			zap.String("table", tableID),
			zap.String("hook", hook),
		)
		return true
	}

	release := Limit(L, m.instLimit)
	defer release()
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		lua.LString(groupID), lua.LNumber(progress)); err != nil {
		m.logger.Warn("scripting: gate runtime error",
			zap.String("table", tableID),
			zap.String("hook", hook),
			zap.String("group", groupID),
			zap.Error(err),
		)
		return false
	}
	ret := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(ret)
}

// GateFor binds Gate to a table, for handing to spawn group construction.
func (m *Manager) GateFor(tableID string) func(hook, groupID string, progress float64) bool {
	return func(hook, groupID string, progress float64) bool {
		return m.Gate(tableID, hook, groupID, progress)
	}
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, L := range m.states {
		L.Close()
		delete(m.states, id)
	}
}
