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

// globalRoomID is the reserved key for shared scripts loaded via LoadGlobal.
// CallInteract falls back to this VM when no room VM is found.
const globalRoomID = "__global__"

// Manager owns one sandboxed LState per room and dispatches interaction
// hooks.
//
// Manager is safe for concurrent CallInteract after all LoadRoom calls
// complete. Each room's LState is single-threaded; in practice the world
// dispatcher serializes all hook calls anyway.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*lua.LState
	logger *zap.Logger

	// Injected after construction. nil = no-op in verse.* modules.
	Broadcast func(roomID, msg string)
	GrantXP   func(handle string, amount int)
	RoomName  func(roomID string) string
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty room map.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		states: make(map[string]*lua.LState),
		logger: logger,
	}
}

// LoadRoom creates a sandboxed VM for roomID, registers the verse.* module,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: roomID must be non-empty; scriptDir must be a readable directory.
// Postcondition: Room VM is registered; returns error on Lua load failure.
func (m *Manager) LoadRoom(roomID, scriptDir string, instLimit int) error {
	return m.loadInto(roomID, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared hook scripts accessible
// as a CallInteract fallback from any room.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(globalRoomID, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	L := NewSandboxedState(instLimit)
	m.RegisterModules(L)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	for _, path := range luaFiles {
		if err := L.DoFile(path); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[key]; ok {
		old.Close()
	}
	m.states[key] = L
	m.mu.Unlock()
	return nil
}

// CallInteract calls the named Lua hook in roomID's VM after a successful
// object interaction. If the room has no VM, the __global__ VM is tried as
// a fallback. Returns ("", false) if the hook is not defined or no VM
// exists. Lua runtime errors are logged at Warn level and never propagated;
// a script failure must not fail the interaction.
//
// Postcondition: Returns the hook's string return value and whether a hook ran.
func (m *Manager) CallInteract(roomID, hook, handle, objectID string) (string, bool) {
	m.mu.RLock()
	L, ok := m.states[roomID]
	if !ok {
		L = m.states[globalRoomID]
	}
	m.mu.RUnlock()

	if L == nil {
		return "", false
	}

	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return "", false
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(handle), lua.LString(objectID)); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("room", roomID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return "", false
	}

	ret := L.Get(-1)
	L.Pop(1)

	if s, isString := ret.(lua.LString); isString {
		return string(s), true
	}
	return "", true
}

// HasRoom reports whether a VM is loaded for roomID.
func (m *Manager) HasRoom(roomID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.states[roomID]
	return ok
}

// Close shuts down all VMs.
//
// Postcondition: No further CallInteract will find a VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, L := range m.states {
		L.Close()
		delete(m.states, key)
	}
}
