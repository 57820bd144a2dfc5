package scripting

import lua "github.com/yuin/gopher-lua"

// RegisterModules registers the verse.* Lua table into L. Each function
// routes through a Manager callback field; nil callbacks make the function
// a no-op so scripts load cleanly in tests.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: The verse global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	verse := L.NewTable()

	L.SetField(verse, "broadcast", L.NewFunction(func(L *lua.LState) int {
		roomID := L.CheckString(1)
		msg := L.CheckString(2)
		if m.Broadcast != nil {
			m.Broadcast(roomID, msg)
		}
		return 0
	}))

	L.SetField(verse, "grant_xp", L.NewFunction(func(L *lua.LState) int {
		handle := L.CheckString(1)
		amount := L.CheckInt(2)
		if m.GrantXP != nil {
			m.GrantXP(handle, amount)
		}
		return 0
	}))

	L.SetField(verse, "room", L.NewFunction(func(L *lua.LState) int {
		roomID := L.CheckString(1)
		if m.RoomName == nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(m.RoomName(roomID)))
		return 1
	}))

	L.SetGlobal("verse", verse)
}
