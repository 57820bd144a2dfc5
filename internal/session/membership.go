package session

import "sync"

// Membership is the room membership index: the single source of truth for
// broadcast scoping. It stores only handles and never inspects session
// content.
//
// Invariant: a handle belongs to at most one room's set at any instant.
// Join moves the handle out of any previous room under one lock acquisition,
// so no observer sees it in two rooms.
type Membership struct {
	mu      sync.RWMutex
	byRoom  map[string]map[string]bool // roomID → set of handles
	roomFor map[string]string          // handle → roomID
}

// NewMembership creates an empty membership index.
func NewMembership() *Membership {
	return &Membership{
		byRoom:  make(map[string]map[string]bool),
		roomFor: make(map[string]string),
	}
}

// Join places a handle in a room, removing it from its previous room first.
//
// Postcondition: RoomOf(handle) == roomID; the handle is in no other set.
// Returns the previous room ID, or "" if the handle was roomless.
func (m *Membership) Join(roomID, handle string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.roomFor[handle]
	if prev == roomID {
		return prev
	}
	if prev != "" {
		m.removeLocked(prev, handle)
	}

	if m.byRoom[roomID] == nil {
		m.byRoom[roomID] = make(map[string]bool)
	}
	m.byRoom[roomID][handle] = true
	m.roomFor[handle] = roomID
	return prev
}

// Leave removes a handle from a room. A no-op if the handle is not a member.
//
// Postcondition: the handle is not in roomID's set.
func (m *Membership) Leave(roomID, handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.roomFor[handle] != roomID {
		return
	}
	m.removeLocked(roomID, handle)
	delete(m.roomFor, handle)
}

func (m *Membership) removeLocked(roomID, handle string) {
	if set, ok := m.byRoom[roomID]; ok {
		delete(set, handle)
		if len(set) == 0 {
			delete(m.byRoom, roomID)
		}
	}
}

// Members returns the handles currently in a room.
//
// Postcondition: Returns a slice of handles; may be empty.
func (m *Membership) Members(roomID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set, ok := m.byRoom[roomID]
	if !ok {
		return nil
	}
	handles := make([]string, 0, len(set))
	for h := range set {
		handles = append(handles, h)
	}
	return handles
}

// IsEmpty reports whether a room has no members.
func (m *Membership) IsEmpty(roomID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byRoom[roomID]) == 0
}

// RoomOf returns the room a handle is currently in.
//
// Postcondition: Returns (roomID, true) if the handle is in a room, or ("", false).
func (m *Membership) RoomOf(handle string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.roomFor[handle]
	return roomID, ok
}

// MemberCount returns the number of handles in a room.
func (m *Membership) MemberCount(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byRoom[roomID])
}
