package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hollowroot/verse/internal/world"
)

// ErrDuplicateSession is returned when a handle is created twice. A
// duplicate connect is a protocol violation, reported rather than fatal.
var ErrDuplicateSession = errors.New("session already exists")

// Session tracks one connected participant. The Registry owns the record
// exclusively; the membership index holds only the handle.
type Session struct {
	// Handle is the opaque session identifier.
	Handle string
	// DisplayName is the name shown to other participants.
	DisplayName string
	// Position is the participant's position in room coordinates.
	Position world.Vec3
	// Rotation is the participant's orientation in euler angles.
	Rotation world.Vec3
	// RoomID is the current room. Kept in lockstep with the membership index
	// by the world controller.
	RoomID string
	// Customization holds avatar customization key/value pairs.
	Customization map[string]string
	// Entity is the outbound event bridge for this session.
	Entity *ClientEntity
}

// Registry tracks all live sessions by handle.
// All methods are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session.
//
// Precondition: handle must be non-empty.
// Postcondition: Returns the created Session, or ErrDuplicateSession if the
// handle is already registered.
func (r *Registry) Create(handle, displayName string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle == "" {
		return nil, fmt.Errorf("session handle must not be empty")
	}
	if _, exists := r.sessions[handle]; exists {
		return nil, fmt.Errorf("handle %q: %w", handle, ErrDuplicateSession)
	}

	if displayName == "" {
		displayName = handle
	}
	sess := &Session{
		Handle:      handle,
		DisplayName: displayName,
		Entity:      NewClientEntity(handle, 64),
	}
	r.sessions[handle] = sess
	return sess, nil
}

// Get returns the session for the given handle.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (r *Registry) Get(handle string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[handle]
	return sess, ok
}

// GetByDisplayName returns the first session with the given display name.
//
// Postcondition: Returns (session, true) if found, or (nil, false) otherwise.
func (r *Registry) GetByDisplayName(name string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sess := range r.sessions {
		if sess.DisplayName == name {
			return sess, true
		}
	}
	return nil, false
}

// Remove deletes a session and closes its entity.
//
// Postcondition: The handle is free for reuse. Returns an error if not found.
func (r *Registry) Remove(handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[handle]
	if !exists {
		return fmt.Errorf("session %q not found", handle)
	}

	_ = sess.Entity.Close()
	delete(r.sessions, handle)
	return nil
}

// UpdatePosition sets a session's position and rotation.
//
// Postcondition: Returns an error if the handle is unknown.
func (r *Registry) UpdatePosition(handle string, pos, rot world.Vec3) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[handle]
	if !exists {
		return fmt.Errorf("session %q not found", handle)
	}
	sess.Position = pos
	sess.Rotation = rot
	return nil
}

// UpdateCustomization merges avatar customization data into a session.
//
// Postcondition: Returns an error if the handle is unknown.
func (r *Registry) UpdateCustomization(handle string, data map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[handle]
	if !exists {
		return fmt.Errorf("session %q not found", handle)
	}
	if sess.Customization == nil {
		sess.Customization = make(map[string]string, len(data))
	}
	for k, v := range data {
		sess.Customization[k] = v
	}
	return nil
}

// Handles returns the handles of all live sessions in no particular order.
func (r *Registry) Handles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := make([]string, 0, len(r.sessions))
	for handle := range r.sessions {
		handles = append(handles, handle)
	}
	return handles
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
