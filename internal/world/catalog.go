package world

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for catalog lookups and CRUD.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrObjectNotFound = errors.New("object not found")
)

// Catalog provides access to the loaded room set. Rooms are never removed
// while the process runs; catalog entries are not membership-driven. Object
// CRUD is the only structural mutation after load.
type Catalog struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	order []string
}

// NewCatalog creates a Catalog from the given rooms.
//
// Precondition: rooms must contain at least one validated room.
// Postcondition: Returns a Catalog with all rooms indexed by ID, or an error
// on duplicate room IDs.
func NewCatalog(rooms []*Room) (*Catalog, error) {
	if len(rooms) == 0 {
		return nil, fmt.Errorf("catalog requires at least one room")
	}

	c := &Catalog{
		rooms: make(map[string]*Room, len(rooms)),
	}
	for _, r := range rooms {
		if _, exists := c.rooms[r.ID]; exists {
			return nil, fmt.Errorf("duplicate room ID: %q", r.ID)
		}
		c.rooms[r.ID] = r
		c.order = append(c.order, r.ID)
	}
	return c, nil
}

// ValidateTeleporters checks that every teleporter target in every room
// resolves to a known room. Call this after NewCatalog to catch dangling
// cross-room references.
//
// Postcondition: Returns nil if all targets resolve, or an error naming the
// first dangling target.
func (c *Catalog) ValidateTeleporters() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, room := range c.rooms {
		for _, t := range room.Teleporters {
			if _, ok := c.rooms[t.TargetRoom]; !ok {
				return fmt.Errorf("room %q: teleporter %q targets unknown room %q",
					room.ID, t.ID, t.TargetRoom)
			}
		}
	}
	return nil
}

// Room returns the room with the given ID.
//
// Postcondition: Returns (room, true) if found, or (nil, false) otherwise.
func (c *Catalog) Room(id string) (*Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.rooms[id]
	return r, ok
}

// Rooms returns all rooms in load order.
//
// Postcondition: Returns a non-nil slice; may be empty only for a zero Catalog.
func (c *Catalog) Rooms() []*Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rooms := make([]*Room, 0, len(c.order))
	for _, id := range c.order {
		rooms = append(rooms, c.rooms[id])
	}
	return rooms
}

// RoomCount returns the number of loaded rooms.
func (c *Catalog) RoomCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}

// Teleporter returns the teleporter with the given ID in the given room.
//
// Postcondition: Returns (teleporter, nil), or ErrRoomNotFound / ErrObjectNotFound.
func (c *Catalog) Teleporter(roomID, telID string) (*Teleporter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room, ok := c.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", roomID, ErrRoomNotFound)
	}
	t, ok := room.TeleporterByID(telID)
	if !ok {
		return nil, fmt.Errorf("teleporter %q in room %q: %w", telID, roomID, ErrObjectNotFound)
	}
	return t, nil
}

// Object returns the object with the given ID in the given room.
//
// Postcondition: Returns (object, nil), or ErrRoomNotFound / ErrObjectNotFound.
func (c *Catalog) Object(roomID, objID string) (*Object, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	room, ok := c.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", roomID, ErrRoomNotFound)
	}
	o, ok := room.ObjectByID(objID)
	if !ok {
		return nil, fmt.Errorf("object %q in room %q: %w", objID, roomID, ErrObjectNotFound)
	}
	return o, nil
}

// AddObject appends an object to a room's object list.
//
// Precondition: obj must have a non-empty ID, a valid type, and non-nil state.
// Postcondition: The object is reachable via Object, or an error is returned
// and the room is unchanged.
func (c *Catalog) AddObject(roomID string, obj *Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %q: %w", roomID, ErrRoomNotFound)
	}
	if obj.ID == "" {
		return fmt.Errorf("object ID must not be empty")
	}
	if !obj.Type.IsValid() {
		return fmt.Errorf("object %q: unknown type %q", obj.ID, obj.Type)
	}
	if _, exists := room.ObjectByID(obj.ID); exists {
		return fmt.Errorf("room %q: duplicate object ID %q", roomID, obj.ID)
	}
	if obj.State == nil {
		obj.State = NewObjectState(obj.Type)
	}
	room.Objects = append(room.Objects, obj)
	return nil
}

// ObjectUpdate holds the mutable fields of an object for administrative
// updates. Nil pointers leave the field unchanged.
type ObjectUpdate struct {
	Name         *string
	Interactable *bool
	Dialogue     []string
	Script       *string
	RewardXP     *int
}

// UpdateObject applies an administrative update to an object.
//
// Postcondition: Returns the updated object, or ErrRoomNotFound / ErrObjectNotFound.
func (c *Catalog) UpdateObject(roomID, objID string, upd ObjectUpdate) (*Object, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", roomID, ErrRoomNotFound)
	}
	obj, ok := room.ObjectByID(objID)
	if !ok {
		return nil, fmt.Errorf("object %q in room %q: %w", objID, roomID, ErrObjectNotFound)
	}

	if upd.Name != nil {
		obj.Name = *upd.Name
	}
	if upd.Interactable != nil {
		obj.Interactable = *upd.Interactable
	}
	if upd.Dialogue != nil {
		obj.Dialogue = upd.Dialogue
	}
	if upd.Script != nil {
		obj.Script = *upd.Script
	}
	if upd.RewardXP != nil {
		obj.Reward.XP = *upd.RewardXP
	}
	return obj, nil
}

// RemoveObject removes an object from a room.
//
// Postcondition: The object is no longer reachable, or ErrRoomNotFound /
// ErrObjectNotFound is returned.
func (c *Catalog) RemoveObject(roomID, objID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %q: %w", roomID, ErrRoomNotFound)
	}
	for i, o := range room.Objects {
		if o.ID == objID {
			room.Objects = append(room.Objects[:i], room.Objects[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("object %q in room %q: %w", objID, roomID, ErrObjectNotFound)
}
