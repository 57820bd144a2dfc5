// Package world provides the world model: rooms, teleporters, and
// interactive objects.
package world

import "fmt"

// Vec3 is a position or rotation in room-local coordinates.
type Vec3 struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	Z float64 `yaml:"z" json:"z"`
}

// Size is the extent of a room. Rooms are centered on the origin, so valid
// positions span [-Width/2, Width/2] on X and [-Depth/2, Depth/2] on Z.
type Size struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
	Depth  float64 `yaml:"depth" json:"depth"`
}

// Environment holds presentation hints attached to a room. The core never
// interprets these; they ride along in room payloads.
type Environment struct {
	Skybox   string `yaml:"skybox" json:"skybox"`
	Lighting string `yaml:"lighting" json:"lighting"`
	Ambience string `yaml:"ambience" json:"ambience"`
}

// ObjectType is the closed set of interactive object types.
type ObjectType string

// All supported interactive object types.
const (
	TypeChest       ObjectType = "chest"
	TypeSwitch      ObjectType = "switch"
	TypeDoor        ObjectType = "door"
	TypeNPC         ObjectType = "npc"
	TypeCollectible ObjectType = "collectible"
	TypePuzzle      ObjectType = "puzzle"
	TypeVehicle     ObjectType = "vehicle"
	TypeBuilding    ObjectType = "building"
)

// ObjectTypes lists every valid object type.
var ObjectTypes = []ObjectType{
	TypeChest, TypeSwitch, TypeDoor, TypeNPC,
	TypeCollectible, TypePuzzle, TypeVehicle, TypeBuilding,
}

// IsValid reports whether t is a known object type.
func (t ObjectType) IsValid() bool {
	for _, known := range ObjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Interaction is the behavior class an object type maps to.
type Interaction string

// Interaction classes. Each object type has exactly one.
const (
	// InteractCollect is a one-shot consume: collect, open, solve.
	InteractCollect Interaction = "collect"
	// InteractToggle flips a boolean flag and is broadcast room-wide.
	InteractToggle Interaction = "toggle"
	// InteractDialogue is stateless and returns static text.
	InteractDialogue Interaction = "dialogue"
	// InteractEnter marks the object entered, once.
	InteractEnter Interaction = "enter"
)

// InteractionFor returns the interaction class for an object type.
//
// Precondition: t should be a valid ObjectType; unknown types map to dialogue.
func InteractionFor(t ObjectType) Interaction {
	switch t {
	case TypeChest, TypeCollectible, TypePuzzle:
		return InteractCollect
	case TypeSwitch, TypeDoor:
		return InteractToggle
	case TypeVehicle, TypeBuilding:
		return InteractEnter
	default:
		return InteractDialogue
	}
}

// ObjectState is the runtime state variant of an interactive object. Each
// interaction class carries only the fields its semantics need.
type ObjectState interface {
	// Kind returns the interaction class this state belongs to.
	Kind() Interaction
	// Fields returns the state as a flat map for event payloads.
	Fields() map[string]any
}

// CollectState tracks a one-shot consumable object.
type CollectState struct {
	// Consumed is true once the object has been collected/opened/solved.
	Consumed bool
}

// Kind returns InteractCollect.
func (s *CollectState) Kind() Interaction { return InteractCollect }

// Fields returns the state as a flat map for event payloads.
func (s *CollectState) Fields() map[string]any { return map[string]any{"collected": s.Consumed} }

// ToggleState tracks a switch-like object.
type ToggleState struct {
	// Powered is the current toggle position.
	Powered bool
}

// Kind returns InteractToggle.
func (s *ToggleState) Kind() Interaction { return InteractToggle }

// Fields returns the state as a flat map for event payloads.
func (s *ToggleState) Fields() map[string]any { return map[string]any{"powered": s.Powered} }

// DialogueState is the stateless variant for NPC objects.
type DialogueState struct{}

// Kind returns InteractDialogue.
func (s *DialogueState) Kind() Interaction { return InteractDialogue }

// Fields returns an empty map; dialogue objects carry no runtime state.
func (s *DialogueState) Fields() map[string]any { return map[string]any{} }

// EnterState tracks an enterable object.
type EnterState struct {
	// Entered is true once any session has entered the object.
	Entered bool
}

// Kind returns InteractEnter.
func (s *EnterState) Kind() Interaction { return InteractEnter }

// Fields returns the state as a flat map for event payloads.
func (s *EnterState) Fields() map[string]any { return map[string]any{"entered": s.Entered} }

// NewObjectState creates the fresh state variant for an object type.
//
// Postcondition: Returns a non-nil ObjectState matching InteractionFor(t).
func NewObjectState(t ObjectType) ObjectState {
	switch InteractionFor(t) {
	case InteractCollect:
		return &CollectState{}
	case InteractToggle:
		return &ToggleState{}
	case InteractEnter:
		return &EnterState{}
	default:
		return &DialogueState{}
	}
}

// Reward is what a one-shot interaction grants.
type Reward struct {
	// XP is the experience granted on first consume.
	XP int `yaml:"xp" json:"xp"`
	// Items are item identifiers granted on first consume.
	Items []string `yaml:"items" json:"items,omitempty"`
}

// Object is an interactive entity placed in a room. Position and type are
// immutable after catalog load; State is mutated in place by the world
// controller under the single-dispatch discipline.
type Object struct {
	// ID uniquely identifies this object within its room.
	ID string
	// Type determines the interaction class.
	Type ObjectType
	// Name is the display name shown to participants.
	Name string
	// Position is the object's location in room coordinates.
	Position Vec3
	// Interactable gates whether interact events are accepted.
	Interactable bool
	// State is the runtime interaction state.
	State ObjectState
	// Dialogue holds the lines returned by dialogue interactions.
	Dialogue []string
	// Script names an optional Lua hook run after a successful interaction.
	Script string
	// Reward is granted on the first consume of a collect object.
	Reward Reward
}

// Teleporter links a room to a target room and landing position.
// Teleporters are read-only at runtime.
type Teleporter struct {
	// ID uniquely identifies this teleporter within its room.
	ID string
	// TargetRoom is the destination room ID.
	TargetRoom string
	// TargetPosition is the landing position in the destination room.
	TargetPosition Vec3
	// Active gates whether the teleporter accepts use.
	Active bool
	// MinLevel is the minimum participant level required. 0 = no requirement.
	MinLevel int
}

// Room is a named 3-D area: the unit of broadcast scoping and state
// isolation. Immutable after catalog load except object runtime state and
// administrative object CRUD.
type Room struct {
	// ID uniquely identifies the room.
	ID string
	// Name is the display name.
	Name string
	// Theme is a presentation tag (e.g. "cyberpunk", "forest").
	Theme string
	// SpawnPoint is where joining sessions appear, before jitter.
	SpawnPoint Vec3
	// Size is the room extent.
	Size Size
	// Teleporters lists outbound teleporters.
	Teleporters []*Teleporter
	// Objects lists interactive objects.
	Objects []*Object
	// Environment holds presentation hints.
	Environment Environment
	// Public marks the room as joinable without an invitation.
	Public bool
}

// TeleporterByID returns the teleporter with the given ID, if present.
//
// Postcondition: Returns (teleporter, true) if found, or (nil, false) otherwise.
func (r *Room) TeleporterByID(id string) (*Teleporter, bool) {
	for _, t := range r.Teleporters {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// ObjectByID returns the object with the given ID, if present.
//
// Postcondition: Returns (object, true) if found, or (nil, false) otherwise.
func (r *Room) ObjectByID(id string) (*Object, bool) {
	for _, o := range r.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// Validate checks room invariants.
//
// Postcondition: Returns nil if valid, or an error describing the first violation.
func (r *Room) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("room ID must not be empty")
	}
	if r.Name == "" {
		return fmt.Errorf("room %q: name must not be empty", r.ID)
	}
	if r.Size.Width <= 0 || r.Size.Height <= 0 || r.Size.Depth <= 0 {
		return fmt.Errorf("room %q: size must be positive in all dimensions", r.ID)
	}
	halfW, halfD := r.Size.Width/2, r.Size.Depth/2
	if r.SpawnPoint.X < -halfW || r.SpawnPoint.X > halfW ||
		r.SpawnPoint.Z < -halfD || r.SpawnPoint.Z > halfD {
		return fmt.Errorf("room %q: spawn point outside room bounds", r.ID)
	}

	seenTel := make(map[string]bool, len(r.Teleporters))
	for _, t := range r.Teleporters {
		if t.ID == "" {
			return fmt.Errorf("room %q: teleporter ID must not be empty", r.ID)
		}
		if seenTel[t.ID] {
			return fmt.Errorf("room %q: duplicate teleporter ID %q", r.ID, t.ID)
		}
		seenTel[t.ID] = true
		if t.TargetRoom == "" {
			return fmt.Errorf("room %q: teleporter %q has empty target", r.ID, t.ID)
		}
	}

	seenObj := make(map[string]bool, len(r.Objects))
	for _, o := range r.Objects {
		if o.ID == "" {
			return fmt.Errorf("room %q: object ID must not be empty", r.ID)
		}
		if seenObj[o.ID] {
			return fmt.Errorf("room %q: duplicate object ID %q", r.ID, o.ID)
		}
		seenObj[o.ID] = true
		if !o.Type.IsValid() {
			return fmt.Errorf("room %q: object %q has unknown type %q", r.ID, o.ID, o.Type)
		}
		if o.State == nil {
			return fmt.Errorf("room %q: object %q has nil state", r.ID, o.ID)
		}
		if o.State.Kind() != InteractionFor(o.Type) {
			return fmt.Errorf("room %q: object %q: state kind %q does not match type %q",
				r.ID, o.ID, o.State.Kind(), o.Type)
		}
	}
	return nil
}
