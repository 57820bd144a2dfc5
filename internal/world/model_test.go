package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRoom() *Room {
	return &Room{
		ID:         "test-room",
		Name:       "Test Room",
		SpawnPoint: Vec3{X: 0, Y: 0, Z: 0},
		Size:       Size{Width: 100, Height: 30, Depth: 100},
		Public:     true,
	}
}

func TestInteractionFor(t *testing.T) {
	cases := []struct {
		typ  ObjectType
		want Interaction
	}{
		{TypeChest, InteractCollect},
		{TypeCollectible, InteractCollect},
		{TypePuzzle, InteractCollect},
		{TypeSwitch, InteractToggle},
		{TypeDoor, InteractToggle},
		{TypeVehicle, InteractEnter},
		{TypeBuilding, InteractEnter},
		{TypeNPC, InteractDialogue},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, InteractionFor(tc.typ), "type %q", tc.typ)
	}
}

func TestNewObjectStateMatchesType(t *testing.T) {
	for _, typ := range ObjectTypes {
		state := NewObjectState(typ)
		require.NotNil(t, state, "type %q", typ)
		assert.Equal(t, InteractionFor(typ), state.Kind(), "type %q", typ)
	}
}

func TestObjectStateFields(t *testing.T) {
	collect := &CollectState{Consumed: true}
	assert.Equal(t, map[string]any{"collected": true}, collect.Fields())

	toggle := &ToggleState{Powered: true}
	assert.Equal(t, map[string]any{"powered": true}, toggle.Fields())

	enter := &EnterState{}
	assert.Equal(t, map[string]any{"entered": false}, enter.Fields())

	assert.Empty(t, (&DialogueState{}).Fields())
}

func TestRoomValidate(t *testing.T) {
	assert.NoError(t, validRoom().Validate())
}

func TestRoomValidate_EmptyID(t *testing.T) {
	r := validRoom()
	r.ID = ""
	assert.Error(t, r.Validate())
}

func TestRoomValidate_EmptyName(t *testing.T) {
	r := validRoom()
	r.Name = ""
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestRoomValidate_NonPositiveSize(t *testing.T) {
	r := validRoom()
	r.Size.Depth = 0
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size")
}

func TestRoomValidate_SpawnOutOfBounds(t *testing.T) {
	r := validRoom()
	r.SpawnPoint.X = 51 // half-width is 50
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spawn point")
}

func TestRoomValidate_DuplicateTeleporter(t *testing.T) {
	r := validRoom()
	r.Teleporters = []*Teleporter{
		{ID: "t1", TargetRoom: "other", Active: true},
		{ID: "t1", TargetRoom: "other", Active: true},
	}
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate teleporter")
}

func TestRoomValidate_UnknownObjectType(t *testing.T) {
	r := validRoom()
	r.Objects = []*Object{
		{ID: "o1", Type: "portal", State: &DialogueState{}},
	}
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestRoomValidate_StateKindMismatch(t *testing.T) {
	r := validRoom()
	r.Objects = []*Object{
		{ID: "o1", Type: TypeChest, State: &ToggleState{}},
	}
	err := r.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestRoomLookups(t *testing.T) {
	r := validRoom()
	r.Teleporters = []*Teleporter{{ID: "t1", TargetRoom: "other", Active: true}}
	r.Objects = []*Object{{ID: "o1", Type: TypeChest, State: NewObjectState(TypeChest)}}

	tel, ok := r.TeleporterByID("t1")
	require.True(t, ok)
	assert.Equal(t, "other", tel.TargetRoom)

	_, ok = r.TeleporterByID("missing")
	assert.False(t, ok)

	obj, ok := r.ObjectByID("o1")
	require.True(t, ok)
	assert.Equal(t, TypeChest, obj.Type)

	_, ok = r.ObjectByID("missing")
	assert.False(t, ok)
}
