package world

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlRoomFile is the top-level YAML structure for room files.
type yamlRoomFile struct {
	Room yamlRoom `yaml:"room"`
}

// yamlRoom is the YAML representation of a room.
type yamlRoom struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Theme       string           `yaml:"theme"`
	SpawnPoint  Vec3             `yaml:"spawn_point"`
	Size        Size             `yaml:"size"`
	Environment Environment      `yaml:"environment"`
	Public      *bool            `yaml:"public"`
	Teleporters []yamlTeleporter `yaml:"teleporters"`
	Objects     []yamlObject     `yaml:"objects"`
}

// yamlTeleporter is the YAML representation of a teleporter.
type yamlTeleporter struct {
	ID             string `yaml:"id"`
	Target         string `yaml:"target"`
	TargetPosition Vec3   `yaml:"target_position"`
	Inactive       bool   `yaml:"inactive"`
	MinLevel       int    `yaml:"min_level"`
}

// yamlObject is the YAML representation of an interactive object.
type yamlObject struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Name     string   `yaml:"name"`
	Position Vec3     `yaml:"position"`
	Static   bool     `yaml:"static"`
	Dialogue []string `yaml:"dialogue"`
	Script   string   `yaml:"script"`
	RewardXP int      `yaml:"reward_xp"`
	Items    []string `yaml:"items"`
}

// LoadRoomFromFile reads and validates a single room YAML file.
//
// Precondition: path must point to a valid YAML room file.
// Postcondition: Returns a validated Room or a non-nil error.
func LoadRoomFromFile(path string) (*Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading room file %s: %w", path, err)
	}
	room, err := LoadRoomFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("room file %s: %w", path, err)
	}
	return room, nil
}

// LoadRoomFromBytes parses and validates a room from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the room schema.
// Postcondition: Returns a validated Room or a non-nil error.
func LoadRoomFromBytes(data []byte) (*Room, error) {
	var file yamlRoomFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing room YAML: %w", err)
	}

	y := file.Room
	room := &Room{
		ID:          y.ID,
		Name:        y.Name,
		Theme:       y.Theme,
		SpawnPoint:  y.SpawnPoint,
		Size:        y.Size,
		Environment: y.Environment,
		Public:      y.Public == nil || *y.Public,
	}

	for _, t := range y.Teleporters {
		room.Teleporters = append(room.Teleporters, &Teleporter{
			ID:             t.ID,
			TargetRoom:     t.Target,
			TargetPosition: t.TargetPosition,
			Active:         !t.Inactive,
			MinLevel:       t.MinLevel,
		})
	}

	for _, o := range y.Objects {
		typ := ObjectType(o.Type)
		room.Objects = append(room.Objects, &Object{
			ID:           o.ID,
			Type:         typ,
			Name:         o.Name,
			Position:     o.Position,
			Interactable: !o.Static,
			State:        NewObjectState(typ),
			Dialogue:     o.Dialogue,
			Script:       o.Script,
			Reward:       Reward{XP: o.RewardXP, Items: o.Items},
		})
	}

	if err := room.Validate(); err != nil {
		return nil, err
	}
	return room, nil
}

// LoadRoomsFromDir loads every *.yaml/*.yml file in dir as a room.
//
// Precondition: dir must be a readable directory containing room files.
// Postcondition: Returns at least one validated room, or a non-nil error.
func LoadRoomsFromDir(dir string) ([]*Room, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading rooms directory %s: %w", dir, err)
	}

	var rooms []*Room
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		room, err := LoadRoomFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if len(rooms) == 0 {
		return nil, fmt.Errorf("no room files found in %s", dir)
	}
	return rooms, nil
}

// DefaultRooms returns the built-in room set used when no rooms directory is
// configured, so the server runs with zero content files.
//
// Postcondition: Returns a validated, teleporter-consistent room set.
func DefaultRooms() []*Room {
	mainWorld := &Room{
		ID:         "main-world",
		Name:       "Main World",
		Theme:      "plaza",
		SpawnPoint: Vec3{X: 0, Y: 0, Z: 0},
		Size:       Size{Width: 200, Height: 50, Depth: 200},
		Environment: Environment{
			Skybox:   "day",
			Lighting: "noon",
			Ambience: "crowd",
		},
		Public: true,
		Teleporters: []*Teleporter{
			{ID: "to-neon", TargetRoom: "neon-plaza", TargetPosition: Vec3{X: 0, Y: 0, Z: 5}, Active: true},
			{ID: "to-garden", TargetRoom: "sky-garden", TargetPosition: Vec3{X: 0, Y: 0, Z: 5}, Active: true},
		},
		Objects: []*Object{
			{
				ID: "welcome-chest", Type: TypeChest, Name: "Welcome Chest",
				Position: Vec3{X: 10, Y: 0, Z: 10}, Interactable: true,
				State:  NewObjectState(TypeChest),
				Reward: Reward{XP: 50, Items: []string{"starter-badge"}},
			},
			{
				ID: "fountain-switch", Type: TypeSwitch, Name: "Fountain Switch",
				Position: Vec3{X: -15, Y: 0, Z: 0}, Interactable: true,
				State: NewObjectState(TypeSwitch),
			},
			{
				ID: "greeter", Type: TypeNPC, Name: "Greeter",
				Position: Vec3{X: 0, Y: 0, Z: -10}, Interactable: true,
				State:    NewObjectState(TypeNPC),
				Dialogue: []string{"Welcome to the main world!", "Try the teleporters at the plaza edge."},
			},
		},
	}

	neonPlaza := &Room{
		ID:         "neon-plaza",
		Name:       "Neon Plaza",
		Theme:      "cyberpunk",
		SpawnPoint: Vec3{X: 0, Y: 0, Z: 0},
		Size:       Size{Width: 120, Height: 80, Depth: 120},
		Environment: Environment{
			Skybox:   "night",
			Lighting: "neon",
			Ambience: "synth",
		},
		Public: true,
		Teleporters: []*Teleporter{
			{ID: "to-main", TargetRoom: "main-world", TargetPosition: Vec3{X: 0, Y: 0, Z: 5}, Active: true},
		},
		Objects: []*Object{
			{
				ID: "data-shard", Type: TypeCollectible, Name: "Data Shard",
				Position: Vec3{X: 20, Y: 2, Z: -15}, Interactable: true,
				State:  NewObjectState(TypeCollectible),
				Reward: Reward{XP: 25},
			},
			{
				ID: "hover-taxi", Type: TypeVehicle, Name: "Hover Taxi",
				Position: Vec3{X: -20, Y: 0, Z: 20}, Interactable: true,
				State:  NewObjectState(TypeVehicle),
				Reward: Reward{XP: 10},
			},
		},
	}

	skyGarden := &Room{
		ID:         "sky-garden",
		Name:       "Sky Garden",
		Theme:      "forest",
		SpawnPoint: Vec3{X: 0, Y: 0, Z: 0},
		Size:       Size{Width: 80, Height: 40, Depth: 80},
		Environment: Environment{
			Skybox:   "sunset",
			Lighting: "golden",
			Ambience: "birdsong",
		},
		Public: true,
		Teleporters: []*Teleporter{
			{ID: "to-main", TargetRoom: "main-world", TargetPosition: Vec3{X: 0, Y: 0, Z: 5}, Active: true},
		},
		Objects: []*Object{
			{
				ID: "stone-puzzle", Type: TypePuzzle, Name: "Stone Circle",
				Position: Vec3{X: 0, Y: 0, Z: 25}, Interactable: true,
				State:  NewObjectState(TypePuzzle),
				Reward: Reward{XP: 75},
			},
			{
				ID: "greenhouse", Type: TypeBuilding, Name: "Greenhouse",
				Position: Vec3{X: -25, Y: 0, Z: -25}, Interactable: true,
				State:  NewObjectState(TypeBuilding),
				Reward: Reward{XP: 15},
			},
		},
	}

	return []*Room{mainWorld, neonPlaza, skyGarden}
}
