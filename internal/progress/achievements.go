// Package progress provides per-session XP, level, and achievement tracking.
package progress

// RequirementType classifies what an achievement measures.
type RequirementType string

// Supported requirement types.
const (
	// RequireVisit measures distinct rooms visited, or a specific room when
	// Target is set.
	RequireVisit RequirementType = "visit"
	// RequireCollect measures items collected.
	RequireCollect RequirementType = "collect"
	// RequireInteract measures distinct objects interacted with.
	RequireInteract RequirementType = "interact"
	// RequireTeleport measures teleporter uses.
	RequireTeleport RequirementType = "teleport"
)

// Requirement is the unlock condition of an achievement.
type Requirement struct {
	// Type selects the progress counter evaluated.
	Type RequirementType
	// Target names a specific room for visit requirements. Empty = count-based.
	Target string
	// Count is the threshold for count-based requirements.
	Count int
}

// Achievement is a static catalog entry, read-only at runtime.
type Achievement struct {
	// ID uniquely identifies the achievement.
	ID string
	// Name is the display title.
	Name string
	// Description explains the unlock condition to participants.
	Description string
	// Requirement is the unlock condition.
	Requirement Requirement
	// RewardXP is granted on unlock.
	RewardXP int
}

// Satisfied reports whether the requirement holds for the given progress.
func (r Requirement) Satisfied(p *Progress) bool {
	switch r.Type {
	case RequireVisit:
		if r.Target != "" {
			return p.RoomsVisited[r.Target]
		}
		return p.Stats.RoomsDiscovered >= r.Count
	case RequireCollect:
		return p.Stats.ItemsCollected >= r.Count
	case RequireInteract:
		return p.Stats.ObjectsInteracted >= r.Count
	case RequireTeleport:
		return p.Stats.Teleports >= r.Count
	default:
		return false
	}
}

// DefaultAchievements returns the built-in achievement catalog.
//
// Postcondition: Returns a non-empty slice with unique IDs.
func DefaultAchievements() []Achievement {
	return []Achievement{
		{
			ID:          "first-steps",
			Name:        "First Steps",
			Description: "Visit your first room.",
			Requirement: Requirement{Type: RequireVisit, Count: 1},
			RewardXP:    10,
		},
		{
			ID:          "explorer",
			Name:        "Explorer",
			Description: "Visit three distinct rooms.",
			Requirement: Requirement{Type: RequireVisit, Count: 3},
			RewardXP:    50,
		},
		{
			ID:          "neon-pilgrim",
			Name:        "Neon Pilgrim",
			Description: "Set foot in the Neon Plaza.",
			Requirement: Requirement{Type: RequireVisit, Target: "neon-plaza"},
			RewardXP:    25,
		},
		{
			ID:          "magpie",
			Name:        "Magpie",
			Description: "Collect five items.",
			Requirement: Requirement{Type: RequireCollect, Count: 5},
			RewardXP:    75,
		},
		{
			ID:          "tinkerer",
			Name:        "Tinkerer",
			Description: "Interact with ten different objects.",
			Requirement: Requirement{Type: RequireInteract, Count: 10},
			RewardXP:    100,
		},
		{
			ID:          "frequent-flyer",
			Name:        "Frequent Flyer",
			Description: "Use teleporters ten times.",
			Requirement: Requirement{Type: RequireTeleport, Count: 10},
			RewardXP:    40,
		},
	}
}
