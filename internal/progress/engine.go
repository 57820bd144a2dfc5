package progress

import (
	"math"
	"sync"
)

// Stats holds cumulative activity counters for one session.
type Stats struct {
	// RoomsDiscovered counts first visits to distinct rooms.
	RoomsDiscovered int `json:"roomsDiscovered"`
	// ObjectsInteracted counts first interactions with distinct objects.
	ObjectsInteracted int `json:"objectsInteracted"`
	// ItemsCollected counts collect-class consumes.
	ItemsCollected int `json:"itemsCollected"`
	// Teleports counts teleporter uses.
	Teleports int `json:"teleports"`
	// MessagesSent counts chat messages posted.
	MessagesSent int `json:"messagesSent"`
}

// Progress is one session's cumulative progression record. Created lazily on
// first reference; retained for the process lifetime.
type Progress struct {
	// Handle is the owning session handle.
	Handle string `json:"handle"`
	// Level is the current level, starting at 1.
	Level int `json:"level"`
	// XP is experience accumulated toward the next level.
	XP int `json:"xp"`
	// XPToNext is the threshold for the next level-up.
	XPToNext int `json:"xpToNextLevel"`
	// Achievements lists unlocked achievement IDs in unlock order.
	Achievements []string `json:"achievements"`
	// RoomsVisited is the set of rooms ever visited.
	RoomsVisited map[string]bool `json:"-"`
	// ObjectsUsed is the set of objects ever interacted with.
	ObjectsUsed map[string]bool `json:"-"`
	// Stats holds activity counters.
	Stats Stats `json:"stats"`
}

// HasAchievement reports whether the achievement is already unlocked.
func (p *Progress) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// Engine owns all Progress records, keyed by handle. It is the single
// serialization point for cross-room progression state; all methods are safe
// for concurrent use. The engine is passive: callers invoke
// CheckAchievements after any event that could satisfy a requirement.
type Engine struct {
	mu            sync.RWMutex
	records       map[string]*Progress
	achievements  []Achievement
	baseThreshold int
	multiplier    float64
}

// NewEngine creates an Engine with the given achievement catalog.
//
// Precondition: baseThreshold >= 1; multiplier > 1.
func NewEngine(achievements []Achievement, baseThreshold int, multiplier float64) *Engine {
	return &Engine{
		records:       make(map[string]*Progress),
		achievements:  achievements,
		baseThreshold: baseThreshold,
		multiplier:    multiplier,
	}
}

// Get returns the progress record for a handle, creating it on first
// reference.
//
// Postcondition: Returns a non-nil Progress at level >= 1.
func (e *Engine) Get(handle string) *Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getLocked(handle)
}

func (e *Engine) getLocked(handle string) *Progress {
	p, ok := e.records[handle]
	if !ok {
		p = &Progress{
			Handle:       handle,
			Level:        1,
			XPToNext:     e.baseThreshold,
			RoomsVisited: make(map[string]bool),
			ObjectsUsed:  make(map[string]bool),
		}
		e.records[handle] = p
	}
	return p
}

// AddXP grants experience and applies any level-ups.
//
// Precondition: amount must be >= 0.
// Postcondition: Returns the updated Progress. The level-up loop terminates
// for any non-negative input because the threshold stays positive.
func (e *Engine) AddXP(handle string, amount int) *Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.getLocked(handle)
	e.addXPLocked(p, amount)
	return p
}

func (e *Engine) addXPLocked(p *Progress, amount int) {
	if amount <= 0 {
		return
	}
	p.XP += amount
	for p.XP >= p.XPToNext {
		p.XP -= p.XPToNext
		p.Level++
		p.XPToNext = int(math.Floor(float64(p.XPToNext) * e.multiplier))
	}
}

// VisitRoom records a room visit. The discovery counter increments only on
// the first visit to each room.
//
// Postcondition: Returns the updated Progress; RoomsVisited contains roomID.
func (e *Engine) VisitRoom(handle, roomID string) *Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.getLocked(handle)
	if !p.RoomsVisited[roomID] {
		p.RoomsVisited[roomID] = true
		p.Stats.RoomsDiscovered++
	}
	return p
}

// InteractObject records a first-time object interaction.
//
// Postcondition: Returns the updated Progress; repeat interactions with the
// same object do not change counters.
func (e *Engine) InteractObject(handle, objectID string) *Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.getLocked(handle)
	if !p.ObjectsUsed[objectID] {
		p.ObjectsUsed[objectID] = true
		p.Stats.ObjectsInteracted++
	}
	return p
}

// RecordCollect increments the collected-items counter.
func (e *Engine) RecordCollect(handle string, items int) *Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.getLocked(handle)
	if items < 1 {
		items = 1
	}
	p.Stats.ItemsCollected += items
	return p
}

// RecordTeleport increments the teleport counter.
func (e *Engine) RecordTeleport(handle string) *Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.getLocked(handle)
	p.Stats.Teleports++
	return p
}

// RecordMessage increments the messages-sent counter.
func (e *Engine) RecordMessage(handle string) *Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.getLocked(handle)
	p.Stats.MessagesSent++
	return p
}

// CheckAchievements evaluates every catalog achievement not yet owned
// against current counters, unlocking any that are satisfied. Unlocking
// grants the achievement's reward XP and is idempotent.
//
// Postcondition: Returns the newly unlocked achievements, in catalog order;
// never re-unlocks.
func (e *Engine) CheckAchievements(handle string) []Achievement {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.getLocked(handle)

	var unlocked []Achievement
	for _, a := range e.achievements {
		if p.HasAchievement(a.ID) {
			continue
		}
		if !a.Requirement.Satisfied(p) {
			continue
		}
		p.Achievements = append(p.Achievements, a.ID)
		e.addXPLocked(p, a.RewardXP)
		unlocked = append(unlocked, a)
	}
	return unlocked
}
