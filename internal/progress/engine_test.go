package progress

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestEngine(achievements []Achievement) *Engine {
	return NewEngine(achievements, 100, 1.5)
}

func TestGetCreatesLazily(t *testing.T) {
	e := newTestEngine(nil)
	p := e.Get("s1")
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 0, p.XP)
	assert.Equal(t, 100, p.XPToNext)

	assert.Same(t, p, e.Get("s1"), "same record on repeat lookup")
}

func TestAddXP_NoLevelUp(t *testing.T) {
	e := newTestEngine(nil)
	p := e.AddXP("s1", 60)
	assert.Equal(t, 1, p.Level)
	assert.Equal(t, 60, p.XP)
}

func TestAddXP_SingleLevelUp(t *testing.T) {
	e := newTestEngine(nil)
	p := e.AddXP("s1", 120)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 20, p.XP)
	assert.Equal(t, 150, p.XPToNext, "threshold grows by 1.5x floored")
}

func TestAddXP_MultiLevelUp(t *testing.T) {
	e := newTestEngine(nil)
	// 100 + 150 = 250 crosses two thresholds; 10 left over.
	p := e.AddXP("s1", 260)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, 10, p.XP)
	assert.Equal(t, 225, p.XPToNext)
}

func TestAddXP_ZeroAndNegative(t *testing.T) {
	e := newTestEngine(nil)
	p := e.AddXP("s1", 0)
	assert.Equal(t, 0, p.XP)
	p = e.AddXP("s1", -50)
	assert.Equal(t, 0, p.XP)
	assert.Equal(t, 1, p.Level)
}

func TestPropertyAddXPTerminatesAndStaysConsistent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := newTestEngine(nil)
		total := 0
		numGrants := rapid.IntRange(1, 20).Draw(t, "num_grants")
		for i := 0; i < numGrants; i++ {
			amount := rapid.IntRange(0, 5000).Draw(t, "amount")
			total += amount
			p := e.AddXP("s1", amount)
			if p.XP < 0 || p.XP >= p.XPToNext {
				t.Fatalf("xp %d outside [0, %d)", p.XP, p.XPToNext)
			}
			if p.Level < 1 {
				t.Fatalf("level dropped to %d", p.Level)
			}
		}
	})
}

func TestVisitRoomDeduplicates(t *testing.T) {
	e := newTestEngine(nil)
	p := e.VisitRoom("s1", "main-world")
	assert.Equal(t, 1, p.Stats.RoomsDiscovered)

	p = e.VisitRoom("s1", "main-world")
	assert.Equal(t, 1, p.Stats.RoomsDiscovered, "revisit does not count")

	p = e.VisitRoom("s1", "neon-plaza")
	assert.Equal(t, 2, p.Stats.RoomsDiscovered)
}

func TestInteractObjectDeduplicates(t *testing.T) {
	e := newTestEngine(nil)
	p := e.InteractObject("s1", "chest-1")
	assert.Equal(t, 1, p.Stats.ObjectsInteracted)
	p = e.InteractObject("s1", "chest-1")
	assert.Equal(t, 1, p.Stats.ObjectsInteracted)
	p = e.InteractObject("s1", "lever-1")
	assert.Equal(t, 2, p.Stats.ObjectsInteracted)
}

func TestCounters(t *testing.T) {
	e := newTestEngine(nil)
	e.RecordCollect("s1", 2)
	e.RecordCollect("s1", 0) // clamps to 1
	e.RecordTeleport("s1")
	e.RecordMessage("s1")
	e.RecordMessage("s1")

	p := e.Get("s1")
	assert.Equal(t, 3, p.Stats.ItemsCollected)
	assert.Equal(t, 1, p.Stats.Teleports)
	assert.Equal(t, 2, p.Stats.MessagesSent)
}

func TestCheckAchievements_VisitCountUnlocksOnThirdDistinctRoom(t *testing.T) {
	catalog := []Achievement{
		{ID: "explorer", Requirement: Requirement{Type: RequireVisit, Count: 3}, RewardXP: 50},
	}
	e := newTestEngine(catalog)

	e.VisitRoom("s1", "r1")
	assert.Empty(t, e.CheckAchievements("s1"))

	e.VisitRoom("s1", "r2")
	assert.Empty(t, e.CheckAchievements("s1"))

	// Fourth visit to a known room does not unlock.
	e.VisitRoom("s1", "r1")
	assert.Empty(t, e.CheckAchievements("s1"))

	e.VisitRoom("s1", "r3")
	unlocked := e.CheckAchievements("s1")
	require.Len(t, unlocked, 1)
	assert.Equal(t, "explorer", unlocked[0].ID)

	p := e.Get("s1")
	assert.Equal(t, 50, p.XP, "unlock grants reward XP")

	// Idempotent: never re-unlocks.
	assert.Empty(t, e.CheckAchievements("s1"))
}

func TestCheckAchievements_SpecificRoomTarget(t *testing.T) {
	catalog := []Achievement{
		{ID: "pilgrim", Requirement: Requirement{Type: RequireVisit, Target: "shrine"}, RewardXP: 25},
	}
	e := newTestEngine(catalog)

	e.VisitRoom("s1", "elsewhere")
	assert.Empty(t, e.CheckAchievements("s1"))

	e.VisitRoom("s1", "shrine")
	unlocked := e.CheckAchievements("s1")
	require.Len(t, unlocked, 1)
	assert.Equal(t, "pilgrim", unlocked[0].ID)
}

func TestCheckAchievements_CollectAndInteract(t *testing.T) {
	catalog := []Achievement{
		{ID: "magpie", Requirement: Requirement{Type: RequireCollect, Count: 2}, RewardXP: 10},
		{ID: "tinkerer", Requirement: Requirement{Type: RequireInteract, Count: 2}, RewardXP: 10},
		{ID: "flyer", Requirement: Requirement{Type: RequireTeleport, Count: 1}, RewardXP: 10},
	}
	e := newTestEngine(catalog)

	e.RecordCollect("s1", 2)
	e.InteractObject("s1", "a")
	e.InteractObject("s1", "b")
	e.RecordTeleport("s1")

	unlocked := e.CheckAchievements("s1")
	ids := make([]string, 0, len(unlocked))
	for _, a := range unlocked {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"magpie", "tinkerer", "flyer"}, ids, "catalog order")
}

func TestCheckAchievements_RewardXPCanLevel(t *testing.T) {
	catalog := []Achievement{
		{ID: "big", Requirement: Requirement{Type: RequireVisit, Count: 1}, RewardXP: 150},
	}
	e := newTestEngine(catalog)
	e.VisitRoom("s1", "r1")
	unlocked := e.CheckAchievements("s1")
	require.Len(t, unlocked, 1)

	p := e.Get("s1")
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, 50, p.XP)
}

func TestDefaultAchievementsHaveUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, a := range DefaultAchievements() {
		require.False(t, seen[a.ID], "duplicate achievement ID %q", a.ID)
		seen[a.ID] = true
		assert.NotEmpty(t, a.Name)
	}
}

func TestRecordsAreIndependentPerHandle(t *testing.T) {
	e := newTestEngine(nil)
	for i := 0; i < 5; i++ {
		handle := fmt.Sprintf("s%d", i)
		e.AddXP(handle, i*10)
	}
	for i := 0; i < 5; i++ {
		p := e.Get(fmt.Sprintf("s%d", i))
		assert.Equal(t, i*10, p.XP)
	}
}
