package session

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wricardo/mcp-training/openworld/game/world"
)

func createTestScenario() *world.Scenario {
	return &world.Scenario{
		Name:        "Test Scenario",
		Description: "Two pedestrians and a car",
		Seed:        42,
		NPCs: []world.NPCSpec{
			{ID: "ann", Name: "Ann", Appearance: "casual", Age: world.Adult, Position: world.Pos(1, 1)},
			{ID: "ben", Name: "Ben", Appearance: "police", Age: world.Adult, Position: world.Pos(5, 5)},
		},
		Vehicles: []world.VehicleSpec{
			{ID: "car", Registration: "CAR-1", Position: world.Pos(2, 2), Capacity: 2},
		},
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	scenario := createTestScenario()

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", scenario)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.ID != "test-session" {
			t.Errorf("Expected session ID 'test-session', got '%s'", session.ID)
		}
		if session.World == nil {
			t.Fatal("Expected world to be initialized")
		}
		if got := len(session.World.NPCs()); got != 2 {
			t.Errorf("Expected 2 NPCs, got %d", got)
		}
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", scenario)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if len(session.ID) != 4 {
			t.Errorf("Expected 4-character session ID, got %q", session.ID)
		}
	})

	t.Run("nil scenario uses the demo", func(t *testing.T) {
		session, err := manager.Create("demo-session", nil)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.Scenario == nil || session.Scenario.Name != "demo" {
			t.Errorf("Expected demo scenario, got %+v", session.Scenario)
		}
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", scenario)
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists, got %v", err)
		}
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", scenario)
		if err != ErrSessionAlreadyExists {
			t.Errorf("Expected ErrSessionAlreadyExists for case variant, got %v", err)
		}
	})

	t.Run("path-like ID", func(t *testing.T) {
		_, err := manager.Create("../etc", scenario)
		if err == nil {
			t.Error("Expected error for path-like session ID")
		}
	})

	t.Run("invalid scenario", func(t *testing.T) {
		invalid := createTestScenario()
		invalid.NPCs[1].Position = invalid.NPCs[0].Position
		_, err := manager.Create("invalid-test", invalid)
		if err == nil {
			t.Error("Expected error for overlapping scenario")
		}
	})
}

func TestManager_Get(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	created, _ := manager.Create("get-test", createTestScenario())

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if session != created {
			t.Error("Expected the same session instance")
		}
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		if err != nil {
			t.Fatalf("Failed to get session with different case: %v", err)
		}
		if session.ID != created.ID {
			t.Errorf("Expected same session regardless of case")
		}
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		if err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_GetOrCreate(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	scenario := createTestScenario()

	first, err := manager.GetOrCreate("new-session", scenario)
	if err != nil {
		t.Fatalf("Failed to get or create session: %v", err)
	}
	second, err := manager.GetOrCreate("new-session", scenario)
	if err != nil {
		t.Fatalf("Failed to get existing session: %v", err)
	}
	if first != second {
		t.Error("Expected GetOrCreate to return the existing session")
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 session, got %d", manager.Count())
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	scenario := createTestScenario()
	manager.Create("delete-test", scenario)

	t.Run("delete existing session", func(t *testing.T) {
		if err := manager.Delete("delete-test"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if _, err := manager.Get("delete-test"); err != ErrSessionNotFound {
			t.Error("Expected session to be deleted")
		}
	})

	t.Run("delete non-existent session", func(t *testing.T) {
		if err := manager.Delete("non-existent"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("case-insensitive delete", func(t *testing.T) {
		manager.Create("case-test", scenario)
		if err := manager.Delete("CASE-TEST"); err != nil {
			t.Fatalf("Failed to delete with different case: %v", err)
		}
		if _, err := manager.Get("case-test"); err != ErrSessionNotFound {
			t.Error("Expected session to be deleted regardless of case")
		}
	})

	t.Run("delete from memory", func(t *testing.T) {
		manager.Create("memory-test", scenario)
		if err := manager.DeleteFromMemory("memory-test"); err != nil {
			t.Fatalf("Failed to delete from memory: %v", err)
		}
		if err := manager.DeleteFromMemory("memory-test"); err != ErrSessionNotFound {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	scenario := createTestScenario()

	for _, id := range []string{"list-1", "list-2", "list-3"} {
		if _, err := manager.Create(id, scenario); err != nil {
			t.Fatalf("Failed to create %s: %v", id, err)
		}
		time.Sleep(time.Millisecond)
	}

	sessions := manager.List()
	if len(sessions) != 3 {
		t.Fatalf("Expected 3 sessions, got %d", len(sessions))
	}
	for i, want := range []string{"list-1", "list-2", "list-3"} {
		if sessions[i].ID != want {
			t.Errorf("Expected session %d to be %s, got %s", i, want, sessions[i].ID)
		}
	}
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	scenario := createTestScenario()

	a, _ := manager.Create("world-a", scenario)
	b, _ := manager.Create("world-b", scenario)

	if _, err := a.World.Move("ann", world.Pos(9, 9), 1); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	annB, _ := b.World.NPC("ann")
	if annB.Position != world.Pos(1, 1) {
		t.Errorf("Expected session b to be untouched, ann is at %s", annB.Position)
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	session, _ := manager.Create("access-test", createTestScenario())
	before := session.LastAccessedAt

	time.Sleep(5 * time.Millisecond)
	if err := manager.UpdateLastAccessed("ACCESS-TEST"); err != nil {
		t.Fatalf("Failed to update last accessed: %v", err)
	}
	if !session.LastAccessedAt.After(before) {
		t.Error("Expected last accessed time to advance")
	}

	if err := manager.UpdateLastAccessed("missing"); err != ErrSessionNotFound {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	scenario := createTestScenario()

	old, _ := manager.Create("old", scenario)
	manager.Create("fresh", scenario)
	old.LastAccessedAt = time.Now().Add(-2 * time.Hour)

	removed := manager.CleanupExpiredSessions(time.Hour)
	if removed != 1 {
		t.Errorf("Expected 1 removed session, got %d", removed)
	}
	if _, err := manager.Get("old"); err != ErrSessionNotFound {
		t.Error("Expected old session to be evicted")
	}
	if _, err := manager.Get("fresh"); err != nil {
		t.Errorf("Expected fresh session to survive: %v", err)
	}
}

func TestManager_ConcurrentCreate(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	scenario := createTestScenario()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.Create("", scenario); err != nil {
				t.Errorf("Concurrent create failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if manager.Count() != 20 {
		t.Errorf("Expected 20 sessions, got %d", manager.Count())
	}
}

func TestManager_SaveWithoutPersistence(t *testing.T) {
	manager := NewManager(zerolog.Nop())
	if err := manager.Save("anything"); err != nil {
		t.Errorf("Expected nil error without persistence, got %v", err)
	}
	if err := manager.SaveAllSessions(); err != nil {
		t.Errorf("Expected nil error without persistence, got %v", err)
	}
	if err := manager.LoadPersistedSessions(); err != nil {
		t.Errorf("Expected nil error without persistence, got %v", err)
	}
}
