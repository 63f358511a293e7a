package antiraid

import (
	"fmt"
	"testing"
	"time"

	"fty-club-bot/internal/storage"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestModule() (*Module, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
	m := New()
	m.WithClock(clock)
	return m, clock
}

func TestHandleJoinDisabled(t *testing.T) {
	m, _ := newTestModule()
	cfg := storage.AntiRaidConfig{Enabled: false, JoinThreshold: 1, JoinWindow: 10, Action: storage.ActionKick}

	if decision := m.HandleJoin("g1", "u1", "alex", cfg); decision.Trigger {
		t.Fatal("disabled module triggered")
	}
}

func TestHandleJoinTriggersAtThreshold(t *testing.T) {
	m, clock := newTestModule()
	cfg := storage.AntiRaidConfig{Enabled: true, JoinThreshold: 3, JoinWindow: 10, Action: storage.ActionKick}

	for i := 0; i < 2; i++ {
		decision := m.HandleJoin("g1", fmt.Sprintf("u%d", i), "bot", cfg)
		if decision.Trigger {
			t.Fatalf("triggered at join %d, below threshold", i+1)
		}
		clock.advance(time.Second)
	}

	decision := m.HandleJoin("g1", "u2", "bot", cfg)
	if !decision.Trigger {
		t.Fatal("no trigger at threshold")
	}
	if decision.Action != storage.ActionKick {
		t.Fatalf("action = %q", decision.Action)
	}
	if len(decision.Burst) != 3 {
		t.Fatalf("burst size = %d, want 3", len(decision.Burst))
	}
	if decision.WindowSeconds != 10 {
		t.Fatalf("window = %d", decision.WindowSeconds)
	}
}

func TestHandleJoinWindowExpiry(t *testing.T) {
	m, clock := newTestModule()
	cfg := storage.AntiRaidConfig{Enabled: true, JoinThreshold: 3, JoinWindow: 10, Action: storage.ActionKick}

	m.HandleJoin("g1", "u1", "a", cfg)
	m.HandleJoin("g1", "u2", "b", cfg)
	clock.advance(11 * time.Second)

	if decision := m.HandleJoin("g1", "u3", "c", cfg); decision.Trigger {
		t.Fatal("triggered on joins outside the window")
	}
}

func TestHandleJoinKeepsTriggeringDuringBurst(t *testing.T) {
	m, clock := newTestModule()
	cfg := storage.AntiRaidConfig{Enabled: true, JoinThreshold: 2, JoinWindow: 10, Action: storage.ActionBan}

	m.HandleJoin("g1", "u1", "a", cfg)
	clock.advance(time.Second)
	if !m.HandleJoin("g1", "u2", "b", cfg).Trigger {
		t.Fatal("first trigger missing")
	}
	clock.advance(time.Second)
	// The window is not reset after a trigger: the burst keeps firing.
	if !m.HandleJoin("g1", "u3", "c", cfg).Trigger {
		t.Fatal("continuing burst stopped triggering")
	}
}

func TestHandleJoinZeroThresholdFiresImmediately(t *testing.T) {
	m, _ := newTestModule()
	cfg := storage.AntiRaidConfig{Enabled: true, JoinThreshold: 0, JoinWindow: 10, Action: storage.ActionKick}

	if !m.HandleJoin("g1", "u1", "a", cfg).Trigger {
		t.Fatal("zero threshold should fire on the first join")
	}
}

func TestHandleJoinZeroWindowSingleJoin(t *testing.T) {
	m, clock := newTestModule()
	cfg := storage.AntiRaidConfig{Enabled: true, JoinThreshold: 1, JoinWindow: 0, Action: storage.ActionKick}

	if !m.HandleJoin("g1", "u1", "a", cfg).Trigger {
		t.Fatal("threshold 1 should fire on every join")
	}
	clock.advance(time.Second)
	if !m.HandleJoin("g1", "u2", "b", cfg).Trigger {
		t.Fatal("zero window with threshold 1 should still fire")
	}
}

func TestHandleJoinGuildsAreIsolated(t *testing.T) {
	m, clock := newTestModule()
	cfg := storage.AntiRaidConfig{Enabled: true, JoinThreshold: 2, JoinWindow: 10, Action: storage.ActionKick}

	m.HandleJoin("g1", "u1", "a", cfg)
	clock.advance(time.Second)
	if m.HandleJoin("g2", "u2", "b", cfg).Trigger {
		t.Fatal("joins leaked across guilds")
	}
}
