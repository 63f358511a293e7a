// Package antiraid detects join bursts with a per-guild sliding
// window. The module only decides; applying the configured sanction
// and posting the alert belong to the caller.
package antiraid

import (
	"sync"
	"time"

	"fty-club-bot/internal/storage"
	"fty-club-bot/internal/utils"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Decision struct {
	Trigger bool
	// Action is the configured sanction, kick or ban, applied to the
	// newly joined member only.
	Action        string
	Burst         []utils.JoinEvent
	WindowSeconds int
}

type Module struct {
	mu      sync.Mutex
	windows map[string]*utils.JoinWindow
	clock   Clock
}

func New() *Module {
	return &Module{
		windows: make(map[string]*utils.JoinWindow),
		clock:   realClock{},
	}
}

func (m *Module) WithClock(clock Clock) {
	m.clock = clock
}

// HandleJoin records the join and reports whether the in-window count
// reached the threshold. The window is never reset after a trigger, so
// a continuing burst keeps triggering; a zero threshold or window is a
// valid, if aggressive, configuration that fires on the first join.
func (m *Module) HandleJoin(guildID, userID, displayName string, cfg storage.AntiRaidConfig) Decision {
	if !cfg.Enabled {
		return Decision{}
	}

	window := time.Duration(cfg.JoinWindow) * time.Second
	joins := m.getWindow(guildID, window)
	burst := joins.Add(utils.JoinEvent{UserID: userID, DisplayName: displayName, At: m.clock.Now()})

	if len(burst) < cfg.JoinThreshold {
		return Decision{}
	}
	return Decision{
		Trigger:       true,
		Action:        cfg.Action,
		Burst:         burst,
		WindowSeconds: cfg.JoinWindow,
	}
}

func (m *Module) getWindow(guildID string, window time.Duration) *utils.JoinWindow {
	m.mu.Lock()
	defer m.mu.Unlock()
	joins := m.windows[guildID]
	if joins == nil {
		joins = utils.NewJoinWindow(window)
		m.windows[guildID] = joins
	} else {
		joins.SetWindow(window)
	}
	return joins
}
