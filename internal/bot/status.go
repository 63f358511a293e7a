package bot

import (
	"sync"
	"time"
)

// Status is the live snapshot the control plane and the panel read:
// gateway readiness, guild/member counts, current activity, and the
// maintenance flag.
type Status struct {
	mu          sync.Mutex
	ready       bool
	startedAt   time.Time
	guilds      int
	members     int
	activity    string
	maintenance bool
	commands    []string
}

type StatusSnapshot struct {
	Ready       bool      `json:"botReady"`
	StartedAt   time.Time `json:"startedAt"`
	Uptime      int64     `json:"uptime"`
	Guilds      int       `json:"guilds"`
	Members     int       `json:"members"`
	Activity    string    `json:"activity"`
	Maintenance bool      `json:"maintenance"`
	Commands    []string  `json:"commands"`
}

func NewStatus() *Status {
	return &Status{startedAt: time.Now()}
}

func (s *Status) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

func (s *Status) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Status) SetCounts(guilds, members int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds = guilds
	s.members = members
}

func (s *Status) SetActivity(activity string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = activity
}

func (s *Status) SetMaintenance(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maintenance = on
}

func (s *Status) Maintenance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maintenance
}

func (s *Status) SetCommands(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append([]string(nil), names...)
}

func (s *Status) Snapshot() StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusSnapshot{
		Ready:       s.ready,
		StartedAt:   s.startedAt,
		Uptime:      int64(time.Since(s.startedAt).Seconds()),
		Guilds:      s.guilds,
		Members:     s.members,
		Activity:    s.activity,
		Maintenance: s.maintenance,
		Commands:    append([]string(nil), s.commands...),
	}
}
