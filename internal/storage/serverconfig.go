package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	ActionKick   = "kick"
	ActionBan    = "ban"
	ActionDelete = "delete"
)

type AntiRaidConfig struct {
	Enabled       bool   `json:"enabled"`
	JoinThreshold int    `json:"joinThreshold"`
	JoinWindow    int    `json:"joinWindow"`
	Action        string `json:"action"`
}

type AntiLinkConfig struct {
	Enabled   bool     `json:"enabled"`
	Whitelist []string `json:"whitelist"`
	Action    string   `json:"action"`
}

type AntiDoubleConfig struct {
	Enabled bool `json:"enabled"`
}

// ServerConfig is the single persisted guild configuration. Channel
// and role values are opaque Discord snowflakes; an empty string means
// not configured. Stale IDs are tolerated, sends to them simply fail.
type ServerConfig struct {
	Configured bool              `json:"configured"`
	Categories map[string]string `json:"categories"`
	Channels   map[string]string `json:"channels"`
	Roles      map[string]string `json:"roles"`
	AntiRaid   AntiRaidConfig    `json:"antiRaid"`
	AntiLink   AntiLinkConfig    `json:"antiLink"`
	AntiDouble AntiDoubleConfig  `json:"antiDouble"`
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Configured: false,
		Categories: map[string]string{},
		Channels: map[string]string{
			"general": "", "annonces": "", "matchAnnonce": "", "sanctions": "",
			"postes": "", "logs": "", "bienvenue": "", "reglement": "", "recrutement": "",
		},
		Roles: map[string]string{
			"owner": "", "admin": "", "moderateur": "", "support": "",
			"capitaine": "", "joueur": "", "membre": "", "muted": "",
		},
		AntiRaid:   AntiRaidConfig{Enabled: false, JoinThreshold: 10, JoinWindow: 10, Action: ActionKick},
		AntiLink:   AntiLinkConfig{Enabled: false, Whitelist: []string{}, Action: ActionDelete},
		AntiDouble: AntiDoubleConfig{Enabled: false},
	}
}

// ServerConfigPatch is a partial update. Nil fields are left alone;
// the maps are merged key by key.
type ServerConfigPatch struct {
	Configured *bool             `json:"configured"`
	Categories map[string]string `json:"categories"`
	Channels   map[string]string `json:"channels"`
	Roles      map[string]string `json:"roles"`
	AntiRaid   *AntiRaidConfig   `json:"antiRaid"`
	AntiLink   *AntiLinkConfig   `json:"antiLink"`
	AntiDouble *AntiDoubleConfig `json:"antiDouble"`
}

// DecodeServerConfigPatch parses a partial config document, rejecting
// unknown keys so a misspelled field cannot silently vanish.
func DecodeServerConfigPatch(raw []byte) (ServerConfigPatch, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var patch ServerConfigPatch
	if err := dec.Decode(&patch); err != nil {
		return ServerConfigPatch{}, fmt.Errorf("invalid config patch: %w", err)
	}
	return patch, nil
}

func (c *ServerConfig) apply(patch ServerConfigPatch) {
	if patch.Configured != nil {
		c.Configured = *patch.Configured
	}
	for key, value := range patch.Categories {
		c.Categories[key] = value
	}
	for key, value := range patch.Channels {
		c.Channels[key] = value
	}
	for key, value := range patch.Roles {
		c.Roles[key] = value
	}
	if patch.AntiRaid != nil {
		c.AntiRaid = *patch.AntiRaid
	}
	if patch.AntiLink != nil {
		c.AntiLink = *patch.AntiLink
	}
	if patch.AntiDouble != nil {
		c.AntiDouble = *patch.AntiDouble
	}
}

// ServerConfig returns the persisted configuration, or defaults when
// the record is absent or unreadable.
func (s *Store) ServerConfig() ServerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readServerConfigLocked()
}

func (s *Store) readServerConfigLocked() ServerConfig {
	cfg := DefaultServerConfig()
	s.readJSON(s.configPath, &cfg)
	if cfg.Categories == nil {
		cfg.Categories = map[string]string{}
	}
	if cfg.Channels == nil {
		cfg.Channels = map[string]string{}
	}
	if cfg.Roles == nil {
		cfg.Roles = map[string]string{}
	}
	return cfg
}

func (s *Store) SaveServerConfig(cfg ServerConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeJSON(s.configPath, cfg)
}

// MergeServerConfig applies a partial update on top of the persisted
// record and returns the result.
func (s *Store) MergeServerConfig(patch ServerConfigPatch) ServerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.readServerConfigLocked()
	cfg.apply(patch)
	s.writeJSON(s.configPath, cfg)
	return cfg
}

// ResetServerConfig restores defaults. Only the explicit full-reset
// path uses this.
func (s *Store) ResetServerConfig() ServerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := DefaultServerConfig()
	s.writeJSON(s.configPath, cfg)
	return cfg
}
