// Package antilink evaluates message content against the link filter.
package antilink

import (
	"strings"

	"fty-club-bot/internal/storage"
	"fty-club-bot/internal/utils"
)

type Verdict struct {
	Delete bool
	// Host is the offending link's normalized host, for logs and the
	// transient channel warning.
	Host string
}

// Evaluate decides whether a message should be deleted. Exempt authors
// (administrators and staff) and messages containing any whitelist
// substring always pass. Whitelist matching is plain substring
// containment, not URL parsing.
func Evaluate(content string, authorExempt bool, cfg storage.AntiLinkConfig) Verdict {
	if !cfg.Enabled {
		return Verdict{}
	}

	link := utils.FindLink(content)
	if link == "" {
		return Verdict{}
	}
	if authorExempt {
		return Verdict{}
	}
	for _, allowed := range cfg.Whitelist {
		if allowed != "" && strings.Contains(content, allowed) {
			return Verdict{}
		}
	}

	return Verdict{Delete: true, Host: utils.LinkHost(link)}
}
