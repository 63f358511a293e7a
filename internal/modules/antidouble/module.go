// Package antidouble flags accounts whose display name is nearly
// identical to an existing member's. Detection only: no sanction is
// applied, the caller posts an alert.
package antidouble

import (
	"strings"

	"fty-club-bot/internal/utils"
)

const Threshold = 0.85

type Member struct {
	ID          string
	DisplayName string
	Bot         bool
}

type Match struct {
	UserID      string
	DisplayName string
	Score       float64
}

// Matcher is the scan strategy. The shipped implementation stops at
// the first hit; an exhaustive best-match variant can replace it
// without touching call sites.
type Matcher interface {
	Scan(newID, newDisplayName string, existing []Member) (Match, bool)
}

type FirstMatch struct {
	threshold float64
}

func NewFirstMatch() *FirstMatch {
	return &FirstMatch{threshold: Threshold}
}

// Scan case-folds both names and returns the first existing non-bot
// member whose similarity is strictly above the threshold.
func (f *FirstMatch) Scan(newID, newDisplayName string, existing []Member) (Match, bool) {
	name := strings.ToLower(newDisplayName)
	for _, member := range existing {
		if member.ID == newID || member.Bot {
			continue
		}
		score := utils.Similarity(name, strings.ToLower(member.DisplayName))
		if score > f.threshold {
			return Match{UserID: member.ID, DisplayName: member.DisplayName, Score: score}, true
		}
	}
	return Match{}, false
}
