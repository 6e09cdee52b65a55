// Package color maps a division's display names to chart colors through an
// ordered rule table. The first rule that matches a name decides its color.
package color

import (
	"strings"

	"pollscope/internal/pipeline/choice"
	"pollscope/internal/pipeline/party"
)

// Map is display name to "#rrggbb".
type Map map[string]string

// division is what the rules see of one division.
type division struct {
	pollType string
	keys     map[string]bool
	parties  map[string]party.Party
	used     map[string]bool
	shades   map[party.Party]*shades
}

func (d *division) has(keys ...string) bool {
	for _, k := range keys {
		if d.keys[k] {
			return true
		}
	}
	return false
}

type rule struct {
	name    string
	applies func(d *division) bool
	color   func(d *division, name string) (string, bool)
}

// Assigner evaluates the rule table. The zero value is not usable; use
// NewAssigner.
type Assigner struct {
	rules []rule
}

func NewAssigner() *Assigner {
	return &Assigner{rules: []rule{
		{name: "binary-sentiment", applies: isSentiment, color: sentimentColor},
		{name: "generic-ballot", applies: isGenericBallot, color: ballotColor},
		{name: "party", applies: always, color: partyColor},
	}}
}

func always(*division) bool { return true }

func canon(label string) string { return strings.ToLower(choice.Normalize(label)) }

func pollTypeOf(pt string) string {
	pt = strings.ToLower(strings.TrimSpace(pt))
	return strings.NewReplacer("_", "-", " ", "-").Replace(pt)
}

var sentimentTypes = map[string]bool{"approval": true, "favorability": true}

var (
	positive = map[string]bool{"approve": true, "favorable": true, "yes": true}
	negative = map[string]bool{"disapprove": true, "unfavorable": true, "no": true}
)

func isSentiment(d *division) bool {
	if sentimentTypes[d.pollType] {
		return true
	}
	return (d.has("approve") && d.has("disapprove")) ||
		(d.has("favorable") && d.has("unfavorable")) ||
		(d.has("yes") && d.has("no"))
}

func sentimentColor(_ *division, name string) (string, bool) {
	k := canon(name)
	switch {
	case positive[k]:
		return Positive, true
	case negative[k]:
		return Negative, true
	}
	return "", false
}

var ballotParties = map[string]party.Party{
	"dem": party.Democrat, "democrat": party.Democrat, "democrats": party.Democrat, "democratic": party.Democrat,
	"rep": party.Republican, "republican": party.Republican, "republicans": party.Republican, "gop": party.Republican,
	"lib": party.Libertarian, "libertarian": party.Libertarian,
	"green": party.Green,
	"ind": party.Independent, "independent": party.Independent,
	"other": party.Other,
}

func isGenericBallot(d *division) bool {
	return d.pollType == "generic-ballot" || (d.has("dem") && d.has("rep"))
}

func ballotColor(_ *division, name string) (string, bool) {
	p, ok := ballotParties[canon(name)]
	if !ok {
		return "", false
	}
	return Base(p), true
}

func partyColor(d *division, name string) (string, bool) {
	p, ok := d.parties[name]
	if !ok || p == party.Unknown || palettes[p] == nil {
		return "", false
	}
	sh, ok := d.shades[p]
	if !ok {
		sh = &shades{party: p}
		d.shades[p] = sh
	}
	return sh.take(d.used), true
}

func newDivision(pollType string, names []string, parties map[string]party.Party) *division {
	d := &division{
		pollType: pollTypeOf(pollType),
		keys:     make(map[string]bool, len(names)),
		parties:  parties,
		used:     map[string]bool{},
		shades:   map[party.Party]*shades{},
	}
	for _, n := range names {
		d.keys[canon(n)] = true
	}
	return d
}

// Assign colors every name in choices. Names are visited in the given order,
// which fixes shade order for same-party candidates.
func (a *Assigner) Assign(pollType string, choices []string, parties map[string]party.Party) Map {
	d := newDivision(pollType, choices, parties)
	var active []rule
	for _, r := range a.rules {
		if r.applies(d) {
			active = append(active, r)
		}
	}
	out := make(Map, len(choices))
	for _, name := range choices {
		if _, done := out[name]; done {
			continue
		}
		c := Fallback
		for _, r := range active {
			if got, ok := r.color(d, name); ok {
				c = got
				break
			}
		}
		out[name] = c
		d.used[c] = true
	}
	return out
}

// NeedsParties reports whether party lookups can change the outcome, which
// is not the case for sentiment and generic-ballot divisions.
func (a *Assigner) NeedsParties(pollType string, choices []string) bool {
	d := newDivision(pollType, choices, nil)
	return !isSentiment(d) && !isGenericBallot(d)
}
