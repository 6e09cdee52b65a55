// Package party resolves candidate names to party affiliations behind a
// process-wide, write-once cache with one lookup in flight per name.
package party

import "strings"

// Party is a political-party category.
type Party string

const (
	Democrat    Party = "Democrat"
	Republican  Party = "Republican"
	Independent Party = "Independent"
	Libertarian Party = "Libertarian"
	Green       Party = "Green"
	Other       Party = "Other"
	Unknown     Party = "Unknown"
)

// All lists every category, Unknown last.
var All = []Party{Democrat, Republican, Independent, Libertarian, Green, Other, Unknown}

func partyNames() []string {
	out := make([]string, len(All))
	for i, p := range All {
		out[i] = string(p)
	}
	return out
}

var aliases = map[string]Party{
	"democrat":    Democrat,
	"democratic":  Democrat,
	"dem":         Democrat,
	"d":           Democrat,
	"republican":  Republican,
	"rep":         Republican,
	"gop":         Republican,
	"r":           Republican,
	"independent": Independent,
	"ind":         Independent,
	"i":           Independent,
	"libertarian": Libertarian,
	"lib":         Libertarian,
	"l":           Libertarian,
	"green":       Green,
	"g":           Green,
	"other":       Other,
	"unknown":     Unknown,
}

// Parse maps a model or user supplied party label onto the enum. The bool
// is false when the label is not recognized.
func Parse(s string) (Party, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, " party")
	p, ok := aliases[s]
	if !ok {
		return Unknown, false
	}
	return p, true
}
