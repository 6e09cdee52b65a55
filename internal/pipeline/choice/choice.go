// Package choice clusters answer labels that differ only in punctuation or
// spacing and keeps per-cluster statistics for one division.
package choice

import (
	"sort"
	"strings"
	"unicode/utf8"

	"pollscope/internal/types/poll"
)

// Normalize strips periods and commas, collapses whitespace runs and trims.
// Two labels are the same choice iff their normalized forms are equal.
func Normalize(label string) string {
	label = strings.NewReplacer(".", "", ",", "").Replace(label)
	return strings.Join(strings.Fields(label), " ")
}

// Label is an original answer label and the order it was first seen in.
type Label struct {
	Text string
	Seq  int
}

// NormalizedChoice is one cluster of equivalent labels.
type NormalizedChoice struct {
	Key         string
	DisplayName string
	Total       float64
	Count       int
	Labels      []Label
	FirstSeen   int
}

// Average is the unweighted mean percentage across contributions.
func (c *NormalizedChoice) Average() float64 {
	if c.Count == 0 {
		return 0
	}
	return c.Total / float64(c.Count)
}

// pickDisplay returns the shortest label, earliest on ties.
func pickDisplay(labels []Label) string {
	best := ""
	bestLen := -1
	for _, l := range labels {
		n := utf8.RuneCountInString(l.Text)
		if bestLen < 0 || n < bestLen {
			best, bestLen = l.Text, n
		}
	}
	return best
}

// Set is the ordered collection of clusters for one division.
type Set struct {
	choices []*NormalizedChoice
	byKey   map[string]*NormalizedChoice
	byLabel map[string]*NormalizedChoice
}

func newSet() *Set {
	return &Set{
		byKey:   map[string]*NormalizedChoice{},
		byLabel: map[string]*NormalizedChoice{},
	}
}

// Cluster scans every answer once, in poll order then answer order.
func Cluster(polls []poll.Record) *Set {
	s := newSet()
	seq := 0
	for _, p := range polls {
		for _, a := range p.Answers {
			key := Normalize(a.Choice)
			c, ok := s.byKey[key]
			if !ok {
				c = &NormalizedChoice{Key: key, FirstSeen: seq}
				s.byKey[key] = c
				s.choices = append(s.choices, c)
			}
			c.Total += a.Pct
			c.Count++
			if _, seen := s.byLabel[a.Choice]; !seen {
				s.byLabel[a.Choice] = c
				c.Labels = append(c.Labels, Label{Text: a.Choice, Seq: seq})
			}
			seq++
		}
	}
	for _, c := range s.choices {
		c.DisplayName = pickDisplay(c.Labels)
	}
	return s
}

func (s *Set) Len() int { return len(s.choices) }

// Choices returns clusters in first-seen order.
func (s *Set) Choices() []*NormalizedChoice { return s.choices }

// DisplayNames returns display names in first-seen order.
func (s *Set) DisplayNames() []string {
	out := make([]string, len(s.choices))
	for i, c := range s.choices {
		out[i] = c.DisplayName
	}
	return out
}

// ByDisplayName finds a cluster by its display name.
func (s *Set) ByDisplayName(name string) (*NormalizedChoice, bool) {
	for _, c := range s.choices {
		if c.DisplayName == name {
			return c, true
		}
	}
	return nil, false
}

// Lookup maps an original label to its cluster. Labels never observed are
// matched through their normalized form.
func (s *Set) Lookup(label string) (*NormalizedChoice, bool) {
	if c, ok := s.byLabel[label]; ok {
		return c, true
	}
	c, ok := s.byKey[Normalize(label)]
	return c, ok
}

// HasKeyFold reports whether any member key equals k, ignoring case.
func (s *Set) HasKeyFold(k string) bool {
	for key := range s.byKey {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}

// StandardPairs are option sets that carry no candidate names.
var StandardPairs = [][2]string{
	{"dem", "rep"},
	{"approve", "disapprove"},
	{"favorable", "unfavorable"},
	{"yes", "no"},
}

// StandardPair returns the first standard pair fully present in the set.
func (s *Set) StandardPair() ([2]string, bool) {
	for _, p := range StandardPairs {
		if s.HasKeyFold(p[0]) && s.HasKeyFold(p[1]) {
			return p, true
		}
	}
	return [2]string{}, false
}

// Merge folds each group of display names into a single cluster. Names not
// in the set, repeats of an already grouped name and groups left with fewer
// than two members are ignored. A merged cluster sits where its earliest
// member was.
func (s *Set) Merge(groups [][]string) *Set {
	owner := map[*NormalizedChoice]int{}
	members := map[int][]*NormalizedChoice{}
	for gi, g := range groups {
		var ms []*NormalizedChoice
		for _, name := range g {
			c, ok := s.ByDisplayName(name)
			if !ok {
				continue
			}
			if _, taken := owner[c]; taken {
				continue
			}
			owner[c] = gi
			ms = append(ms, c)
		}
		if len(ms) < 2 {
			for _, c := range ms {
				delete(owner, c)
			}
			continue
		}
		members[gi] = ms
	}
	if len(members) == 0 {
		return s
	}

	out := newSet()
	mapped := map[*NormalizedChoice]*NormalizedChoice{}
	for _, c := range s.choices {
		gi, grouped := owner[c]
		if !grouped {
			mapped[c] = c
			out.choices = append(out.choices, c)
			continue
		}
		if _, done := mapped[c]; done {
			continue
		}
		m := fold(members[gi])
		for _, part := range members[gi] {
			mapped[part] = m
		}
		out.choices = append(out.choices, m)
	}
	for key, c := range s.byKey {
		out.byKey[key] = mapped[c]
	}
	for label, c := range s.byLabel {
		out.byLabel[label] = mapped[c]
	}
	return out
}

func fold(ms []*NormalizedChoice) *NormalizedChoice {
	sorted := append([]*NormalizedChoice(nil), ms...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FirstSeen < sorted[j].FirstSeen })
	out := &NormalizedChoice{Key: sorted[0].Key, FirstSeen: sorted[0].FirstSeen}
	for _, c := range sorted {
		out.Total += c.Total
		out.Count += c.Count
		out.Labels = append(out.Labels, c.Labels...)
	}
	sort.SliceStable(out.Labels, func(i, j int) bool { return out.Labels[i].Seq < out.Labels[j].Seq })
	out.DisplayName = pickDisplay(out.Labels)
	return out
}

// ByAverage returns clusters sorted by average descending, first-seen order
// on ties.
func (s *Set) ByAverage() []*NormalizedChoice {
	out := append([]*NormalizedChoice(nil), s.choices...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Average() > out[j].Average() })
	return out
}

// Summary reports display name, average and count per cluster, sorted by
// average descending.
func (s *Set) Summary() []poll.ChoiceSummary {
	cs := s.ByAverage()
	out := make([]poll.ChoiceSummary, len(cs))
	for i, c := range cs {
		out[i] = poll.ChoiceSummary{Name: c.DisplayName, Average: c.Average(), Count: c.Count}
	}
	return out
}
