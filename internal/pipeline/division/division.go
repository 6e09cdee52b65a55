// Package division partitions fetched polls by (subject, poll type).
package division

import (
	"sort"

	"pollscope/internal/types/poll"
)

// Division is one partition with its polls newest first.
type Division struct {
	Key   poll.DivisionKey
	Polls []poll.Record
}

// Group partitions records without dropping or duplicating any. Divisions
// come back in first-appearance order and each one is stable-sorted by end
// date descending; unparseable end dates sort last.
func Group(records []poll.Record) []Division {
	idx := map[poll.DivisionKey]int{}
	var out []Division
	for _, r := range records {
		k := poll.KeyOf(r)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Division{Key: k})
		}
		out[i].Polls = append(out[i].Polls, r)
	}
	for i := range out {
		sortByEndDate(out[i].Polls)
	}
	return out
}

func sortByEndDate(polls []poll.Record) {
	type dated struct {
		t  int64
		ok bool
	}
	keys := make(map[int]dated, len(polls))
	for i, p := range polls {
		t, ok := poll.ParseDate(p.EndDate)
		keys[i] = dated{t: t.Unix(), ok: ok}
	}
	order := make([]int, len(polls))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		if ka.ok != kb.ok {
			return ka.ok
		}
		return ka.t > kb.t
	})
	sorted := make([]poll.Record, len(polls))
	for i, j := range order {
		sorted[i] = polls[j]
	}
	copy(polls, sorted)
}
