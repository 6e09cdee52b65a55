package choice

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollscope/internal/types/poll"
)

func rec(answers ...poll.Answer) poll.Record { return poll.Record{Answers: answers} }

func ans(choice string, pct float64) poll.Answer { return poll.Answer{Choice: choice, Pct: pct} }

func TestNormalize_PunctuationAndSpacing(t *testing.T) {
	want := Normalize("RFK Jr")
	for _, in := range []string{"R.F.K. Jr.", "RFK Jr", "RFK  Jr.", "  RFK\tJr ", "R,F,K Jr"} {
		assert.Equal(t, want, Normalize(in), in)
	}
	assert.Equal(t, "RFK Jr", want)
	assert.NotEqual(t, Normalize("rfk jr"), want)
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"R.F.K. Jr.", "Donald  J. Trump", "", " , . ", "Approve"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestCluster_DisplayNameAndAverages(t *testing.T) {
	s := Cluster([]poll.Record{
		rec(ans("Approve", 45), ans("Disapprove", 50)),
		rec(ans("Approve.", 44), ans("Disapprove", 51)),
	})

	require.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"Approve", "Disapprove"}, s.DisplayNames())

	a, ok := s.Lookup("Approve.")
	require.True(t, ok)
	assert.Equal(t, "Approve", a.DisplayName)
	assert.InDelta(t, 44.5, a.Average(), 1e-9)
	assert.Equal(t, 2, a.Count)
	assert.Equal(t, []Label{{Text: "Approve", Seq: 0}, {Text: "Approve.", Seq: 2}}, a.Labels)

	d, ok := s.Lookup("Disapprove")
	require.True(t, ok)
	assert.InDelta(t, 50.5, d.Average(), 1e-9)
}

func TestCluster_ShortestLabelTiesEarliest(t *testing.T) {
	s := Cluster([]poll.Record{
		rec(ans("R.F.K. Jr.", 10)),
		rec(ans("RFK  Jr", 12), ans("RFK Jr.", 9)),
	})
	require.Equal(t, 1, s.Len())
	// "RFK  Jr" and "RFK Jr." have equal length; the earlier one wins.
	assert.Equal(t, "RFK  Jr", s.Choices()[0].DisplayName)
}

func TestLookup_UnseenLabelByKey(t *testing.T) {
	s := Cluster([]poll.Record{rec(ans("Trump", 40))})
	c, ok := s.Lookup("Trump.")
	require.True(t, ok)
	assert.Equal(t, "Trump", c.DisplayName)
	_, ok = s.Lookup("Harris")
	assert.False(t, ok)
}

func TestStandardPair(t *testing.T) {
	s := Cluster([]poll.Record{rec(ans("Dem", 45), ans("Rep", 44), ans("Undecided", 11))})
	p, ok := s.StandardPair()
	require.True(t, ok)
	assert.Equal(t, [2]string{"dem", "rep"}, p)

	s = Cluster([]poll.Record{rec(ans("Yes", 45))})
	_, ok = s.StandardPair()
	assert.False(t, ok)
}

func TestMerge_FoldsGroups(t *testing.T) {
	s := Cluster([]poll.Record{
		rec(ans("Kamala Harris", 44), ans("Trump", 46)),
		rec(ans("Harris", 45), ans("Donald Trump", 47), ans("Stein", 1)),
	})
	require.Equal(t, 5, s.Len())

	m := s.Merge([][]string{
		{"Kamala Harris", "Harris"},
		{"Trump", "Donald Trump", "Ghost"},
		{"Stein"},
		{"Harris", "Stein"},
	})

	assert.Equal(t, []string{"Harris", "Trump", "Stein"}, m.DisplayNames())

	h, ok := m.Lookup("Kamala Harris")
	require.True(t, ok)
	assert.Equal(t, "Harris", h.DisplayName)
	assert.Equal(t, 2, h.Count)
	assert.InDelta(t, 44.5, h.Average(), 1e-9)
	assert.Equal(t, 0, h.FirstSeen)

	tr, ok := m.Lookup("Donald Trump")
	require.True(t, ok)
	assert.Same(t, tr, mustLookup(t, m, "Trump"))
	assert.Equal(t, 1, tr.FirstSeen)

	st, ok := m.Lookup("Stein")
	require.True(t, ok)
	assert.Equal(t, 1, st.Count)

	// The input set is left untouched.
	assert.Equal(t, 5, s.Len())
}

func TestMerge_NoValidGroupsReturnsSameSet(t *testing.T) {
	s := Cluster([]poll.Record{rec(ans("A", 1), ans("B", 2))})
	assert.Same(t, s, s.Merge(nil))
	assert.Same(t, s, s.Merge([][]string{{"A"}, {"X", "Y"}}))
}

func TestSummary_SortedByAverage(t *testing.T) {
	s := Cluster([]poll.Record{
		rec(ans("B", 10), ans("A", 30), ans("C", 10)),
	})
	want := []poll.ChoiceSummary{
		{Name: "A", Average: 30, Count: 1},
		{Name: "B", Average: 10, Count: 1},
		{Name: "C", Average: 10, Count: 1},
	}
	if diff := cmp.Diff(want, s.Summary()); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func mustLookup(t *testing.T, s *Set, label string) *NormalizedChoice {
	t.Helper()
	c, ok := s.Lookup(label)
	require.True(t, ok, label)
	return c
}
