package color

import (
	"fmt"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pollscope/internal/pipeline/party"
)

func TestAssign_Approval(t *testing.T) {
	a := NewAssigner()
	got := a.Assign("approval", []string{"Approve", "Disapprove", "Not sure"}, nil)
	want := Map{"Approve": Positive, "Disapprove": Negative, "Not sure": Fallback}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("color map mismatch (-want +got):\n%s", diff)
	}
}

func TestAssign_FavorabilityCaseInsensitive(t *testing.T) {
	got := NewAssigner().Assign("Favorability", []string{"FAVORABLE", "unfavorable."}, nil)
	assert.Equal(t, Map{"FAVORABLE": Positive, "unfavorable.": Negative}, got)
}

func TestAssign_YesNoPairInAnyPollType(t *testing.T) {
	got := NewAssigner().Assign("referendum", []string{"Yes", "No"}, nil)
	assert.Equal(t, Map{"Yes": Positive, "No": Negative}, got)
}

func TestAssign_GenericBallot(t *testing.T) {
	// Parties that disagree with the labels must not matter.
	parties := map[string]party.Party{"Dem": party.Republican, "Rep": party.Democrat}
	got := NewAssigner().Assign("generic-ballot", []string{"Dem", "Rep", "Lib", "Undecided"}, parties)
	assert.Equal(t, Map{
		"Dem":       "#2563eb",
		"Rep":       "#e02f28",
		"Lib":       "#c4b937",
		"Undecided": Fallback,
	}, got)
}

func TestAssign_DemRepPairImpliesBallot(t *testing.T) {
	got := NewAssigner().Assign("", []string{"Rep", "Dem"}, nil)
	assert.Equal(t, Map{"Dem": "#2563eb", "Rep": "#e02f28"}, got)
}

func TestAssign_PartyColors(t *testing.T) {
	names := []string{"Harris", "Trump", "Stein", "Oliver", "Kennedy", "West", "Someone"}
	parties := map[string]party.Party{
		"Harris":  party.Democrat,
		"Trump":   party.Republican,
		"Stein":   party.Green,
		"Oliver":  party.Libertarian,
		"Kennedy": party.Independent,
		"West":    party.Other,
		"Someone": party.Unknown,
	}
	got := NewAssigner().Assign("general", names, parties)
	assert.Equal(t, Map{
		"Harris":  Base(party.Democrat),
		"Trump":   Base(party.Republican),
		"Stein":   Base(party.Green),
		"Oliver":  Base(party.Libertarian),
		"Kennedy": Base(party.Independent),
		"West":    Base(party.Other),
		"Someone": Fallback,
	}, got)
}

func TestAssign_ContestedPrimaryDistinctShades(t *testing.T) {
	names := []string{"Trump", "DeSantis", "Haley"}
	parties := map[string]party.Party{}
	for _, n := range names {
		parties[n] = party.Republican
	}
	got := NewAssigner().Assign("primary", names, parties)

	require.Len(t, got, 3)
	seen := map[string]bool{}
	pal := Palette(party.Republican)
	for i, n := range names {
		c := got[n]
		assert.False(t, seen[c], "duplicate shade %s", c)
		seen[c] = true
		assert.Equal(t, pal[i], c, "shades follow first-encountered order")
	}
}

func TestAssign_GeneratesShadesPastPalette(t *testing.T) {
	var names []string
	parties := map[string]party.Party{}
	for i := 0; i < 12; i++ {
		n := fmt.Sprintf("Candidate %d", i)
		names = append(names, n)
		parties[n] = party.Democrat
	}
	got := NewAssigner().Assign("primary", names, parties)

	base, err := colorful.Hex(Base(party.Democrat))
	require.NoError(t, err)
	baseHue, _, _ := base.Hsl()

	seen := map[string]bool{}
	for _, n := range names {
		c := got[n]
		require.False(t, seen[c], "duplicate shade %s", c)
		seen[c] = true
		col, err := colorful.Hex(c)
		require.NoError(t, err)
		h, _, _ := col.Hsl()
		assert.LessOrEqual(t, hueDistance(h, baseHue), 20.0, "%s drifted out of range", c)
	}
}

func TestAssign_Deterministic(t *testing.T) {
	names := []string{"A", "B", "C", "D"}
	parties := map[string]party.Party{"A": party.Democrat, "B": party.Democrat, "C": party.Republican}
	a := NewAssigner()
	first := a.Assign("primary", names, parties)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, a.Assign("primary", names, parties))
	}
	assert.Len(t, first, len(names))
}

func TestAssign_Total(t *testing.T) {
	got := NewAssigner().Assign("whatever", []string{"x", "y", "x"}, nil)
	assert.Equal(t, Map{"x": Fallback, "y": Fallback}, got)
	assert.Empty(t, NewAssigner().Assign("approval", nil, nil))
}

func TestNeedsParties(t *testing.T) {
	a := NewAssigner()
	assert.False(t, a.NeedsParties("approval", []string{"Approve", "Disapprove"}))
	assert.False(t, a.NeedsParties("generic_ballot", []string{"Democrats", "Republicans"}))
	assert.False(t, a.NeedsParties("poll", []string{"Dem", "Rep"}))
	assert.True(t, a.NeedsParties("primary", []string{"Trump", "Haley"}))
}

func TestPaletteHuesStayInRange(t *testing.T) {
	for _, p := range party.All {
		pal := Palette(p)
		if p == party.Unknown {
			assert.Empty(t, pal)
			continue
		}
		base, err := colorful.Hex(pal[0])
		require.NoError(t, err)
		bh, _, _ := base.Hsl()
		for _, c := range pal {
			col, err := colorful.Hex(c)
			require.NoError(t, err)
			h, _, _ := col.Hsl()
			assert.LessOrEqual(t, hueDistance(h, bh), 20.0, "%s %s", p, c)
		}
	}
}

func hueDistance(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}
